package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.IncSuccess("pending-sale-reminders")
	m.IncSuccess("pending-sale-reminders")
	m.IncFailure("pending-sale-reminders")
	m.ObserveDuration("pending-sale-reminders", 125*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("pending-sale-reminders")); got != 2 {
		t.Fatalf("success counter = %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("pending-sale-reminders")); got != 1 {
		t.Fatalf("failure counter = %v", got)
	}
}

func TestJobMetricsNilSafe(t *testing.T) {
	var m *JobMetrics
	m.IncSuccess("x")
	m.IncFailure("x")
	m.ObserveDuration("x", time.Second)

	empty := NewJobMetrics(nil)
	empty.IncSuccess("")
	empty.ObserveDuration("", time.Second)
}
