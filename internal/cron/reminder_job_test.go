package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DanMeraDev/ElMayoristaProject/internal/notifications"
)

type fakeGenerator struct {
	summary notifications.TickSummary
	err     error
	calls   int
	lastNow time.Time
}

func (f *fakeGenerator) GenerateReminders(ctx context.Context, now time.Time) (notifications.TickSummary, error) {
	f.calls++
	f.lastNow = now
	return f.summary, f.err
}

func TestReminderJobRunsGenerator(t *testing.T) {
	gen := &fakeGenerator{summary: notifications.TickSummary{SalesProcessed: 3, Created: 2, EmailsSent: 1}}
	job, err := NewReminderJob(ReminderJobParams{Logger: testLogger(), Generator: gen})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "pending-sale-reminders" {
		t.Fatalf("name = %s", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times", gen.calls)
	}
	if gen.lastNow.IsZero() {
		t.Fatal("generator received zero time")
	}
}

func TestReminderJobSurfacesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("db down")}
	job, err := NewReminderJob(ReminderJobParams{Logger: testLogger(), Generator: gen})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing generator")
	}
}

func TestNewReminderJobRequiresGenerator(t *testing.T) {
	if _, err := NewReminderJob(ReminderJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error for missing generator")
	}
}
