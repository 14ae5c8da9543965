package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/DanMeraDev/ElMayoristaProject/internal/notifications"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

// reminderGenerator is the slice of the notifications service the job needs.
type reminderGenerator interface {
	GenerateReminders(ctx context.Context, now time.Time) (notifications.TickSummary, error)
}

// ReminderJobParams configure the pending sale reminder job.
type ReminderJobParams struct {
	Logger    *logger.Logger
	Generator reminderGenerator
}

// NewReminderJob builds the job that materializes reminders and escalation
// alerts for sales that have stayed PENDING too long.
func NewReminderJob(params ReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Generator == nil {
		return nil, fmt.Errorf("reminder generator required")
	}
	return &reminderJob{
		logg:      params.Logger,
		generator: params.Generator,
		now:       time.Now,
	}, nil
}

type reminderJob struct {
	logg      *logger.Logger
	generator reminderGenerator
	now       func() time.Time
}

func (j *reminderJob) Name() string { return "pending-sale-reminders" }

func (j *reminderJob) Run(ctx context.Context) error {
	summary, err := j.generator.GenerateReminders(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("generate reminders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"sales_processed": summary.SalesProcessed,
		"created":         summary.Created,
		"reactivated":     summary.Reactivated,
		"emails_sent":     summary.EmailsSent,
		"email_failures":  summary.EmailFailures,
		"orphans_deleted": summary.OrphansDeleted,
	})
	j.logg.Info(logCtx, "reminder tick complete")
	return nil
}
