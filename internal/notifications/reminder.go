package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
)

// TickSummary reports what one reminder tick did. Running the tick twice
// with no state change in between yields a second summary with zero
// created, reactivated and emailed counts.
type TickSummary struct {
	SalesProcessed int
	Created        int
	Reactivated    int
	EmailsSent     int
	EmailFailures  int
	OrphansDeleted int
}

// GenerateReminders runs one idempotent reminder tick over every PENDING
// sale older than the configured minimum age.
//
// Per sale it ensures the seller's in-app reminder exists and is unread,
// escalates to email past the email threshold with a re-send throttle, and
// past the admin threshold repeats the same discipline per administrator.
// It finishes by deleting reminder notifications whose sale is gone or no
// longer PENDING. Email failures are collected and logged; they never
// abort the tick and never undo the in-app rows.
func (s *service) GenerateReminders(ctx context.Context, now time.Time) (TickSummary, error) {
	var summary TickSummary
	var emailErrs error

	cutoff := now.Add(-s.cfg.MinAge)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		pending, err := s.sales.ListPendingBefore(ctx, cutoff)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending sales")
		}

		var admins []models.User
		if len(pending) > 0 {
			admins, err = s.users.FindAdmins(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list administrators")
			}
		}

		for i := range pending {
			sale := &pending[i]
			daysPending := int(now.Sub(sale.OrderDate).Hours() / 24)
			summary.SalesProcessed++

			if err := s.remindSeller(ctx, repo, sale, daysPending, now, &summary, &emailErrs); err != nil {
				return err
			}
			if daysPending >= s.cfg.AdminAfterDays {
				if err := s.alertAdmins(ctx, repo, sale, admins, daysPending, now, &summary, &emailErrs); err != nil {
					return err
				}
			}
		}

		return s.cleanupOrphans(ctx, repo, &summary)
	})
	if err != nil {
		return summary, err
	}

	if emailErrs != nil {
		summary.EmailFailures = len(multierr.Errors(emailErrs))
		s.log.Error(ctx, "reminder tick email failures", emailErrs)
	}
	return summary, nil
}

func (s *service) remindSeller(
	ctx context.Context,
	repo Repository,
	sale *models.Sale,
	daysPending int,
	now time.Time,
	summary *TickSummary,
	emailErrs *error,
) error {
	notification, outcome, err := s.ensureNotification(ctx, repo, ensureInput{
		userID: sale.SellerID,
		sale:   sale,
		typ:    enums.NotificationTypeSalePendingReminder,
		title:  "Venta pendiente de pago",
		message: fmt.Sprintf(
			"La venta %s de %s lleva %d dias pendiente de pago.",
			sale.OrderLabel(), sale.CustomerName, daysPending,
		),
	})
	if err != nil {
		return err
	}
	summary.tally(outcome)

	if daysPending < s.cfg.EmailAfterDays || !s.emailDue(notification.LastEmailSentAt, now) {
		return nil
	}
	if sale.Seller == nil || sale.Seller.Email == "" {
		s.log.Warn(s.log.WithSaleID(ctx, sale.ID), "seller has no email, skipping reminder")
		return nil
	}

	if err := s.mailer.SendSellerReminder(ctx, sale.Seller.Email, sale.Seller.FullName, sale.OrderLabel(), daysPending); err != nil {
		*emailErrs = multierr.Append(*emailErrs, fmt.Errorf("seller reminder for sale %d: %w", sale.ID, err))
		return nil
	}
	summary.EmailsSent++
	return s.stampEmail(ctx, repo, notification, now)
}

func (s *service) alertAdmins(
	ctx context.Context,
	repo Repository,
	sale *models.Sale,
	admins []models.User,
	daysPending int,
	now time.Time,
	summary *TickSummary,
	emailErrs *error,
) error {
	sellerName := ""
	if sale.Seller != nil {
		sellerName = sale.Seller.FullName
	}
	message := fmt.Sprintf(
		"La venta %s del vendedor %s lleva %d dias pendiente de pago.",
		sale.OrderLabel(), sellerName, daysPending,
	)

	for _, admin := range admins {
		notification, outcome, err := s.ensureNotification(ctx, repo, ensureInput{
			userID:  admin.ID,
			sale:    sale,
			typ:     enums.NotificationTypeSalePendingAdminAlert,
			title:   "Venta sin cobrar requiere seguimiento",
			message: message,
		})
		if err != nil {
			return err
		}
		summary.tally(outcome)

		// The email throttle runs independently per admin notification.
		if !s.emailDue(notification.LastEmailSentAt, now) {
			continue
		}
		if admin.Email == "" {
			continue
		}
		if err := s.mailer.SendAdminAlert(ctx, admin.Email, admin.FullName, sale.OrderLabel(), sellerName, daysPending); err != nil {
			*emailErrs = multierr.Append(*emailErrs, fmt.Errorf("admin alert for sale %d to %s: %w", sale.ID, admin.Email, err))
			continue
		}
		summary.EmailsSent++
		if err := s.stampEmail(ctx, repo, notification, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) cleanupOrphans(ctx context.Context, repo Repository, summary *TickSummary) error {
	rows, err := repo.ListByTypes(ctx, enums.ReminderNotificationTypes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reminder notifications")
	}
	if len(rows) == 0 {
		return nil
	}

	saleIDs := make([]int64, 0, len(rows))
	seen := map[int64]bool{}
	for _, row := range rows {
		if row.ReferenceID == nil || seen[*row.ReferenceID] {
			continue
		}
		seen[*row.ReferenceID] = true
		saleIDs = append(saleIDs, *row.ReferenceID)
	}

	statuses, err := s.sales.StatusesByIDs(ctx, saleIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale statuses")
	}

	var orphans []int64
	for _, row := range rows {
		if row.ReferenceID == nil {
			orphans = append(orphans, row.ID)
			continue
		}
		status, exists := statuses[*row.ReferenceID]
		if !exists || status != enums.SaleStatusPending {
			orphans = append(orphans, row.ID)
		}
	}
	if len(orphans) == 0 {
		return nil
	}

	if err := repo.DeleteByIDs(ctx, orphans); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete orphan notifications")
	}
	summary.OrphansDeleted += len(orphans)
	return nil
}

func (t *TickSummary) tally(outcome ensureOutcome) {
	switch outcome {
	case ensureCreated:
		t.Created++
	case ensureReactivated:
		t.Reactivated++
	}
}

func (s *service) emailDue(lastSentAt *time.Time, now time.Time) bool {
	if lastSentAt == nil {
		return true
	}
	interval := time.Duration(s.cfg.EmailEveryDays) * 24 * time.Hour
	return now.Sub(*lastSentAt) >= interval
}

func (s *service) stampEmail(ctx context.Context, repo Repository, notification *models.Notification, now time.Time) error {
	notification.LastEmailSentAt = &now
	if err := repo.UpdateFields(ctx, notification.ID, map[string]any{"last_email_sent_at": now}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp email timestamp")
	}
	return nil
}
