package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type saleSource interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Sale, error)
	StatusesByIDs(ctx context.Context, ids []int64) (map[int64]enums.SaleStatus, error)
}

type userDirectory interface {
	FindAdmins(ctx context.Context) ([]models.User, error)
}

type reminderMailer interface {
	SendSellerReminder(ctx context.Context, to, name, orderLabel string, daysPending int) error
	SendAdminAlert(ctx context.Context, to, name, orderLabel, sellerName string, daysPending int) error
}

// Service manages in-app notifications and runs the pending-sale reminder
// tick.
type Service interface {
	List(ctx context.Context, input ListInput) ([]models.Notification, string, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id int64, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	ClearForSale(ctx context.Context, tx *gorm.DB, saleID int64) error
	NotifyAdminsSaleUnderReview(ctx context.Context, sale *models.Sale) error
	GenerateReminders(ctx context.Context, now time.Time) (TickSummary, error)
}

type service struct {
	repo   Repository
	sales  saleSource
	users  userDirectory
	mailer reminderMailer
	tx     txRunner
	cfg    config.ReminderConfig
	log    *logger.Logger
}

// ListInput paginates one user's notification feed.
type ListInput struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Limit      int
	Cursor     string
}

// NewService wires the notification service. The mailer may be a disabled
// no-op client; it must never be nil.
func NewService(
	repo Repository,
	sales saleSource,
	users userDirectory,
	mailer reminderMailer,
	tx txRunner,
	cfg config.ReminderConfig,
	log *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sale source required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		sales:  sales,
		users:  users,
		mailer: mailer,
		tx:     tx,
		cfg:    cfg,
		log:    log,
	}, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Notification, string, error) {
	if input.UserID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.repo.ListByUser(ctx, input.UserID, input.UnreadOnly, input.Limit, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, id int64, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if id == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	notification, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if notification.Read {
		return nil
	}
	if err := s.repo.UpdateFields(ctx, notification.ID, map[string]any{"is_read": true}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return nil
}

// ClearForSale removes every sale-linked notification, reminders and
// review alerts alike. It is idempotent and safe when none exist.
func (s *service) ClearForSale(ctx context.Context, tx *gorm.DB, saleID int64) error {
	if saleID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	types := []enums.NotificationType{
		enums.NotificationTypeSalePendingReminder,
		enums.NotificationTypeSalePendingAdminAlert,
		enums.NotificationTypeSaleUnderReview,
	}
	if err := s.repo.WithTx(tx).DeleteForSale(ctx, saleID, types); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear sale notifications")
	}
	return nil
}

// NotifyAdminsSaleUnderReview raises a "ready for review" notification for
// every administrator when a sale becomes fully paid.
func (s *service) NotifyAdminsSaleUnderReview(ctx context.Context, sale *models.Sale) error {
	if sale == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale required")
	}

	admins, err := s.users.FindAdmins(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list administrators")
	}

	title := "Venta lista para revision"
	message := fmt.Sprintf(
		"La venta %s de %s fue pagada por completo y espera revision.",
		sale.OrderLabel(), sale.CustomerName,
	)
	for _, admin := range admins {
		if _, _, err := s.ensureNotification(ctx, s.repo, ensureInput{
			userID:  admin.ID,
			sale:    sale,
			typ:     enums.NotificationTypeSaleUnderReview,
			title:   title,
			message: message,
		}); err != nil {
			return err
		}
	}
	return nil
}

type ensureInput struct {
	userID  uuid.UUID
	sale    *models.Sale
	typ     enums.NotificationType
	title   string
	message string
}

type ensureOutcome int

const (
	ensureUnchanged ensureOutcome = iota
	ensureCreated
	ensureReactivated
)

// ensureNotification finds or creates the row for one (user, sale, type)
// key, reactivating a read one. The unique index on the key backs this up
// against concurrent ticks; a duplicate insert falls back to the existing
// row.
func (s *service) ensureNotification(ctx context.Context, repo Repository, input ensureInput) (*models.Notification, ensureOutcome, error) {
	existing, err := repo.FindByKey(ctx, input.userID, input.sale.ID, input.typ)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, ensureUnchanged, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find notification")
	}

	if existing != nil {
		if existing.Read {
			existing.Read = false
			if err := repo.UpdateFields(ctx, existing.ID, map[string]any{"is_read": false}); err != nil {
				return nil, ensureUnchanged, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate notification")
			}
			return existing, ensureReactivated, nil
		}
		return existing, ensureUnchanged, nil
	}

	refID := input.sale.ID
	refDate := input.sale.OrderDate
	notification := &models.Notification{
		UserID:        input.userID,
		Type:          input.typ,
		Title:         input.title,
		Message:       input.message,
		ReferenceID:   &refID,
		ReferenceDate: &refDate,
		Read:          false,
	}
	if err := repo.Create(ctx, notification); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			existing, findErr := repo.FindByKey(ctx, input.userID, input.sale.ID, input.typ)
			if findErr != nil {
				return nil, ensureUnchanged, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload notification")
			}
			return existing, ensureUnchanged, nil
		}
		return nil, ensureUnchanged, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, ensureCreated, nil
}
