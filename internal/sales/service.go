package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type reminderClearer interface {
	ClearForSale(ctx context.Context, tx *gorm.DB, saleID int64) error
}

// Service defines sale lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Sale, error)
	GetByID(ctx context.Context, saleID int64, actor types.Actor) (*models.Sale, error)
	GetByOrderNumber(ctx context.Context, orderNumber string, actor types.Actor) (*models.Sale, error)
	List(ctx context.Context, input ListInput) ([]models.Sale, string, error)
	Review(ctx context.Context, input ReviewInput) (*models.Sale, error)
	Delete(ctx context.Context, saleID int64, actorID uuid.UUID) error
	MarkFullyPaid(ctx context.Context, tx *gorm.DB, sale *models.Sale) error
	CommissionSummary(ctx context.Context, sellerID uuid.UUID) (CommissionTotals, error)
}

type service struct {
	repo      Repository
	users     userDirectory
	tx        txRunner
	reminders reminderClearer
	now       func() time.Time
}

// CreateInput captures everything a new sale needs. SellerID is the acting
// seller; the commission percentage is snapshotted from their profile.
type CreateInput struct {
	SellerID         uuid.UUID
	OrderNumber      *string
	CustomerName     string
	CustomerIDNumber *string
	CustomerAddress  *string
	CustomerCity     *string
	CustomerPhone    *string
	CustomerEmail    *string
	Subtotal         decimal.Decimal
	Shipping         decimal.Decimal
	Total            decimal.Decimal
	OrderDate        *time.Time
}

// ListInput narrows and paginates a sale listing for one actor.
type ListInput struct {
	Actor         types.Actor
	SellerID      *uuid.UUID
	Status        *enums.SaleStatus
	PaymentStatus *enums.PaymentStatus
	Limit         int
	Cursor        string
}

// ReviewInput carries an administrative decision over a fully paid sale.
type ReviewInput struct {
	SaleID          int64
	Actor           types.Actor
	Approved        bool
	RejectionReason string
}

// NewService wires a sale service with the required dependencies.
func NewService(repo Repository, users userDirectory, tx txRunner, reminders reminderClearer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder clearer required")
	}
	return &service{
		repo:      repo,
		users:     users,
		tx:        tx,
		reminders: reminders,
		now:       time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Sale, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if !input.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale total must be positive")
	}

	seller, err := s.users.FindByID(ctx, input.SellerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	orderNumber := normalizeOrderNumber(input.OrderNumber)
	if orderNumber != nil {
		exists, err := s.repo.OrderNumberExists(ctx, *orderNumber)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if exists {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order number already in use")
		}
	}

	percentage := seller.CommissionPercentage
	if percentage.IsZero() {
		percentage = DefaultCommissionPercentage
	}

	orderDate := s.now()
	if input.OrderDate != nil && !input.OrderDate.IsZero() {
		orderDate = *input.OrderDate
	}

	sale := &models.Sale{
		SellerID:             input.SellerID,
		OrderNumber:          orderNumber,
		CustomerName:         strings.TrimSpace(input.CustomerName),
		CustomerIDNumber:     input.CustomerIDNumber,
		CustomerAddress:      input.CustomerAddress,
		CustomerCity:         input.CustomerCity,
		CustomerPhone:        input.CustomerPhone,
		CustomerEmail:        input.CustomerEmail,
		Subtotal:             input.Subtotal,
		Shipping:             input.Shipping,
		Total:                input.Total,
		CommissionPercentage: percentage,
		CommissionAmount:     decimal.Zero,
		CommissionSettled:    false,
		Status:               enums.SaleStatusPending,
		PaymentStatus:        enums.PaymentStatusUnpaid,
		OrderDate:            orderDate,
	}

	if err := s.repo.Create(ctx, sale); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order number already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist sale")
	}
	sale.Seller = seller
	return sale, nil
}

func (s *service) GetByID(ctx context.Context, saleID int64, actor types.Actor) (*models.Sale, error) {
	sale, err := s.loadSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && sale.SellerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to seller")
	}
	return sale, nil
}

func (s *service) GetByOrderNumber(ctx context.Context, orderNumber string, actor types.Actor) (*models.Sale, error) {
	trimmed := strings.TrimSpace(orderNumber)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}

	sale, err := s.repo.FindByOrderNumber(ctx, trimmed)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	if !actor.IsAdmin() && sale.SellerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to seller")
	}
	return sale, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Sale, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	filter := ListFilter{
		SellerID:      input.SellerID,
		Status:        input.Status,
		PaymentStatus: input.PaymentStatus,
		Limit:         input.Limit,
		Cursor:        cursor,
	}
	// Sellers only ever see their own sales regardless of the filter.
	if !input.Actor.IsAdmin() {
		sellerID := input.Actor.ID
		filter.SellerID = &sellerID
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
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

func (s *service) Review(ctx context.Context, input ReviewInput) (*models.Sale, error) {
	if input.SaleID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators review sales")
	}
	reason := strings.TrimSpace(input.RejectionReason)
	if !input.Approved && reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	var reviewed *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.FindByIDForUpdate(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale.Status != enums.SaleStatusUnderReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is not under review")
		}

		if input.Approved {
			sale.Status = enums.SaleStatusApproved
			sale.RejectionReason = nil
		} else {
			sale.Status = enums.SaleStatusRejected
			sale.RejectionReason = &reason
			sale.CommissionAmount = decimal.Zero
			sale.CommissionSettled = false
		}

		if err := repo.Save(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist review decision")
		}
		if err := s.reminders.ClearForSale(ctx, tx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear sale reminders")
		}
		reviewed = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

func (s *service) Delete(ctx context.Context, saleID int64, actorID uuid.UUID) error {
	if saleID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.FindByIDForUpdate(ctx, saleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale.SellerID != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to seller")
		}
		if !sale.CanModify() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale can no longer be modified")
		}

		if err := s.reminders.ClearForSale(ctx, tx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear sale reminders")
		}
		if err := repo.Delete(ctx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete sale")
		}
		return nil
	})
}

// MarkFullyPaid applies the fully-paid transition inside the caller's
// transaction: payment status flips to PAID, the sale enters review and the
// commission is computed from the snapshotted percentage. Settlement stays
// untouched; that happens only at cycle close.
func (s *service) MarkFullyPaid(ctx context.Context, tx *gorm.DB, sale *models.Sale) error {
	if sale == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale required")
	}

	sale.PaymentStatus = enums.PaymentStatusPaid
	sale.Status = enums.SaleStatusUnderReview
	sale.CommissionAmount = CalculateCommission(sale.Total, sale.CommissionPercentage)

	if err := s.repo.WithTx(tx).Save(ctx, sale); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist fully paid sale")
	}
	return nil
}

func (s *service) CommissionSummary(ctx context.Context, sellerID uuid.UUID) (CommissionTotals, error) {
	if sellerID == uuid.Nil {
		return CommissionTotals{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	totals, err := s.repo.CommissionTotalsBySeller(ctx, sellerID)
	if err != nil {
		return CommissionTotals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate commissions")
	}
	return totals, nil
}

func (s *service) loadSale(ctx context.Context, saleID int64) (*models.Sale, error) {
	if saleID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

func normalizeOrderNumber(orderNumber *string) *string {
	if orderNumber == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*orderNumber)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
