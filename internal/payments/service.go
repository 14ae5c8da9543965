package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type saleLifecycle interface {
	MarkFullyPaid(ctx context.Context, tx *gorm.DB, sale *models.Sale) error
}

type saleNotifier interface {
	ClearForSale(ctx context.Context, tx *gorm.DB, saleID int64) error
	NotifyAdminsSaleUnderReview(ctx context.Context, sale *models.Sale) error
}

type receiptStore interface {
	Store(ctx context.Context, data []byte, name, folder, contentType string) (string, error)
}

// Service is the payment ledger: it reconciles collections against a
// sale's total and drives the fully-paid transition.
type Service interface {
	Add(ctx context.Context, input AddInput) (*models.Payment, error)
	Delete(ctx context.Context, input DeleteInput) error
	ListBySale(ctx context.Context, saleID int64, actor types.Actor) ([]models.Payment, error)
}

type service struct {
	repo      Repository
	salesRepo sales.Repository
	lifecycle saleLifecycle
	notifier  saleNotifier
	receipts  receiptStore
	tx        txRunner
	log       *logger.Logger
}

// AddInput registers one collection against a sale. Receipt bytes, when
// present, are stored before the transaction and only the locator is kept.
type AddInput struct {
	SaleID             int64
	Actor              types.Actor
	Amount             decimal.Decimal
	Method             enums.PaymentMethod
	Notes              *string
	ReceiptData        []byte
	ReceiptContentType string
}

// DeleteInput removes a payment from a still-modifiable sale.
type DeleteInput struct {
	PaymentID int64
	SaleID    int64
	SellerID  uuid.UUID
}

// NewService wires the payment ledger with its dependencies. The receipt
// store may be nil when artifact storage is not configured.
func NewService(
	repo Repository,
	salesRepo sales.Repository,
	lifecycle saleLifecycle,
	notifier saleNotifier,
	receipts receiptStore,
	tx txRunner,
	log *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if salesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("sale lifecycle required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("sale notifier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		salesRepo: salesRepo,
		lifecycle: lifecycle,
		notifier:  notifier,
		receipts:  receipts,
		tx:        tx,
		log:       log,
	}, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.Payment, error) {
	if input.SaleID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}

	receiptURL := s.storeReceipt(ctx, input)

	var payment *models.Payment
	var fullyPaidSale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		saleRepo := s.salesRepo.WithTx(tx)
		repo := s.repo.WithTx(tx)

		sale, err := saleRepo.FindByIDForUpdate(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if !input.Actor.IsAdmin() && sale.SellerID != input.Actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to seller")
		}
		if sale.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already fully paid")
		}

		currentSum, err := repo.SumBySale(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
		}
		newSum := currentSum.Add(input.Amount)
		if newSum.GreaterThan(sale.Total) {
			remaining := sale.Total.Sub(currentSum)
			return pkgerrors.New(
				pkgerrors.CodeOverpayment,
				fmt.Sprintf("payment exceeds sale total, remaining balance is %s", remaining.StringFixed(2)),
			).WithDetails(map[string]any{
				"remaining_balance": remaining.StringFixed(2),
			})
		}

		payment = &models.Payment{
			SaleID:         sale.ID,
			Amount:         input.Amount,
			PaymentMethod:  input.Method,
			RegisteredByID: input.Actor.ID,
			ReceiptURL:     receiptURL,
			Notes:          input.Notes,
		}
		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
		}

		if newSum.Equal(sale.Total) {
			if err := s.lifecycle.MarkFullyPaid(ctx, tx, sale); err != nil {
				return err
			}
			if err := s.notifier.ClearForSale(ctx, tx, sale.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear sale reminders")
			}
			fullyPaidSale = sale
			return nil
		}

		if err := saleRepo.UpdateFields(ctx, sale.ID, map[string]any{
			"payment_status": enums.PaymentStatusPartiallyPaid,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		sale.PaymentStatus = enums.PaymentStatusPartiallyPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The admin "ready for review" signal runs after commit so a
	// notification hiccup cannot roll back an accepted payment.
	if fullyPaidSale != nil {
		if err := s.notifier.NotifyAdminsSaleUnderReview(ctx, fullyPaidSale); err != nil {
			s.log.Error(s.log.WithSaleID(ctx, fullyPaidSale.ID), "notify admins of sale under review", err)
		}
	}
	return payment, nil
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.PaymentID == 0 || input.SaleID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment and sale ids required")
	}
	if input.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		saleRepo := s.salesRepo.WithTx(tx)
		repo := s.repo.WithTx(tx)

		sale, err := saleRepo.FindByIDForUpdate(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}

		payment, err := repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.SaleID != sale.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment does not belong to sale")
		}
		if sale.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to seller")
		}
		if !sale.CanModify() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale can no longer be modified")
		}

		if err := repo.Delete(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}

		remaining, err := repo.SumBySale(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum remaining payments")
		}

		// Payment status is recomputed from the remaining sum; the sale
		// status itself is never touched here.
		if err := saleRepo.UpdateFields(ctx, sale.ID, map[string]any{
			"payment_status": derivePaymentStatus(remaining, sale.Total),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		return nil
	})
}

func (s *service) ListBySale(ctx context.Context, saleID int64, actor types.Actor) ([]models.Payment, error) {
	if saleID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	sale, err := s.salesRepo.FindByID(ctx, saleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	if !actor.IsAdmin() && sale.SellerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sale does not belong to seller")
	}

	rows, err := s.repo.ListBySale(ctx, saleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

// storeReceipt uploads receipt bytes ahead of the ledger transaction. A
// storage failure is logged and the payment proceeds without a locator.
func (s *service) storeReceipt(ctx context.Context, input AddInput) *string {
	if len(input.ReceiptData) == 0 || s.receipts == nil {
		return nil
	}

	contentType := input.ReceiptContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := fmt.Sprintf("receipt-%d-%d", input.SaleID, time.Now().UnixNano())
	folder := fmt.Sprintf("receipts/sale-%d", input.SaleID)

	locator, err := s.receipts.Store(ctx, input.ReceiptData, name, folder, contentType)
	if err != nil {
		s.log.Error(s.log.WithSaleID(ctx, input.SaleID), "store payment receipt", err)
		return nil
	}
	return &locator
}

func derivePaymentStatus(sum, total decimal.Decimal) enums.PaymentStatus {
	switch {
	case sum.GreaterThanOrEqual(total):
		return enums.PaymentStatusPaid
	case sum.IsPositive():
		return enums.PaymentStatusPartiallyPaid
	default:
		return enums.PaymentStatusUnpaid
	}
}
