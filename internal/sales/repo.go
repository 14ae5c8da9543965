package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
)

// ListFilter narrows a paginated sale listing.
type ListFilter struct {
	SellerID      *uuid.UUID
	Status        *enums.SaleStatus
	PaymentStatus *enums.PaymentStatus
	Limit         int
	Cursor        *pagination.Cursor
}

// CommissionTotals aggregates a seller's commission amounts on approved
// sales, split by whether a cycle close has settled them yet.
type CommissionTotals struct {
	Settled   decimal.Decimal `json:"settled"`
	Unsettled decimal.Decimal `json:"unsettled"`
}

// Repository manages persistence for the sale aggregate. Payments are
// owned by the sale: deleting a sale removes its payments in the same
// transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id int64) (*models.Sale, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Sale, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Sale, error)
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Sale, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Sale, error)
	ListApprovedUnsettled(ctx context.Context) ([]models.Sale, error)
	StatusesByIDs(ctx context.Context, ids []int64) (map[int64]enums.SaleStatus, error)
	Save(ctx context.Context, sale *models.Sale) error
	UpdateFields(ctx context.Context, id int64, updates map[string]any) error
	MarkSettled(ctx context.Context, ids []int64) error
	Delete(ctx context.Context, id int64) error
	CommissionTotalsBySeller(ctx context.Context, sellerID uuid.UUID) (CommissionTotals, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sale repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByIDForUpdate locks the sale row for the remainder of the enclosing
// transaction. Payments are loaded separately by the caller so the lock
// clause stays on the sale row alone.
func (r *repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("Payments").
		Where("order_number = ?", orderNumber).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Sale, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Preload("Seller")

	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}

	var sales []models.Sale
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(filter.Limit)).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Where("status = ?", enums.SaleStatusPending).
		Where("order_date <= ?", cutoff).
		Order("order_date ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) ListApprovedUnsettled(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Where("status = ?", enums.SaleStatusApproved).
		Where("commission_settled = ?", false).
		Order("order_date ASC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) StatusesByIDs(ctx context.Context, ids []int64) (map[int64]enums.SaleStatus, error) {
	statuses := make(map[int64]enums.SaleStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}

	type row struct {
		ID     int64
		Status enums.SaleStatus
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("id", "status").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rec := range rows {
		statuses[rec.ID] = rec.Status
	}
	return statuses, nil
}

func (r *repository) Save(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).
		Omit("Seller", "Payments").
		Save(sale).Error
}

func (r *repository) UpdateFields(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) MarkSettled(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id IN ?", ids).
		Update("commission_settled", true).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", id).
		Delete(&models.Payment{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Sale{}).Error
}

func (r *repository) CommissionTotalsBySeller(ctx context.Context, sellerID uuid.UUID) (CommissionTotals, error) {
	type row struct {
		CommissionSettled bool
		Amount            decimal.Decimal
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("commission_settled", "COALESCE(SUM(commission_amount), 0) AS amount").
		Where("seller_id = ?", sellerID).
		Where("status = ?", enums.SaleStatusApproved).
		Group("commission_settled").
		Find(&rows).Error
	if err != nil {
		return CommissionTotals{}, err
	}

	totals := CommissionTotals{Settled: decimal.Zero, Unsettled: decimal.Zero}
	for _, rec := range rows {
		if rec.CommissionSettled {
			totals.Settled = rec.Amount
		} else {
			totals.Unsettled = rec.Amount
		}
	}
	return totals, nil
}
