package payments

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
)

// Repository manages persistence for payment rows. Sales own their
// payments; every mutation here runs inside a transaction that holds the
// sale row lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id int64) (*models.Payment, error)
	ListBySale(ctx context.Context, saleID int64) ([]models.Payment, error)
	SumBySale(ctx context.Context, saleID int64) (decimal.Decimal, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListBySale(ctx context.Context, saleID int64) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("payment_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumBySale(ctx context.Context, saleID int64) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("SUM(amount)").
		Where("sale_id = ?", saleID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Payment{}).Error
}
