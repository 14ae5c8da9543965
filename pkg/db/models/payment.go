package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// Payment records one collection against a sale. Its lifetime is tied to
// the sale that owns it.
type Payment struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	SaleID         int64               `gorm:"column:sale_id;not null;index"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null"`
	RegisteredByID uuid.UUID           `gorm:"column:registered_by;type:uuid;not null"`
	ReceiptURL     *string             `gorm:"column:receipt_url"`
	Notes          *string             `gorm:"column:notes"`
	PaymentDate    time.Time           `gorm:"column:payment_date;autoCreateTime"`
}
