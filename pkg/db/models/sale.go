package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// Sale is the aggregate root of the reconciliation engine. It owns its
// Payments: loading, persisting and deleting go through one repository
// boundary, and deleting a sale deletes its payments in the same
// transaction.
type Sale struct {
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SellerID uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Seller   *User     `gorm:"foreignKey:SellerID"`

	// OrderNumber is optional but unique when present. It is trimmed
	// before both the uniqueness check and storage.
	OrderNumber *string `gorm:"column:order_number;uniqueIndex"`

	CustomerName     string  `gorm:"column:customer_name;not null"`
	CustomerIDNumber *string `gorm:"column:customer_id_number"`
	CustomerAddress  *string `gorm:"column:customer_address;type:text"`
	CustomerCity     *string `gorm:"column:customer_city"`
	CustomerPhone    *string `gorm:"column:customer_phone"`
	CustomerEmail    *string `gorm:"column:customer_email"`

	// Total is the authoritative amount to be collected. Subtotal and
	// shipping are informational and not enforced to sum to it.
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping decimal.Decimal `gorm:"column:shipping;type:numeric(12,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	CommissionPercentage decimal.Decimal `gorm:"column:commission_percentage;type:numeric(5,2);not null;default:0"`
	CommissionAmount     decimal.Decimal `gorm:"column:commission_amount;type:numeric(12,2);not null;default:0"`
	CommissionSettled    bool            `gorm:"column:commission_settled;not null;default:false"`

	Status          enums.SaleStatus    `gorm:"column:status;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null"`
	RejectionReason *string             `gorm:"column:rejection_reason"`

	// OrderDate is the business date of the sale; cycle aggregation and
	// reminder aging both key off it.
	OrderDate time.Time `gorm:"column:order_date;not null"`

	ReportPDFURL *string `gorm:"column:report_pdf_url;type:text"`

	Payments []Payment `gorm:"foreignKey:SaleID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CanModify reports whether sellers may still edit the sale or its
// payments. Only PENDING and REJECTED sales are modifiable.
func (s Sale) CanModify() bool {
	return s.Status == enums.SaleStatusPending || s.Status == enums.SaleStatusRejected
}

// OrderLabel is the human-facing identifier used in notifications: the
// order number when present, otherwise "#<id>".
func (s Sale) OrderLabel() string {
	if s.OrderNumber != nil && *s.OrderNumber != "" {
		return *s.OrderNumber
	}
	return "#" + strconv.FormatInt(s.ID, 10)
}
