package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// Cycle is the durable snapshot of one settlement batch. Rows are written
// once at close time and never updated.
type Cycle struct {
	ID               int64             `gorm:"column:id;primaryKey;autoIncrement"`
	StartDate        time.Time         `gorm:"column:start_date;not null"`
	EndDate          time.Time         `gorm:"column:end_date;not null"`
	TotalSales       decimal.Decimal   `gorm:"column:total_sales;type:numeric(12,2);not null;default:0"`
	TotalCommissions decimal.Decimal   `gorm:"column:total_commissions;type:numeric(12,2);not null;default:0"`
	SalesCount       int               `gorm:"column:sales_count;not null;default:0"`
	ReportURL        *string           `gorm:"column:report_url;type:text"`
	Status           enums.CycleStatus `gorm:"column:status;not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
}
