package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// User represents a seller or administrator account.
type User struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email                string          `gorm:"column:email;not null;uniqueIndex"`
	FullName             string          `gorm:"column:full_name;not null"`
	PhoneNumber          *string         `gorm:"column:phone_number;uniqueIndex"`
	Roles                pq.StringArray  `gorm:"column:roles;type:text[];default:ARRAY[]::text[]"`
	Enabled              bool            `gorm:"column:enabled;not null;default:true"`
	PendingApproval      bool            `gorm:"column:pending_approval;not null;default:true"`
	CommissionPercentage decimal.Decimal `gorm:"column:commission_percentage;type:numeric(5,2);not null;default:5.00"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRole reports whether the user carries the given role.
func (u User) HasRole(role enums.Role) bool {
	for _, r := range u.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}
