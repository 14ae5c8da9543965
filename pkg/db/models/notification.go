package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// Notification stores an in-app notification for one user. Reminder
// notifications are keyed logically by (user, reference sale, type); at
// most one row per key is active at a time.
type Notification struct {
	ID      int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID  uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type    enums.NotificationType `gorm:"column:type;not null"`
	Title   string                 `gorm:"column:title;not null"`
	Message string                 `gorm:"column:message;not null"`

	// ReferenceID points at the sale the notification is about.
	ReferenceID   *int64     `gorm:"column:reference_id"`
	ReferenceDate *time.Time `gorm:"column:reference_date"`

	Read bool `gorm:"column:is_read;not null;default:false"`

	// LastEmailSentAt gates email escalation independently of the in-app
	// read flag.
	LastEmailSentAt *time.Time `gorm:"column:last_email_sent_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
