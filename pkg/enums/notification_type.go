package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeSalePendingReminder   NotificationType = "SALE_PENDING_REMINDER"
	NotificationTypeSalePendingAdminAlert NotificationType = "SALE_PENDING_ADMIN_ALERT"
	NotificationTypeSaleUnderReview       NotificationType = "SALE_UNDER_REVIEW"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeSalePendingReminder,
	NotificationTypeSalePendingAdminAlert,
	NotificationTypeSaleUnderReview,
}

// ReminderNotificationTypes are the types managed by the reminder engine.
// Orphan cleanup only ever touches these.
var ReminderNotificationTypes = []NotificationType{
	NotificationTypeSalePendingReminder,
	NotificationTypeSalePendingAdminAlert,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
