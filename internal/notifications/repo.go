package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
)

// Repository manages persistence for in-app notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	Save(ctx context.Context, notification *models.Notification) error
	UpdateFields(ctx context.Context, id int64, updates map[string]any) error
	FindByKey(ctx context.Context, userID uuid.UUID, referenceID int64, typ enums.NotificationType) (*models.Notification, error)
	FindByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int, cursor *pagination.Cursor) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	DeleteForSale(ctx context.Context, saleID int64, types []enums.NotificationType) error
	ListByTypes(ctx context.Context, types []enums.NotificationType) ([]models.Notification, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notification repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) Save(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *repository) UpdateFields(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindByKey(ctx context.Context, userID uuid.UUID, referenceID int64, typ enums.NotificationType) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("reference_id = ?", referenceID).
		Where("type = ?", typ).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *repository) FindByIDForUser(ctx context.Context, id int64, userID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int, cursor *pagination.Cursor) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID)

	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Update("is_read", true).Error
}

func (r *repository) DeleteForSale(ctx context.Context, saleID int64, types []enums.NotificationType) error {
	if len(types) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("reference_id = ?", saleID).
		Where("type IN ?", types).
		Delete(&models.Notification{}).Error
}

func (r *repository) ListByTypes(ctx context.Context, types []enums.NotificationType) ([]models.Notification, error) {
	if len(types) == 0 {
		return nil, nil
	}
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("type IN ?", types).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.Notification{}).Error
}
