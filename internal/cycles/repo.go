package cycles

import (
	"context"

	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/pagination"
)

// Repository manages persistence for closed settlement cycles. Cycle rows
// are written once and never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cycle *models.Cycle) error
	FindByID(ctx context.Context, id int64) (*models.Cycle, error)
	List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Cycle, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cycle repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cycle *models.Cycle) error {
	return r.db.WithContext(ctx).Create(cycle).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Cycle, error) {
	var cycle models.Cycle
	if err := r.db.WithContext(ctx).First(&cycle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *repository) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Cycle, error) {
	query := r.db.WithContext(ctx).Model(&models.Cycle{})
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Cycle
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
