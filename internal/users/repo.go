// Package users exposes read access to the seller/admin directory.
package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
)

// Repository reads user accounts. The reconciliation engine never writes
// users; registration and approval live elsewhere.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAdmins(ctx context.Context) ([]models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	if err := r.db.WithContext(ctx).
		Where("? = ANY(roles)", string(enums.RoleAdmin)).
		Where("enabled = ?", true).
		Order("created_at ASC").
		Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}
