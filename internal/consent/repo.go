package consent

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
)

// Repository stores per-tenant tracking authorizations.
type Repository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.TrackingAuthorization, error)
	Create(ctx context.Context, auth *models.TrackingAuthorization) (*models.TrackingAuthorization, error)
	Update(ctx context.Context, tenantID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a consent repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.TrackingAuthorization, error) {
	var auth models.TrackingAuthorization
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&auth).Error
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

func (r *repository) Create(ctx context.Context, auth *models.TrackingAuthorization) (*models.TrackingAuthorization, error) {
	if err := r.db.WithContext(ctx).Create(auth).Error; err != nil {
		return nil, err
	}
	return auth, nil
}

func (r *repository) Update(ctx context.Context, tenantID uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.TrackingAuthorization{}).
		Where("tenant_id = ?", tenantID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
