package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
)

// Repository persists tracking events. Rows are insert-only; erasure is the
// single delete path.
type Repository interface {
	Create(ctx context.Context, event *models.TrackingEvent) (*models.TrackingEvent, error)
	ClaimSessionDay(ctx context.Context, tenantID uuid.UUID, sessionID string, day time.Time) (bool, error)
	DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an events repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *models.TrackingEvent) (*models.TrackingEvent, error) {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// ClaimSessionDay records the (tenant, session, day) marker behind the
// sessions counter. The conflict-free insert decides the winner, so exactly
// one caller per marker sees true even under concurrent page views.
func (r *repository) ClaimSessionDay(ctx context.Context, tenantID uuid.UUID, sessionID string, day time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SessionDay{
			TenantID:  tenantID,
			SessionID: sessionID,
			Day:       day,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Delete(&models.TrackingEvent{})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.TrackingEvent{})
	if result.Error != nil {
		return result.RowsAffected, result.Error
	}
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.SessionDay{}).Error
	return result.RowsAffected, err
}
