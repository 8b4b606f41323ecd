package clicks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/pagination"
)

// Repository persists referral clicks. Writes are append-only here; status
// transitions belong to the attribution matcher and the abandonment sweep.
type Repository interface {
	Create(ctx context.Context, click *models.ReferralClick) (*models.ReferralClick, error)
	FindByReferralID(ctx context.Context, referralID uuid.UUID) (*models.ReferralClick, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ClickList, error)
	DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// ClickList is one cursor page of referral clicks.
type ClickList struct {
	Items      []models.ReferralClick `json:"items"`
	NextCursor string                 `json:"nextCursor,omitempty"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a clicks repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, click *models.ReferralClick) (*models.ReferralClick, error) {
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		return nil, err
	}
	return click, nil
}

func (r *repository) FindByReferralID(ctx context.Context, referralID uuid.UUID) (*models.ReferralClick, error) {
	var click models.ReferralClick
	err := r.db.WithContext(ctx).
		Where("referral_id = ?", referralID).
		First(&click).Error
	if err != nil {
		return nil, err
	}
	return &click, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (*ClickList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.ReferralClick
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &ClickList{}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}
	list.Items = rows
	return list, nil
}

func (r *repository) DeleteByUser(ctx context.Context, tenantID uuid.UUID, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Delete(&models.ReferralClick{})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.ReferralClick{})
	return result.RowsAffected, result.Error
}
