package attribution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
)

// Repository exposes the matcher's storage operations. ClaimPending is the
// single conditional write in the system: it only succeeds while the click is
// still pending, so two racing notifications can never both convert it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPendingClicks(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReferralClick, error)
	ClaimPending(ctx context.Context, clickID uuid.UUID, value decimal.Decimal, at time.Time) (bool, error)
	FindAttributedOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (*models.AttributedOrder, error)
	CreateAttributedOrder(ctx context.Context, order *models.AttributedOrder) (*models.AttributedOrder, error)
	MarkAbandonedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an attribution repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPendingClicks(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.ReferralClick, error) {
	var clicks []models.ReferralClick
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND conversion_status = ?", tenantID, enums.ConversionStatusPending).
		Order("clicked_at DESC").
		Limit(limit).
		Find(&clicks).Error
	if err != nil {
		return nil, err
	}
	return clicks, nil
}

func (r *repository) ClaimPending(ctx context.Context, clickID uuid.UUID, value decimal.Decimal, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReferralClick{}).
		Where("id = ? AND conversion_status = ?", clickID, enums.ConversionStatusPending).
		Updates(map[string]any{
			"conversion_status": enums.ConversionStatusConverted,
			"conversion_value":  value,
			"converted_at":      at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindAttributedOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (*models.AttributedOrder, error) {
	var order models.AttributedOrder
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CreateAttributedOrder(ctx context.Context, order *models.AttributedOrder) (*models.AttributedOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) MarkAbandonedBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	// Subquery keeps the batched UPDATE portable across postgres and sqlite.
	sub := r.db.
		Model(&models.ReferralClick{}).
		Select("id").
		Where("conversion_status = ? AND clicked_at < ?", enums.ConversionStatusPending, cutoff).
		Limit(batchSize)

	result := r.db.WithContext(ctx).
		Model(&models.ReferralClick{}).
		Where("id IN (?)", sub).
		Update("conversion_status", enums.ConversionStatusAbandoned)
	return result.RowsAffected, result.Error
}
