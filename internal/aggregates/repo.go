package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
	"github.com/shopsignal/attribution-backend/pkg/enums"
)

// Repository maintains the daily rollups and the raw-event counts they are
// derived from. Increment is an atomic upsert so concurrent events for the
// same (tenant, day) never lose updates.
type Repository interface {
	Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField, delta int64) error
	UpsertTotals(ctx context.Context, tenantID uuid.UUID, date time.Time, sessions, productViews int64) (*models.DailyAggregate, error)
	FindByDay(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.DailyAggregate, error)
	ListRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DailyAggregate, error)
	CountDistinctPageViewSessions(ctx context.Context, tenantID uuid.UUID, dayStart, dayEnd time.Time) (int64, error)
	CountProductViews(ctx context.Context, tenantID uuid.UUID, dayStart, dayEnd time.Time) (int64, error)
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an aggregates repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Increment(ctx context.Context, tenantID uuid.UUID, date time.Time, field enums.AggregateField, delta int64) error {
	column := field.String()
	row := &models.DailyAggregate{
		TenantID: tenantID,
		Date:     truncateToDay(date),
	}
	switch field {
	case enums.AggregateFieldSessions:
		row.Sessions = delta
	case enums.AggregateFieldProductViews:
		row.ProductViews = delta
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				column:       gorm.Expr(column+" + ?", delta),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(row).Error
}

func (r *repository) UpsertTotals(ctx context.Context, tenantID uuid.UUID, date time.Time, sessions, productViews int64) (*models.DailyAggregate, error) {
	row := &models.DailyAggregate{
		TenantID:     tenantID,
		Date:         truncateToDay(date),
		Sessions:     sessions,
		ProductViews: productViews,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"sessions":      sessions,
				"product_views": productViews,
				"updated_at":    time.Now().UTC(),
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.FindByDay(ctx, tenantID, date)
}

func (r *repository) FindByDay(ctx context.Context, tenantID uuid.UUID, date time.Time) (*models.DailyAggregate, error) {
	var row models.DailyAggregate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND date = ?", tenantID, truncateToDay(date)).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.DailyAggregate, error) {
	var rows []models.DailyAggregate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND date >= ? AND date <= ?", tenantID, truncateToDay(from), truncateToDay(to)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountDistinctPageViewSessions(ctx context.Context, tenantID uuid.UUID, dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TrackingEvent{}).
		Distinct("session_id").
		Where("tenant_id = ? AND event_type = ? AND occurred_at >= ? AND occurred_at < ?",
			tenantID, enums.EventTypePageView, dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

func (r *repository) CountProductViews(ctx context.Context, tenantID uuid.UUID, dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TrackingEvent{}).
		Where("tenant_id = ? AND event_type = ? AND occurred_at >= ? AND occurred_at < ?",
			tenantID, enums.EventTypeProductView, dayStart, dayEnd).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.DailyAggregate{})
	return result.RowsAffected, result.Error
}

func truncateToDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
