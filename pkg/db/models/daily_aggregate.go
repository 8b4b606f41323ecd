package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyAggregate is the derived per-tenant per-day rollup. It must always be
// reproducible from tracking_events.
type DailyAggregate struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_daily_aggregates_day,priority:1"`
	Date         time.Time `gorm:"column:date;type:date;not null;uniqueIndex:idx_daily_aggregates_day,priority:2"`
	Sessions     int64     `gorm:"column:sessions;not null;default:0"`
	ProductViews int64     `gorm:"column:product_views;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (DailyAggregate) TableName() string {
	return "daily_aggregates"
}
