package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/pkg/enums"
	"github.com/shopsignal/attribution-backend/pkg/types"
)

// TrackingEvent is an immutable fact about a storefront session. Rows are
// only ever inserted; erasure requests are the single delete path.
type TrackingEvent struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index:idx_tracking_events_session,priority:1"`
	SessionID    string           `gorm:"column:session_id;not null;index:idx_tracking_events_session,priority:2"`
	EventType    enums.EventType  `gorm:"column:event_type;type:text;not null"`
	OccurredAt   time.Time        `gorm:"column:occurred_at;not null;index:idx_tracking_events_session,priority:3"`
	URL          string           `gorm:"column:url"`
	PageTitle    *string          `gorm:"column:page_title"`
	Referrer     *string          `gorm:"column:referrer"`
	UserAgent    *string          `gorm:"column:user_agent"`
	UserID       *string          `gorm:"column:user_id;index"`
	ProductID    *string          `gorm:"column:product_id"`
	OrderID      *string          `gorm:"column:order_id"`
	CheckoutID   *string          `gorm:"column:checkout_id"`
	DiscountCode *string          `gorm:"column:discount_code"`
	Price        *decimal.Decimal `gorm:"column:price;type:numeric(18,2)"`
	Payload      types.JSONMap    `gorm:"column:payload;type:jsonb;serializer:json"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (TrackingEvent) TableName() string {
	return "tracking_events"
}
