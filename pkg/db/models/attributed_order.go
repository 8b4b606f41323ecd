package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributedOrder records the outcome of one order-completion notification.
// The unique (tenant_id, order_id) pair is what makes duplicate notifications
// idempotent: a second insert fails and the stored outcome is returned.
type AttributedOrder struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_attributed_orders_order,priority:1"`
	OrderID           string          `gorm:"column:order_id;not null;uniqueIndex:idx_attributed_orders_order,priority:2"`
	OrderCreatedAt    time.Time       `gorm:"column:order_created_at;not null"`
	OrderValue        decimal.Decimal `gorm:"column:order_value;type:numeric(18,2);not null"`
	Currency          string          `gorm:"column:currency;not null;default:'USD'"`
	MatchedReferralID *uuid.UUID      `gorm:"column:matched_referral_id;type:uuid"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (AttributedOrder) TableName() string {
	return "attributed_orders"
}
