package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/pkg/enums"
)

// ReferralClick records one outbound click toward a tenant storefront. Only
// the attribution matcher (conversion) and the abandonment sweep mutate it
// after creation.
type ReferralClick struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferralID       uuid.UUID              `gorm:"column:referral_id;type:uuid;uniqueIndex;not null"`
	TenantID         uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null;index:idx_referral_clicks_match,priority:1"`
	TargetURL        string                 `gorm:"column:target_url;not null"`
	SourceURL        *string                `gorm:"column:source_url"`
	ProductName      *string                `gorm:"column:product_name"`
	UTMSource        string                 `gorm:"column:utm_source;not null"`
	UTMMedium        string                 `gorm:"column:utm_medium;not null"`
	UTMCampaign      string                 `gorm:"column:utm_campaign;not null"`
	UserID           *string                `gorm:"column:user_id;index"`
	ClickedAt        time.Time              `gorm:"column:clicked_at;not null;index:idx_referral_clicks_match,priority:3"`
	ConversionStatus enums.ConversionStatus `gorm:"column:conversion_status;type:text;not null;default:'pending';index:idx_referral_clicks_match,priority:2"`
	ConversionValue  *decimal.Decimal       `gorm:"column:conversion_value;type:numeric(18,2)"`
	ConvertedAt      *time.Time             `gorm:"column:converted_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReferralClick) TableName() string {
	return "referral_clicks"
}
