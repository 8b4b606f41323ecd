package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/pkg/enums"
)

// TrackingAuthorization is the per-tenant consent record. One active row per
// tenant; revocation gates every subsequent tracked write.
type TrackingAuthorization struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID           `gorm:"column:tenant_id;type:uuid;uniqueIndex;not null"`
	IsTrackingEnabled bool                `gorm:"column:is_tracking_enabled;not null;default:true"`
	TrackingScope     enums.TrackingScope `gorm:"column:tracking_scope;type:text;not null;default:'basic'"`
	ConsentGivenAt    time.Time           `gorm:"column:consent_given_at;not null"`
	RevokedAt         *time.Time          `gorm:"column:revoked_at"`
	RevokedReason     *string             `gorm:"column:revoked_reason"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (TrackingAuthorization) TableName() string {
	return "tracking_authorizations"
}

// Allows reports whether tracked writes are currently permitted.
func (a *TrackingAuthorization) Allows() bool {
	if a == nil {
		return false
	}
	return a.IsTrackingEnabled && a.RevokedAt == nil
}
