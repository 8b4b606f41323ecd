package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionDay marks that a session produced a page view on a calendar day.
// The primary key makes the insert a one-winner claim, so concurrent first
// page views of the same session cannot double-increment the sessions
// counter.
type SessionDay struct {
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;primaryKey"`
	SessionID string    `gorm:"column:session_id;primaryKey"`
	Day       time.Time `gorm:"column:day;type:date;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (SessionDay) TableName() string {
	return "session_days"
}
