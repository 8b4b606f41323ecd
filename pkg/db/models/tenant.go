package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Tenant is an isolated storefront account. Every other row carries a tenant
// id; nothing may be read or written across tenants.
type Tenant struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Domains      pq.StringArray `gorm:"column:domains;type:text[];not null"`
	IngestAPIKey string         `gorm:"column:ingest_api_key;uniqueIndex;not null"`
	Anonymized   bool           `gorm:"column:anonymized;not null;default:false"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// HasDomain reports whether the tenant has registered the given host.
func (t *Tenant) HasDomain(host string) bool {
	for _, domain := range t.Domains {
		if domain == host {
			return true
		}
	}
	return false
}
