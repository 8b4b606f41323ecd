package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
)

func setupTenantsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS tenants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  domains TEXT NOT NULL DEFAULT '{}',
  ingest_api_key TEXT NOT NULL UNIQUE,
  anonymized INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newTenant(t *testing.T, db *gorm.DB, name, apiKey string, domains ...string) *models.Tenant {
	t.Helper()

	now := time.Now().UTC()
	tenant := &models.Tenant{
		ID:           uuid.New(),
		Name:         name,
		Domains:      pq.StringArray(domains),
		IngestAPIKey: apiKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func TestRepositoryFindByDomain(t *testing.T) {
	db := setupTenantsTestDB(t)
	repo := NewRepository(db)

	want := newTenant(t, db, "acme", "sk_live_acme", "acme.example.com", "shop.acme.example.com")
	newTenant(t, db, "other", "sk_live_other", "other.example.com")

	found, err := repo.FindByDomain(context.Background(), "shop.acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, want.ID, found.ID)

	// Hosts arrive in whatever casing the browser sent.
	found, err = repo.FindByDomain(context.Background(), "ACME.example.com")
	require.NoError(t, err)
	assert.Equal(t, want.ID, found.ID)

	_, err = repo.FindByDomain(context.Background(), "example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// A partial host must not match a longer registered domain.
	_, err = repo.FindByDomain(context.Background(), "acme.example")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindByIngestKey(t *testing.T) {
	db := setupTenantsTestDB(t)
	repo := NewRepository(db)

	want := newTenant(t, db, "acme-keys", "sk_live_keyed", "keyed.example.com")

	found, err := repo.FindByIngestKey(context.Background(), "sk_live_keyed")
	require.NoError(t, err)
	assert.Equal(t, want.ID, found.ID)

	_, err = repo.FindByIngestKey(context.Background(), "sk_live_unknown")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryAnonymize(t *testing.T) {
	db := setupTenantsTestDB(t)
	repo := NewRepository(db)

	tenant := newTenant(t, db, "fading", "sk_live_fading", "fading.example.com")

	require.NoError(t, repo.Anonymize(context.Background(), tenant.ID))

	after, err := repo.FindByID(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.True(t, after.Anonymized)
	assert.Equal(t, "anonymized", after.Name)
	assert.Empty(t, []string(after.Domains))
	assert.NotEqual(t, tenant.IngestAPIKey, after.IngestAPIKey)

	_, err = repo.FindByDomain(context.Background(), "fading.example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	for _, row := range active {
		assert.NotEqual(t, tenant.ID, row.ID)
	}
}
