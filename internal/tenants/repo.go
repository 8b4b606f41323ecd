package tenants

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/pkg/db/models"
)

// Repository exposes tenant lookups used across the engine. Resolution by
// domain backs the unauthenticated click-creation path; resolution by API key
// backs ingest authentication.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByDomain(ctx context.Context, host string) (*models.Tenant, error)
	FindByIngestKey(ctx context.Context, apiKey string) (*models.Tenant, error)
	ListActive(ctx context.Context) ([]models.Tenant, error)
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)
	Anonymize(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tenants repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) FindByDomain(ctx context.Context, host string) (*models.Tenant, error) {
	needle := strings.ToLower(host)
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Where("? = ANY(domains)", needle)
	} else {
		// sqlite stores the array column as its literal text, e.g.
		// {"a.example.com","b.example.com"}; match one quoted element.
		query = query.Where(`(',' || trim(domains, '{}') || ',') LIKE ('%,"' || ? || '",%')`, needle)
	}
	var tenant models.Tenant
	if err := query.First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) FindByIngestKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("ingest_api_key = ?", apiKey).
		First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	var rows []models.Tenant
	err := r.db.WithContext(ctx).
		Where("anonymized = ?", false).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *repository) Anonymize(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":           "anonymized",
			"domains":        pq.StringArray{},
			"ingest_api_key": "revoked:" + uuid.NewString(),
			"anonymized":     true,
		}).Error
}
