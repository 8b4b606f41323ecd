package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/pkg/db/models"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

const (
	ingestKeyHeader = "X-Ingest-Key"
	bearerPrefix    = "Bearer "
)

// TenantResolver looks up the tenant owning an ingest API key.
type TenantResolver interface {
	FindByIngestKey(ctx context.Context, apiKey string) (*models.Tenant, error)
}

// ingestKeyFrom extracts the tenant's API key from the request. Bearer tokens
// are the primary scheme; the X-Ingest-Key header remains for pixel snippets
// that cannot set an Authorization header.
func ingestKeyFrom(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	return strings.TrimSpace(r.Header.Get(ingestKeyHeader))
}

// IngestAuth authenticates tracking-pixel and webhook traffic by the tenant's
// ingest API key and seeds the request context with the tenant id.
func IngestAuth(resolver TenantResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ingestKeyFrom(r)
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing ingest key"))
				return
			}

			tenant, err := resolver.FindByIngestKey(r.Context(), key)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown ingest key"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve ingest key"))
				return
			}
			if tenant.Anonymized {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown ingest key"))
				return
			}

			ctx := WithTenantID(r.Context(), tenant.ID)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tenant.ID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
