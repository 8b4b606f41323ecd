package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/api/middleware"
	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/api/validators"
	"github.com/shopsignal/attribution-backend/internal/aggregates"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

// AggregatesList returns the tenant's daily rollups for a date range.
// Defaults cover the trailing 30 days.
func AggregatesList(svc aggregates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "aggregates service unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		today := time.Now().UTC().Truncate(24 * time.Hour)
		from, err := validators.ParseQueryDate(r, "from", today.AddDate(0, 0, -30))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to", today)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), tenantID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}
