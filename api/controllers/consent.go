package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/api/middleware"
	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/api/validators"
	"github.com/shopsignal/attribution-backend/internal/consent"
	"github.com/shopsignal/attribution-backend/pkg/enums"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

type grantConsentRequest struct {
	TrackingScope string `json:"trackingScope" validate:"required"`
}

type updateConsentRequest struct {
	IsTrackingEnabled *bool   `json:"isTrackingEnabled,omitempty"`
	TrackingScope     *string `json:"trackingScope,omitempty"`
}

type revokeConsentRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ConsentGet returns the tenant's tracking authorization.
func ConsentGet(svc consent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := requireTenant(w, r, svc != nil, logg)
		if !ok {
			return
		}
		dto, err := svc.Get(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ConsentGrant creates or re-enables the tenant's tracking authorization.
func ConsentGrant(svc consent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := requireTenant(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var req grantConsentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope, err := enums.ParseTrackingScope(req.TrackingScope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tracking scope"))
			return
		}

		dto, err := svc.Grant(r.Context(), tenantID, scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ConsentUpdate changes the enabled flag or scope of an existing
// authorization.
func ConsentUpdate(svc consent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := requireTenant(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var req updateConsentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateScope(r.Context(), tenantID, consent.UpdateScopeInput{
			IsTrackingEnabled: req.IsTrackingEnabled,
			TrackingScope:     req.TrackingScope,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ConsentRevoke disables tracking for the tenant. Stored rows are untouched;
// new writes stop immediately.
func ConsentRevoke(svc consent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := requireTenant(w, r, svc != nil, logg)
		if !ok {
			return
		}

		var req revokeConsentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Revoke(r.Context(), tenantID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func requireTenant(w http.ResponseWriter, r *http.Request, svcReady bool, logg *logger.Logger) (uuid.UUID, bool) {
	if !svcReady {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "consent service unavailable"))
		return uuid.Nil, false
	}
	tenantID := middleware.TenantIDFromContext(r.Context())
	if tenantID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
		return uuid.Nil, false
	}
	return tenantID, true
}
