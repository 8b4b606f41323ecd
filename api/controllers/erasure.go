package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/api/validators"
	"github.com/shopsignal/attribution-backend/internal/erasure"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

type eraseUserRequest struct {
	TenantID string `json:"tenantId" validate:"required,uuid"`
	UserID   string `json:"userId" validate:"required"`
}

type eraseTenantRequest struct {
	TenantID string `json:"tenantId" validate:"required,uuid"`
}

// ErasureUser removes all rows referencing a user identifier within a tenant.
func ErasureUser(svc erasure.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "erasure service unavailable"))
			return
		}

		var req eraseUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := uuid.Parse(strings.TrimSpace(req.TenantID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id"))
			return
		}

		report, err := svc.DeleteByUser(r.Context(), tenantID, req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ErasureTenant removes all tenant-scoped rows and anonymizes the tenant.
func ErasureTenant(svc erasure.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "erasure service unavailable"))
			return
		}

		var req eraseTenantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := uuid.Parse(strings.TrimSpace(req.TenantID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id"))
			return
		}

		report, err := svc.DeleteTenant(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
