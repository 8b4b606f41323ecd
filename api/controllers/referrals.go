package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shopsignal/attribution-backend/api/middleware"
	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/api/validators"
	"github.com/shopsignal/attribution-backend/internal/clicks"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/pagination"
)

type createReferralRequest struct {
	TenantID    *string `json:"tenantId,omitempty" validate:"omitempty,uuid"`
	TargetURL   string  `json:"targetUrl" validate:"required"`
	SourceURL   *string `json:"sourceUrl,omitempty"`
	ProductName *string `json:"productName,omitempty"`
	UTMSource   string  `json:"utmSource,omitempty"`
	UTMMedium   string  `json:"utmMedium,omitempty"`
	UTMCampaign string  `json:"utmCampaign,omitempty"`
	UserID      *string `json:"userId,omitempty"`
}

type createReferralResponse struct {
	Tracked      bool       `json:"tracked"`
	ReferralID   *uuid.UUID `json:"referralId,omitempty"`
	TrackableURL string     `json:"trackableUrl,omitempty"`
}

// ReferralCreate registers an outbound referral click and returns the
// trackable URL. When the tenant's consent gate is closed the click is not
// stored and the response carries tracked=false with a 200.
func ReferralCreate(svc clicks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "click registry unavailable"))
			return
		}

		var req createReferralRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := clicks.CreateClickInput{
			TargetURL:   req.TargetURL,
			SourceURL:   req.SourceURL,
			ProductName: req.ProductName,
			UTMSource:   req.UTMSource,
			UTMMedium:   req.UTMMedium,
			UTMCampaign: req.UTMCampaign,
			UserID:      req.UserID,
		}
		if req.TenantID != nil {
			tid, err := uuid.Parse(strings.TrimSpace(*req.TenantID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id"))
				return
			}
			input.TenantID = &tid
		}

		result, err := svc.CreateClick(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.ConsentDenied {
			responses.WriteSuccess(w, createReferralResponse{Tracked: false})
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createReferralResponse{
			Tracked:      true,
			ReferralID:   &result.ReferralID,
			TrackableURL: result.TrackableURL,
		})
	}
}

// ReferralList returns the authenticated tenant's clicks, newest first.
func ReferralList(svc clicks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "click registry unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), tenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
