package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/api/middleware"
	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/api/validators"
	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/internal/events"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/types"
)

type recordEventRequest struct {
	EventType    string           `json:"eventType" validate:"required"`
	SessionID    string           `json:"sessionId" validate:"required"`
	OccurredAt   *time.Time       `json:"occurredAt,omitempty"`
	URL          string           `json:"url,omitempty"`
	PageTitle    *string          `json:"pageTitle,omitempty"`
	Referrer     *string          `json:"referrer,omitempty"`
	UserAgent    *string          `json:"userAgent,omitempty"`
	UserID       *string          `json:"userId,omitempty"`
	ProductID    *string          `json:"productId,omitempty"`
	OrderID      *string          `json:"orderId,omitempty"`
	CheckoutID   *string          `json:"checkoutId,omitempty"`
	DiscountCode *string          `json:"discountCode,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Payload      types.JSONMap    `json:"payload,omitempty"`
}

type recordEventResponse struct {
	Tracked bool                     `json:"tracked"`
	EventID *uuid.UUID               `json:"eventId,omitempty"`
	Match   *attribution.MatchResult `json:"match,omitempty"`
}

// EventRecord ingests one tracking event for the authenticated tenant. A
// consent-denied write still returns 200 so storefront pixels never retry.
func EventRecord(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event intake unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		var req recordEventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := events.RecordEventInput{
			TenantID:     tenantID,
			EventType:    req.EventType,
			SessionID:    req.SessionID,
			URL:          req.URL,
			PageTitle:    req.PageTitle,
			Referrer:     req.Referrer,
			UserAgent:    req.UserAgent,
			UserID:       req.UserID,
			ProductID:    req.ProductID,
			OrderID:      req.OrderID,
			CheckoutID:   req.CheckoutID,
			DiscountCode: req.DiscountCode,
			Price:        req.Price,
			Payload:      req.Payload,
		}
		if req.OccurredAt != nil {
			input.OccurredAt = *req.OccurredAt
		}

		result, err := svc.RecordEvent(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.ConsentDenied {
			responses.WriteSuccess(w, recordEventResponse{Tracked: false})
			return
		}
		responses.WriteSuccess(w, recordEventResponse{
			Tracked: true,
			EventID: &result.EventID,
			Match:   result.Match,
		})
	}
}
