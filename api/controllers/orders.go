package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsignal/attribution-backend/api/middleware"
	"github.com/shopsignal/attribution-backend/api/responses"
	"github.com/shopsignal/attribution-backend/api/validators"
	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/pkg/commerce"
	pkgerrors "github.com/shopsignal/attribution-backend/pkg/errors"
	"github.com/shopsignal/attribution-backend/pkg/logger"
)

// OrderFetcher loads order details from the commerce platform when the
// webhook notification is thin.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, shopDomain, orderID string) (*commerce.OrderDetail, error)
}

type orderWebhookRequest struct {
	OrderID    string           `json:"orderId" validate:"required"`
	CreatedAt  *time.Time       `json:"createdAt,omitempty"`
	TotalPrice *decimal.Decimal `json:"totalPrice,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	ShopDomain string           `json:"shopDomain,omitempty"`
}

// OrderWebhook receives order-completion notifications and runs the
// attribution matcher. Redeliveries of the same orderId collapse onto the
// stored outcome, so commerce platforms may retry freely.
func OrderWebhook(matcher attribution.Service, fetcher OrderFetcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if matcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution matcher unavailable"))
			return
		}

		tenantID := middleware.TenantIDFromContext(r.Context())
		if tenantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing"))
			return
		}

		var req orderWebhookRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := attribution.MatchInput{
			TenantID: tenantID,
			OrderID:  strings.TrimSpace(req.OrderID),
			Currency: req.Currency,
		}
		if req.CreatedAt != nil {
			input.OrderCreatedAt = *req.CreatedAt
		}
		if req.TotalPrice != nil {
			input.OrderValue = *req.TotalPrice
		}

		// Thin notifications carry only the order id; pull the rest from the
		// commerce platform when a shop domain is available.
		if (req.CreatedAt == nil || req.TotalPrice == nil) && fetcher != nil && req.ShopDomain != "" {
			detail, err := fetcher.FetchOrder(r.Context(), req.ShopDomain, input.OrderID)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "order enrichment failed; using notification fields", err)
				}
			} else {
				if req.CreatedAt == nil {
					input.OrderCreatedAt = detail.CreatedAt
				}
				if req.TotalPrice == nil {
					input.OrderValue = detail.TotalPrice
				}
				if input.Currency == "" {
					input.Currency = detail.Currency
				}
			}
		}
		if input.OrderCreatedAt.IsZero() {
			input.OrderCreatedAt = time.Now().UTC()
		}

		result, err := matcher.AttemptMatch(r.Context(), input)
		if err != nil {
			// The platform redelivers on non-2xx; a matcher failure must not
			// trigger a retry storm, so it degrades to an unmatched outcome.
			if logg != nil {
				logg.Error(r.Context(), "attribution match degraded to no match", err)
			}
			result = &attribution.MatchResult{Status: attribution.MatchStatusNoMatch}
		}
		responses.WriteSuccess(w, result)
	}
}
