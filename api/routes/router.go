package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopsignal/attribution-backend/api/controllers"
	"github.com/shopsignal/attribution-backend/api/middleware"
	"github.com/shopsignal/attribution-backend/internal/aggregates"
	"github.com/shopsignal/attribution-backend/internal/attribution"
	"github.com/shopsignal/attribution-backend/internal/clicks"
	"github.com/shopsignal/attribution-backend/internal/consent"
	"github.com/shopsignal/attribution-backend/internal/erasure"
	"github.com/shopsignal/attribution-backend/internal/events"
	"github.com/shopsignal/attribution-backend/pkg/commerce"
	"github.com/shopsignal/attribution-backend/pkg/config"
	"github.com/shopsignal/attribution-backend/pkg/db"
	"github.com/shopsignal/attribution-backend/pkg/logger"
	"github.com/shopsignal/attribution-backend/pkg/redis"
)

// RouterParams carry everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Tenants  middleware.TenantResolver
	Clicks   clicks.Service
	Events   events.Service
	Consent  consent.Service
	Matcher  attribution.Service
	Rollups  aggregates.Service
	Erasure  erasure.Service
	Commerce *commerce.Client
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Click creation is reachable without an ingest key: suggestion
		// surfaces link out before any storefront session exists.
		r.Post("/referrals", controllers.ReferralCreate(params.Clicks, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.IngestAuth(params.Tenants, logg))

			r.Get("/referrals", controllers.ReferralList(params.Clicks, logg))
			r.Post("/events", controllers.EventRecord(params.Events, logg))
			r.Post("/webhooks/orders", controllers.OrderWebhook(params.Matcher, orderFetcherOrNil(params.Commerce), logg))

			r.Route("/consent", func(r chi.Router) {
				r.Get("/", controllers.ConsentGet(params.Consent, logg))
				r.Post("/", controllers.ConsentGrant(params.Consent, logg))
				r.Put("/", controllers.ConsentUpdate(params.Consent, logg))
				r.Post("/revoke", controllers.ConsentRevoke(params.Consent, logg))
			})

			r.Get("/aggregates", controllers.AggregatesList(params.Rollups, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin.Token, logg))
		r.Route("/erasure", func(r chi.Router) {
			r.Post("/user", controllers.ErasureUser(params.Erasure, logg))
			r.Post("/tenant", controllers.ErasureTenant(params.Erasure, logg))
		})
	})

	return r
}

// orderFetcherOrNil keeps a nil *commerce.Client from becoming a non-nil
// interface inside the webhook handler.
func orderFetcherOrNil(client *commerce.Client) controllers.OrderFetcher {
	if client == nil {
		return nil
	}
	return client
}
