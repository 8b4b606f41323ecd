package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware for the tracking surfaces. Pixel and suggestion
// traffic arrives from arbitrary storefront origins, so the policy is open
// but credential-free.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Ingest-Key", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
