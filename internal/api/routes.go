package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/inspira/dailyquote/internal/auth"
)

// SetupRoutes configures all API routes. User-facing subscription routes sit
// behind bearer verification; the broadcast trigger is guarded by the shared
// internal token so only the scheduler (or an operator) can fire it.
func SetupRoutes(h *Handlers, verifier auth.Verifier, internalToken string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))

			r.Post("/subscription/order", h.HandleCreateOrder)
			r.Post("/subscription/verify", h.HandleVerifyPayment)
			r.Get("/subscription/status", h.HandleSubscriptionStatus)
			r.Post("/subscription/unsubscribe", h.HandleUnsubscribe)
			r.Post("/messages/test", h.HandleTestSend)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireInternalToken(internalToken))

			r.Post("/broadcast/run", h.HandleRunBroadcast)
		})
	})

	return r
}

// requireInternalToken guards scheduler-to-server endpoints with a shared
// token carried as a bearer credential.
func requireInternalToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := auth.BearerToken(r)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"error":"unauthorized","code":"unauthenticated"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
