package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/auth"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/config"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/httputil"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/metrics"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, authHandler *auth.Handler, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(metrics.Middleware)            // Request counters and latency
	r.Use(middleware.Compress(5))        // Compress responses

	// Operational routes
	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Credential routes (public)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.Post("/forgot_password", authHandler.ForgotPassword)
	r.Post("/reset_password", authHandler.ResetPassword)

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireSession)
		r.Get("/me", authHandler.Me)
	})

	return r
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
