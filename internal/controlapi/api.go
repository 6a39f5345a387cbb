// Package controlapi implements the REST API for the Mimir Control Plane.
package controlapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/provider"
	"github.com/rafaeljc/mimir/internal/store"
)

// EventPublisher announces realm configuration changes to other replicas.
// *cache.Invalidator satisfies it; tests use a local fake.
type EventPublisher interface {
	Publish(ctx context.Context, realm string) error
}

// API is the main struct that holds dependencies and the router for the Control Plane.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// manager resolves the per-realm provider that parses, validates,
	// persists, and activates configuration documents.
	manager *provider.Manager

	// repo reads the stored raw documents directly for the GET path.
	repo store.ConfigRepository

	// events publishes invalidation messages to subscribers.
	events EventPublisher

	// apiKeyHash is the SHA-256 hash of the valid API key.
	// Used for authentication in production environments.
	apiKeyHash string

	// skipAuth disables authentication when true (test/dev environments only).
	// Production environments should always set this to false.
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled by default.
// The apiKeyHash parameter must be the SHA-256 hash of the API key.
// Panics if apiKeyHash is empty, as authentication cannot be disabled with this constructor.
func NewAPI(manager *provider.Manager, repo store.ConfigRepository, events EventPublisher, apiKeyHash string) *API {
	return NewAPIWithConfig(manager, repo, events, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over authentication.
// This constructor is primarily used in tests to disable authentication.
//
// Panics if:
//   - manager, repo, or events are nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(manager *provider.Manager, repo store.ConfigRepository, events EventPublisher, apiKeyHash string, skipAuth bool) *API {
	if manager == nil {
		panic("controlapi: provider manager cannot be nil")
	}
	if repo == nil {
		panic("controlapi: config repository cannot be nil")
	}
	if events == nil {
		panic("controlapi: event publisher cannot be nil")
	}

	// Validate authentication configuration
	if !skipAuth && apiKeyHash == "" {
		panic("controlapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	api := &API{
		Router:     chi.NewRouter(),
		manager:    manager,
		repo:       repo,
		events:     events,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// 1. Global Middleware Stack
	// RequestID: Adds a unique ID to each request context (essential for tracing).
	a.Router.Use(middleware.RequestID)
	// RealIP: correctly sets the IP if behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	// Logger: Logs request method, path, status, and duration.
	a.Router.Use(RequestLogger)
	// Metrics: Records request counts and latency per route.
	a.Router.Use(RequestMetrics)
	// Recoverer: Prevents the server from crashing on panics, returning 500 instead.
	a.Router.Use(middleware.Recoverer)
	// Content-Type: Forces JSON content type for API responses.
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// 2. Public Routes (no authentication required)
	a.Router.Get("/health", a.handleHealthCheck)

	// 3. Protected API V1 Routes (authentication required)
	a.Router.Route("/api/v1", func(r chi.Router) {
		// Apply authentication middleware to all /api/v1/* routes
		r.Use(a.authenticateAPIKey)

		r.Route("/realms/{realm}", func(r chi.Router) {
			r.Route("/profile-config", func(r chi.Router) {
				r.Get("/", a.handleGetConfig)
				r.Put("/", a.handlePutConfig)
				r.Delete("/", a.handleDeleteConfig)
			})
		})
	})
}

// handleHealthCheck verifies if the service is serving HTTP.
// Deep dependency checks live on the observability server's readiness probe.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
