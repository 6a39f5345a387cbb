// Package dataapi implements the HTTP Data Plane serving compiled profile
// metadata and permission-gate evaluation. It is the high-performance read
// path for identity providers and client SDKs.
package dataapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/provider"
)

// ProviderSource resolves the per-realm provider. *provider.Manager
// satisfies it; tests substitute a local implementation.
type ProviderSource interface {
	Provider(ctx context.Context, realm string) (*provider.Provider, error)
}

// API holds the dependencies and router for the Data Plane.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// providers resolves realms to their configuration providers.
	providers ProviderSource

	// registry holds the fixed context definitions for this deployment.
	registry *metadata.Registry
}

// NewAPI creates a new Data Plane API instance.
// Panics if any dependency is nil.
func NewAPI(providers ProviderSource, registry *metadata.Registry) *API {
	if providers == nil {
		panic("dataapi: provider source cannot be nil")
	}
	if registry == nil {
		panic("dataapi: context registry cannot be nil")
	}

	api := &API{
		Router:    chi.NewRouter(),
		providers: providers,
		registry:  registry,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the middleware stack and endpoints. The stack is
// leaner than the control plane's: no auth (the data plane sits behind the
// service mesh) and sub-millisecond latency targets.
func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestMetrics)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1/realms/{realm}", func(r chi.Router) {
		r.Get("/contexts", a.handleListContexts)
		r.Route("/contexts/{context}", func(r chi.Router) {
			r.Get("/metadata", a.handleGetMetadata)
			r.Post("/evaluate", a.handleEvaluate)
		})
	})
}

func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleListContexts returns the context identifiers this deployment serves.
func (a *API) handleListContexts(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string][]string{"contexts": a.registry.ContextIDs()})
}
