package dataapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/provider"
)

// handleGetMetadata processes GET .../contexts/{context}/metadata.
// It serves the compiled profile metadata for one context, including the
// serialized predicate trees, so callers can render forms and inspect
// effective policy. The response is cached per configuration generation;
// the fingerprint header lets clients correlate responses across replicas.
func (a *API) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	realm := chi.URLParam(r, "realm")
	contextID := chi.URLParam(r, "context")

	p, err := a.providers.Provider(r.Context(), realm)
	if err != nil {
		log.Error("failed to resolve provider", "realm", realm, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to resolve realm provider",
		})
		return
	}

	profile, err := p.GetCompiled(r.Context(), contextID)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownContext) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_UNKNOWN_CONTEXT",
				Message: "Unknown profile context: " + contextID,
			})
			return
		}

		log.Error("failed to compile profile metadata",
			"realm", realm, "context", contextID, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_COMPILE_FAILED",
			Message: "Profile configuration could not be compiled",
		})
		return
	}

	w.Header().Set("X-Config-Fingerprint", p.Fingerprint())
	render.Status(r, http.StatusOK)
	render.JSON(w, r, profile)
}
