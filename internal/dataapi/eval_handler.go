package dataapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/provider"
)

// handleEvaluate processes POST .../contexts/{context}/evaluate.
// It evaluates every attribute's compiled gates against the request facts
// (principal roles, requested scopes, target, realm settings) and returns
// the boolean outcomes. Compilation happens at most once per configuration
// generation; evaluation itself is allocation-light predicate walking.
func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	realm := chi.URLParam(r, "realm")
	contextID := chi.URLParam(r, "context")

	var req EvalRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	def, ok := a.registry.Definition(contextID)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_UNKNOWN_CONTEXT",
			Message: "Unknown profile context: " + contextID,
		})
		return
	}

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

	evalCtx := buildEvalContext(def, &req)

	results := make([]AttributeResult, 0, len(profile.Attributes))
	for _, attr := range profile.Attributes {
		results = append(results, AttributeResult{
			Name:         attr.Name,
			Required:     attr.Required.Evaluate(evalCtx),
			ReadAllowed:  attr.ReadAllowed.Evaluate(evalCtx),
			WriteAllowed: attr.WriteAllowed.Evaluate(evalCtx),
			Selected:     attr.Selected.Evaluate(evalCtx),
		})
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EvalResponse{
		ContextID:   contextID,
		Fingerprint: p.Fingerprint(),
		Attributes:  results,
	})
}

// buildEvalContext maps the request DTO onto the evaluation context.
func buildEvalContext(def metadata.ContextDefinition, req *EvalRequest) *metadata.EvalContext {
	evalCtx := &metadata.EvalContext{
		Descriptor: def.Descriptor,
		Roles:      req.Roles,
		Scopes:     req.Scopes,
	}
	if req.Target != nil {
		evalCtx.Target = &metadata.TargetRef{
			ID:             req.Target.ID,
			ServiceAccount: req.Target.ServiceAccount,
		}
	}
	if req.Realm != nil {
		evalCtx.Realm = metadata.RealmFlags{
			SynthesizeIdentifierFromContact: req.Realm.IdentifierFromContact,
		}
	}
	return evalCtx
}
