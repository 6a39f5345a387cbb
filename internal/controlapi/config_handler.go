package controlapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/compiler"
	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/store"
)

// maxDocumentBytes bounds the accepted configuration payload. Real-world
// documents are a few KB; anything near this limit is misuse.
const maxDocumentBytes = 1 << 20 // 1 MiB

// handleGetConfig processes the GET /api/v1/realms/{realm}/profile-config request.
// It returns the stored raw document. Realms without a custom configuration
// get 404: they run on the built-in defaults, which are not a stored resource.
func (a *API) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	realm := chi.URLParam(r, "realm")
	if errResp := validateRealm(realm); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	pc, err := a.repo.GetConfig(r.Context(), realm)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_NOT_FOUND",
				Message: "Realm uses the built-in default configuration",
			})
			return
		}

		log.Error("failed to fetch profile config", "realm", realm, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to fetch profile configuration",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ProfileConfigResponse{
		Realm:     pc.Realm,
		Document:  json.RawMessage(pc.Document),
		Version:   pc.Version,
		CreatedAt: pc.CreatedAt,
		UpdatedAt: pc.UpdatedAt,
	})
}

// handlePutConfig processes the PUT /api/v1/realms/{realm}/profile-config request.
//
// Responsibilities:
//  1. Reads the raw configuration document from the body.
//  2. Delegates parsing, validation, persistence, and activation to the realm's
//     provider (SetConfiguration is atomic: invalid documents change nothing).
//  3. Maps domain errors to HTTP statuses: malformed JSON is 400, semantic
//     validation failures are 422 with the full error list.
//  4. Publishes the invalidation event to other replicas asynchronously.
func (a *API) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	realm := chi.URLParam(r, "realm")
	if errResp := validateRealm(realm); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Failed to read request body",
		})
		return
	}
	if len(body) == 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Request body is required; use DELETE to revert to defaults",
		})
		return
	}
	if len(body) > maxDocumentBytes {
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_PAYLOAD_TOO_LARGE",
			Message: "Configuration document exceeds the 1 MiB limit",
		})
		return
	}

	p, err := a.manager.Provider(r.Context(), realm)
	if err != nil {
		log.Error("failed to resolve provider", "realm", realm, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to resolve realm provider",
		})
		return
	}

	document := string(body)
	if err := p.SetConfiguration(r.Context(), &document); err != nil {
		a.renderSetConfigError(w, r, log, realm, err)
		return
	}

	a.notifyReplicasAsync(log, realm)

	pc, err := a.repo.GetConfig(r.Context(), realm)
	if err != nil {
		// The write succeeded; a read failure here only degrades the response.
		log.Warn("failed to read back stored config", "realm", realm, "error", err)
		render.NoContent(w, r)
		return
	}

	log.Info("profile config updated",
		slog.String("realm", realm),
		slog.Int64("version", pc.Version),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ProfileConfigResponse{
		Realm:     pc.Realm,
		Document:  json.RawMessage(pc.Document),
		Version:   pc.Version,
		CreatedAt: pc.CreatedAt,
		UpdatedAt: pc.UpdatedAt,
	})
}

// handleDeleteConfig processes the DELETE /api/v1/realms/{realm}/profile-config
// request. The realm reverts to the built-in default configuration.
func (a *API) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	realm := chi.URLParam(r, "realm")
	if errResp := validateRealm(realm); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	p, err := a.manager.Provider(r.Context(), realm)
	if err != nil {
		log.Error("failed to resolve provider", "realm", realm, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to resolve realm provider",
		})
		return
	}

	if err := p.SetConfiguration(r.Context(), nil); err != nil {
		log.Error("failed to delete profile config", "realm", realm, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to delete profile configuration",
		})
		return
	}

	a.notifyReplicasAsync(log, realm)

	log.Info("profile config deleted", slog.String("realm", realm))
	render.NoContent(w, r)
}

// renderSetConfigError maps SetConfiguration failures to HTTP responses.
func (a *API) renderSetConfigError(w http.ResponseWriter, r *http.Request, log *slog.Logger, realm string, err error) {
	if errors.Is(err, policy.ErrMalformed) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Configuration document is not valid JSON",
		})
		return
	}

	var invalid *compiler.InvalidConfigError
	if errors.As(err, &invalid) {
		details := make([]ErrorDetail, 0, len(invalid.Errors))
		for _, ve := range invalid.Errors {
			details = append(details, ErrorDetail{
				Field: ve.Attribute,
				Issue: ve.Message,
			})
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_CONFIG",
			Message: "Configuration document failed validation",
			Details: details,
		})
		return
	}

	log.Error("failed to store profile config", "realm", realm, "error", err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_INTERNAL",
		Message: "Failed to store profile configuration",
	})
}

// notifyReplicasAsync publishes the invalidation event without blocking the
// HTTP response. Delivery is best-effort: the watcher reconciles anything
// pub/sub misses.
func (a *API) notifyReplicasAsync(log *slog.Logger, realm string) {
	go func() {
		// Create a context disconnected from the HTTP request.
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		const maxRetries = 3
		baseDelay := 100 * time.Millisecond

		for i := 0; i <= maxRetries; i++ {
			err := a.events.Publish(ctx, realm)
			if err == nil {
				return
			}

			if i == maxRetries {
				log.Error("CRITICAL: failed to publish invalidation after retries",
					slog.String("realm", realm),
					slog.String("error", err.Error()))
				return
			}

			// Simple exponential backoff
			log.Warn("failed to publish invalidation, retrying...",
				slog.String("realm", realm),
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))

			time.Sleep(baseDelay * time.Duration(1<<i))
		}
	}()
}
