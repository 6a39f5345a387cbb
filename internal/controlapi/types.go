// Package controlapi implements the REST API for the Mimir Control Plane.
// It handles HTTP routing, request decoding, validation, and response formatting.
package controlapi

import (
	"encoding/json"
	"regexp"
	"time"
)

// realmRegex ensures realm names are URL-safe slugs (lowercase, numbers, hyphens).
// We compile it once at package initialization for performance.
var realmRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// ProfileConfigResponse is the stored configuration resource for one realm.
type ProfileConfigResponse struct {
	// Realm is the tenant this configuration belongs to.
	Realm string `json:"realm"`

	// Document is the raw configuration document as submitted.
	Document json.RawMessage `json:"document"`

	// Version is the monotonic counter bumped on every write.
	Version int64 `json:"version"`

	// CreatedAt is the timestamp of creation in UTC.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last update in UTC.
	UpdatedAt time.Time `json:"updated_at"`
}

// validateRealm enforces the format and length rules for realm names.
func validateRealm(realm string) *ErrorResponse {
	if realm == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Realm is required",
		}
	}
	if len(realm) > 255 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Realm must be less than 255 characters",
		}
	}
	if !realmRegex.MatchString(realm) {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Realm must strictly contain only lowercase letters, numbers, and hyphens (slug format)",
		}
	}
	return nil
}

// ErrorResponse represents a standard structured API error.
// Conforms to the project's OpenAPI error schema.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details provides optional granular validation errors.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
