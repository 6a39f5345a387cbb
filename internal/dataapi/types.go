package dataapi

// EvalTarget identifies the entity the profile operation targets.
type EvalTarget struct {
	ID             string `json:"id"`
	ServiceAccount bool   `json:"service_account"`
}

// EvalRealm carries the caller's realm settings that predicates consult.
type EvalRealm struct {
	// IdentifierFromContact mirrors the realm flag that synthesizes the
	// identifier attribute from the contact address.
	IdentifierFromContact bool `json:"identifier_from_contact"`
}

// EvalRequest is the payload for POST .../contexts/{context}/evaluate.
// Roles are the acting principal's roles; Scopes are the client scopes
// requested in the current authentication flow, if any.
type EvalRequest struct {
	Roles  []string    `json:"roles"`
	Scopes []string    `json:"scopes,omitempty"`
	Target *EvalTarget `json:"target,omitempty"`
	Realm  *EvalRealm  `json:"realm,omitempty"`
}

// AttributeResult is the outcome of evaluating one attribute's gates.
type AttributeResult struct {
	Name         string `json:"name"`
	Required     bool   `json:"required"`
	ReadAllowed  bool   `json:"read_allowed"`
	WriteAllowed bool   `json:"write_allowed"`
	Selected     bool   `json:"selected"`
}

// EvalResponse is the evaluation result for every attribute of a context.
type EvalResponse struct {
	ContextID   string            `json:"context_id"`
	Fingerprint string            `json:"fingerprint"`
	Attributes  []AttributeResult `json:"attributes"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_UNKNOWN_CONTEXT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}
