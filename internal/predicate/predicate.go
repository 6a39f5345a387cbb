// Package predicate defines the closed set of boolean conditions the policy
// compiler produces. Predicates are pure functions over an evaluation Context:
// evaluating one never mutates the context and requires no synchronization.
//
// The set is intentionally small and tagged (rather than opaque closures) so
// compiled policies can be inspected in tests and serialized for diagnostics.
package predicate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Context supplies the runtime facts a predicate is evaluated against.
// Implementations must be safe for concurrent use; all methods are read-only.
type Context interface {
	// IsRoleApplicable reports whether the acting principal matches any of
	// the given policy roles for the current profile context.
	IsRoleApplicable(roles []string) bool

	// HasRequestedScope reports whether any of the given scope names is
	// among the scopes requested in the current authentication flow.
	// Always false outside an authentication flow.
	HasRequestedScope(scopes []string) bool

	// CanOriginateFromAuthFlow reports whether the profile context can be
	// reached from an authentication flow (scopes are meaningless otherwise).
	CanOriginateFromAuthFlow() bool

	// IsServiceAccountTarget reports whether the target entity is a
	// service/machine account rather than an end user.
	IsServiceAccountTarget() bool

	// IdentifierFromContact reports whether the realm synthesizes the
	// identifier attribute from the contact address.
	IdentifierFromContact() bool
}

// Predicate is a pure boolean condition over an evaluation Context.
type Predicate interface {
	Evaluate(ctx Context) bool
	fmt.Stringer
	json.Marshaler
}

// AlwaysTrue and AlwaysFalse are the constant predicates.
var (
	AlwaysTrue  Predicate = constant(true)
	AlwaysFalse Predicate = constant(false)
)

type constant bool

func (c constant) Evaluate(Context) bool { return bool(c) }

func (c constant) String() string {
	if c {
		return "true"
	}
	return "false"
}

func (c constant) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: c.String()})
}

// RoleMatch returns a predicate that is true when the principal matches any
// of the given roles. The role set is copied and sorted so the predicate is
// independent of the caller's slice and serializes deterministically.
func RoleMatch(roles []string) Predicate {
	return roleMatch{roles: sortedCopy(roles)}
}

type roleMatch struct {
	roles []string
}

func (p roleMatch) Evaluate(ctx Context) bool { return ctx.IsRoleApplicable(p.roles) }

func (p roleMatch) String() string {
	return "role-match(" + strings.Join(p.roles, ",") + ")"
}

func (p roleMatch) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "role-match", Roles: p.roles})
}

// ScopeMatch returns a predicate that is true when the evaluation context's
// requested-scope set intersects the given scopes.
func ScopeMatch(scopes []string) Predicate {
	return scopeMatch{scopes: sortedCopy(scopes)}
}

type scopeMatch struct {
	scopes []string
}

func (p scopeMatch) Evaluate(ctx Context) bool { return ctx.HasRequestedScope(p.scopes) }

func (p scopeMatch) String() string {
	return "scope-match(" + strings.Join(p.scopes, ",") + ")"
}

func (p scopeMatch) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "scope-match", Scopes: p.scopes})
}

// Or composes two predicates with short-circuit disjunction. The left operand
// is always evaluated first; composition order is part of the compiled policy
// and must not be normalized.
func Or(a, b Predicate) Predicate { return or{a: a, b: b} }

type or struct {
	a, b Predicate
}

func (p or) Evaluate(ctx Context) bool { return p.a.Evaluate(ctx) || p.b.Evaluate(ctx) }

func (p or) String() string { return fmt.Sprintf("or(%s, %s)", p.a, p.b) }

func (p or) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "or", Operands: []Predicate{p.a, p.b}})
}

// And composes two predicates with short-circuit conjunction. The left
// operand is always evaluated first.
func And(a, b Predicate) Predicate { return and{a: a, b: b} }

type and struct {
	a, b Predicate
}

func (p and) Evaluate(ctx Context) bool { return p.a.Evaluate(ctx) && p.b.Evaluate(ctx) }

func (p and) String() string { return fmt.Sprintf("and(%s, %s)", p.a, p.b) }

func (p and) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "and", Operands: []Predicate{p.a, p.b}})
}

// Not negates a predicate.
func Not(a Predicate) Predicate { return not{a: a} }

type not struct {
	a Predicate
}

func (p not) Evaluate(ctx Context) bool { return !p.a.Evaluate(ctx) }

func (p not) String() string { return fmt.Sprintf("not(%s)", p.a) }

func (p not) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "not", Operands: []Predicate{p.a}})
}

// ServiceAccountTarget is true when the target entity is a service account.
// Used by the built-in merger for the contact-address required rule.
var ServiceAccountTarget Predicate = serviceAccountTarget{}

type serviceAccountTarget struct{}

func (serviceAccountTarget) Evaluate(ctx Context) bool { return ctx.IsServiceAccountTarget() }

func (serviceAccountTarget) String() string { return "service-account-target" }

func (serviceAccountTarget) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "service-account-target"})
}

// IdentifierFromContact is true when the realm synthesizes the identifier
// attribute from the contact address. Used by the built-in merger for the
// identifier and contact-address required rules.
var IdentifierFromContact Predicate = identifierFromContact{}

type identifierFromContact struct{}

func (identifierFromContact) Evaluate(ctx Context) bool { return ctx.IdentifierFromContact() }

func (identifierFromContact) String() string { return "identifier-from-contact" }

func (identifierFromContact) MarshalJSON() ([]byte, error) {
	return marshalNode(node{Type: "identifier-from-contact"})
}

// node is the wire shape used by MarshalJSON. Only the fields relevant to a
// variant are populated.
type node struct {
	Type     string      `json:"type"`
	Roles    []string    `json:"roles,omitempty"`
	Scopes   []string    `json:"scopes,omitempty"`
	Operands []Predicate `json:"operands,omitempty"`
}

func marshalNode(n node) ([]byte, error) {
	return json.Marshal(n)
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
