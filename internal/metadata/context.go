package metadata

import (
	"slices"

	"github.com/rafaeljc/mimir/internal/predicate"
)

// Descriptor identifies a profile context and its capabilities. Contexts are
// fixed at registry construction; the compiler consults the descriptor both
// at compile time (support check, auth-flow capability, context-role match)
// and indirectly at evaluation time through EvalContext.
type Descriptor struct {
	// ID is the context identifier, for instance "registration".
	ID string

	// AuthFlow reports whether the context can originate from an
	// authentication flow. Scope-based rules are meaningless otherwise.
	AuthFlow bool

	// ContextRole is the intrinsic role of the context: "user" for
	// self-service contexts, "admin" for administrative ones. Required
	// rules with a role list match against it at compile time.
	ContextRole string

	// Supported restricts which attributes the context handles. A nil
	// function means every attribute is supported.
	Supported func(attributeName string) bool
}

// IsAttributeSupported reports whether the context processes the attribute.
// Unsupported attributes produce no metadata entry for the context.
func (d Descriptor) IsAttributeSupported(name string) bool {
	return d.Supported == nil || d.Supported(name)
}

// IsRoleForContext reports whether the context's intrinsic role appears in
// the given role list.
func (d Descriptor) IsRoleForContext(roles []string) bool {
	return slices.Contains(roles, d.ContextRole)
}

// RealmSettings exposes the realm/tenant flags predicates depend on.
type RealmSettings interface {
	// IdentifierFromContact reports whether the realm synthesizes the
	// identifier attribute from the contact address.
	IdentifierFromContact() bool
}

// RealmFlags is a static RealmSettings implementation.
type RealmFlags struct {
	SynthesizeIdentifierFromContact bool
}

// IdentifierFromContact implements RealmSettings.
func (f RealmFlags) IdentifierFromContact() bool { return f.SynthesizeIdentifierFromContact }

// TargetRef identifies the entity a profile operation targets.
type TargetRef struct {
	ID string

	// ServiceAccount marks machine accounts; the contact-address required
	// rule never applies to them.
	ServiceAccount bool
}

// EvalContext bundles the runtime facts compiled predicates are evaluated
// against: the context descriptor, the acting principal's roles, the scopes
// requested in the current authentication flow, the optional target entity,
// and the realm settings. It is read-only; evaluation needs no
// synchronization.
type EvalContext struct {
	Descriptor Descriptor
	Roles      []string
	Scopes     []string
	Target     *TargetRef
	Realm      RealmSettings
}

var _ predicate.Context = (*EvalContext)(nil)

// IsRoleApplicable reports whether the principal's role set intersects the
// given policy roles.
func (c *EvalContext) IsRoleApplicable(roles []string) bool {
	for _, role := range roles {
		if slices.Contains(c.Roles, role) {
			return true
		}
	}
	return false
}

// HasRequestedScope reports whether any of the given scopes was requested.
// Outside an authentication flow there are no requested scopes.
func (c *EvalContext) HasRequestedScope(scopes []string) bool {
	if !c.Descriptor.AuthFlow {
		return false
	}
	for _, scope := range scopes {
		if slices.Contains(c.Scopes, scope) {
			return true
		}
	}
	return false
}

// CanOriginateFromAuthFlow implements predicate.Context.
func (c *EvalContext) CanOriginateFromAuthFlow() bool { return c.Descriptor.AuthFlow }

// IsServiceAccountTarget implements predicate.Context.
func (c *EvalContext) IsServiceAccountTarget() bool {
	return c.Target != nil && c.Target.ServiceAccount
}

// IdentifierFromContact implements predicate.Context.
func (c *EvalContext) IdentifierFromContact() bool {
	return c.Realm != nil && c.Realm.IdentifierFromContact()
}
