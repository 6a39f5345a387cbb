package metadata

import (
	"sort"

	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/predicate"
)

// Standard profile context identifiers.
const (
	ContextRegistration  = "registration"
	ContextAccountUpdate = "account-update"
	ContextAdminEdit     = "admin-edit"
	ContextIDPReview     = "idp-review"
	ContextContactUpdate = "contact-update"
)

// ContextDefinition pairs a context descriptor with its base metadata: the
// pre-configuration entries for the reserved attributes the context
// supports. The compiler decorates or removes these per the merge rules;
// the base itself is never mutated.
type ContextDefinition struct {
	Descriptor Descriptor
	Base       *ProfileMetadata
}

// Registry maps context identifiers to their definitions. It is built once
// at startup and read-only afterwards.
type Registry struct {
	defs map[string]ContextDefinition
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs ...ContextDefinition) *Registry {
	r := &Registry{defs: make(map[string]ContextDefinition, len(defs))}
	for _, def := range defs {
		r.defs[def.Descriptor.ID] = def
	}
	return r
}

// Definition looks up a context definition.
func (r *Registry) Definition(contextID string) (ContextDefinition, bool) {
	def, ok := r.defs[contextID]
	return def, ok
}

// ContextIDs returns the registered context identifiers in sorted order.
func (r *Registry) ContextIDs() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry builds the standard context set for the given reserved
// attributes. Every context carries base metadata for the reserved
// attributes it supports; the contact-update context only handles the
// contact address (plus the identifier needed to address the entity).
func DefaultRegistry(reserved policy.ReservedSet) *Registry {
	identifier := reserved.Identifier()
	contact := reserved.Contact()

	fullBase := func(contextID string) *ProfileMetadata {
		return NewProfile(contextID,
			baseIdentifierAttribute(identifier),
			baseContactAttribute(contact),
			baseNameAttribute(policy.AttributeFirstName),
			baseNameAttribute(policy.AttributeLastName),
		)
	}

	contactOnly := func(name string) bool { return name == contact }

	return NewRegistry(
		ContextDefinition{
			Descriptor: Descriptor{ID: ContextRegistration, AuthFlow: true, ContextRole: "user"},
			Base:       fullBase(ContextRegistration),
		},
		ContextDefinition{
			Descriptor: Descriptor{ID: ContextAccountUpdate, AuthFlow: false, ContextRole: "user"},
			Base:       fullBase(ContextAccountUpdate),
		},
		ContextDefinition{
			Descriptor: Descriptor{ID: ContextAdminEdit, AuthFlow: false, ContextRole: "admin"},
			Base:       fullBase(ContextAdminEdit),
		},
		ContextDefinition{
			Descriptor: Descriptor{ID: ContextIDPReview, AuthFlow: true, ContextRole: "user"},
			Base:       fullBase(ContextIDPReview),
		},
		ContextDefinition{
			Descriptor: Descriptor{ID: ContextContactUpdate, AuthFlow: true, ContextRole: "user", Supported: contactOnly},
			Base:       NewProfile(ContextContactUpdate, baseContactAttribute(contact)),
		},
	)
}

func baseIdentifierAttribute(name string) *AttributeMetadata {
	return openBaseAttribute(name,
		ValidatorRef{ID: policy.ValidatorLength, Config: map[string]any{"min": 3, "max": 255}},
		ValidatorRef{ID: policy.ValidatorUsernameProhibited},
	)
}

func baseContactAttribute(name string) *AttributeMetadata {
	return openBaseAttribute(name,
		ValidatorRef{ID: policy.ValidatorEmailFormat},
		ValidatorRef{ID: policy.ValidatorLength, Config: map[string]any{"max": 255}},
	)
}

func baseNameAttribute(name string) *AttributeMetadata {
	return openBaseAttribute(name,
		ValidatorRef{ID: policy.ValidatorLength, Config: map[string]any{"max": 255}},
		ValidatorRef{ID: policy.ValidatorPersonNameProhibited},
	)
}

// openBaseAttribute builds a base entry with every gate open; configuration
// narrows it during compilation.
func openBaseAttribute(name string, validators ...ValidatorRef) *AttributeMetadata {
	attr := NewAttribute(name)
	attr.SetRequired(predicate.AlwaysTrue)
	attr.SetReadAllowed(predicate.AlwaysTrue)
	attr.SetWriteAllowed(predicate.AlwaysTrue)
	attr.AddValidators(validators...)
	return attr
}
