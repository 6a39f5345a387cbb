// Package metadata holds the compiled side of the policy engine: per-context
// attribute metadata carrying the four gate predicates, the profile context
// descriptors and their base metadata, and the evaluation context predicates
// run against.
//
// Compiled metadata is mutable only while the compiler builds it into a
// local ProfileMetadata; once published to the cache it is treated as
// immutable and shared freely between goroutines.
package metadata

import "github.com/rafaeljc/mimir/internal/predicate"

// ValidatorRef is one compiled validator attachment: the validator id plus
// its opaque configuration. Validator logic lives outside the engine.
type ValidatorRef struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config,omitempty"`
}

// GroupMetadata is the compiled form of a group declaration.
type GroupMetadata struct {
	Name               string         `json:"name"`
	DisplayHeader      string         `json:"displayHeader,omitempty"`
	DisplayDescription string         `json:"displayDescription,omitempty"`
	Annotations        map[string]any `json:"annotations,omitempty"`
}

// AttributeMetadata is the compiled metadata for one attribute in one
// profile context. The four predicates gate access at evaluation time.
type AttributeMetadata struct {
	Name        string         `json:"name"`
	GUIOrder    int            `json:"guiOrder"`
	DisplayName string         `json:"displayName,omitempty"`
	Group       *GroupMetadata `json:"group,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`
	Validators  []ValidatorRef `json:"validators,omitempty"`

	Required     predicate.Predicate `json:"required"`
	ReadAllowed  predicate.Predicate `json:"readAllowed"`
	WriteAllowed predicate.Predicate `json:"writeAllowed"`
	Selected     predicate.Predicate `json:"selected"`
}

// NewAttribute returns attribute metadata with all gates closed except the
// selector, which defaults to open.
func NewAttribute(name string) *AttributeMetadata {
	return &AttributeMetadata{
		Name:         name,
		Required:     predicate.AlwaysFalse,
		ReadAllowed:  predicate.AlwaysFalse,
		WriteAllowed: predicate.AlwaysFalse,
		Selected:     predicate.AlwaysTrue,
	}
}

// AddAnnotations merges the given annotations into the attribute, keeping
// existing keys that are not overwritten.
func (a *AttributeMetadata) AddAnnotations(annotations map[string]any) *AttributeMetadata {
	if len(annotations) == 0 {
		return a
	}
	if a.Annotations == nil {
		a.Annotations = make(map[string]any, len(annotations))
	}
	for k, v := range annotations {
		a.Annotations[k] = v
	}
	return a
}

// AddValidators appends validator attachments.
func (a *AttributeMetadata) AddValidators(refs ...ValidatorRef) *AttributeMetadata {
	a.Validators = append(a.Validators, refs...)
	return a
}

// RemoveValidator drops every attachment with the given id.
func (a *AttributeMetadata) RemoveValidator(id string) *AttributeMetadata {
	kept := a.Validators[:0]
	for _, ref := range a.Validators {
		if ref.ID != id {
			kept = append(kept, ref)
		}
	}
	a.Validators = kept
	return a
}

// SetDisplayName sets the display name.
func (a *AttributeMetadata) SetDisplayName(name string) *AttributeMetadata {
	a.DisplayName = name
	return a
}

// SetGUIOrder sets the GUI ordering slot.
func (a *AttributeMetadata) SetGUIOrder(order int) *AttributeMetadata {
	a.GUIOrder = order
	return a
}

// SetGroup sets the group metadata.
func (a *AttributeMetadata) SetGroup(group *GroupMetadata) *AttributeMetadata {
	a.Group = group
	return a
}

// SetRequired replaces the required predicate.
func (a *AttributeMetadata) SetRequired(p predicate.Predicate) *AttributeMetadata {
	a.Required = p
	return a
}

// SetReadAllowed replaces the read predicate.
func (a *AttributeMetadata) SetReadAllowed(p predicate.Predicate) *AttributeMetadata {
	a.ReadAllowed = p
	return a
}

// SetWriteAllowed replaces the write predicate.
func (a *AttributeMetadata) SetWriteAllowed(p predicate.Predicate) *AttributeMetadata {
	a.WriteAllowed = p
	return a
}

// SetSelected replaces the selector predicate.
func (a *AttributeMetadata) SetSelected(p predicate.Predicate) *AttributeMetadata {
	a.Selected = p
	return a
}

// Clone deep-copies the attribute metadata. Predicates are immutable and
// shared as-is.
func (a *AttributeMetadata) Clone() *AttributeMetadata {
	out := *a

	if a.Annotations != nil {
		out.Annotations = make(map[string]any, len(a.Annotations))
		for k, v := range a.Annotations {
			out.Annotations[k] = v
		}
	}

	if a.Validators != nil {
		out.Validators = make([]ValidatorRef, len(a.Validators))
		copy(out.Validators, a.Validators)
	}

	if a.Group != nil {
		group := *a.Group
		if a.Group.Annotations != nil {
			group.Annotations = make(map[string]any, len(a.Group.Annotations))
			for k, v := range a.Group.Annotations {
				group.Annotations[k] = v
			}
		}
		out.Group = &group
	}

	return &out
}

// ProfileMetadata is the compiled metadata for one profile context: an
// ordered sequence of attribute metadata.
type ProfileMetadata struct {
	ContextID  string               `json:"contextId"`
	Attributes []*AttributeMetadata `json:"attributes"`
}

// NewProfile returns profile metadata for the given context.
func NewProfile(contextID string, attributes ...*AttributeMetadata) *ProfileMetadata {
	return &ProfileMetadata{ContextID: contextID, Attributes: attributes}
}

// Attribute returns every entry registered under the given name. A context
// may register more than one entry for the same attribute.
func (p *ProfileMetadata) Attribute(name string) []*AttributeMetadata {
	var out []*AttributeMetadata
	for _, attr := range p.Attributes {
		if attr.Name == name {
			out = append(out, attr)
		}
	}
	return out
}

// AddAttribute appends an entry and returns it for further decoration.
func (p *ProfileMetadata) AddAttribute(attr *AttributeMetadata) *AttributeMetadata {
	p.Attributes = append(p.Attributes, attr)
	return attr
}

// RemoveAttribute drops every entry with the given name.
func (p *ProfileMetadata) RemoveAttribute(name string) {
	kept := p.Attributes[:0]
	for _, attr := range p.Attributes {
		if attr.Name != name {
			kept = append(kept, attr)
		}
	}
	p.Attributes = kept
}

// Clone deep-copies the profile so a compilation can decorate its own
// working copy without touching the base metadata.
func (p *ProfileMetadata) Clone() *ProfileMetadata {
	out := &ProfileMetadata{ContextID: p.ContextID}
	if p.Attributes != nil {
		out.Attributes = make([]*AttributeMetadata, len(p.Attributes))
		for i, attr := range p.Attributes {
			out.Attributes[i] = attr.Clone()
		}
	}
	return out
}

// Decorator is a hook collaborators (for instance a storage backend) use to
// further decorate a compiled profile after all configuration-driven
// decoration. Decoration must be additive.
type Decorator interface {
	Decorate(contextID string, profile *ProfileMetadata)
}

// DecoratorFunc adapts a function to the Decorator interface.
type DecoratorFunc func(contextID string, profile *ProfileMetadata)

// Decorate implements Decorator.
func (f DecoratorFunc) Decorate(contextID string, profile *ProfileMetadata) {
	f(contextID, profile)
}
