package policy

import "fmt"

// ValidatorRegistry answers whether a validator id is known to the host
// environment. The engine only checks existence here; it never executes
// validators.
type ValidatorRegistry interface {
	Has(id string) bool
}

// RegistryFunc adapts a plain function to a ValidatorRegistry.
type RegistryFunc func(id string) bool

// Has implements ValidatorRegistry.
func (f RegistryFunc) Has(id string) bool { return f(id) }

// StaticRegistry builds a registry from a fixed list of validator ids.
func StaticRegistry(ids ...string) ValidatorRegistry {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return RegistryFunc(func(id string) bool {
		_, ok := known[id]
		return ok
	})
}

// ValidationError describes one semantic violation in a configuration.
type ValidationError struct {
	// Attribute is the attribute the violation was found on, when any.
	Attribute string `json:"attribute,omitempty"`

	// Message describes the violation.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Attribute == "" {
		return e.Message
	}
	return fmt.Sprintf("attribute %q: %s", e.Attribute, e.Message)
}

// Validate checks a parsed configuration for semantic correctness. It
// returns every violation found rather than stopping at the first, so
// operators can fix a configuration in one pass. An empty result means the
// configuration is usable.
//
// Validate is deterministic and side-effect free. The compile path re-runs
// it on every cache recompute, not only on submission, so a configuration
// that became invalid in place (for instance a deregistered validator)
// surfaces on next access.
func Validate(cfg *Config, validators ValidatorRegistry) []ValidationError {
	if cfg == nil {
		return []ValidationError{{Message: "configuration is missing"}}
	}

	var errs []ValidationError

	seenAttrs := make(map[string]struct{}, len(cfg.Attributes))
	for i := range cfg.Attributes {
		attr := &cfg.Attributes[i]

		if attr.Name == "" {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("attribute at index %d has no name", i)})
			continue
		}

		if _, dup := seenAttrs[attr.Name]; dup {
			errs = append(errs, ValidationError{
				Attribute: attr.Name,
				Message:   "duplicate attribute name",
			})
		}
		seenAttrs[attr.Name] = struct{}{}

		for _, id := range SortedValidationIDs(attr.Validations) {
			if !validators.Has(id) {
				errs = append(errs, ValidationError{
					Attribute: attr.Name,
					Message:   fmt.Sprintf("unknown validator %q", id),
				})
			}
		}

		if attr.Group != "" && cfg.Group(attr.Group) == nil {
			errs = append(errs, ValidationError{
				Attribute: attr.Name,
				Message:   fmt.Sprintf("unresolved group reference %q", attr.Group),
			})
		}
	}

	seenGroups := make(map[string]struct{}, len(cfg.Groups))
	for i := range cfg.Groups {
		name := cfg.Groups[i].Name
		if name == "" {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("group at index %d has no name", i)})
			continue
		}
		if _, dup := seenGroups[name]; dup {
			errs = append(errs, ValidationError{Message: fmt.Sprintf("duplicate group name %q", name)})
		}
		seenGroups[name] = struct{}{}
	}

	return errs
}
