// Package compiler translates a validated attribute-policy configuration
// into per-context profile metadata: predicates gating read/write/required/
// selection access plus the compiled validator attachments. It also folds
// the result into the context's base metadata, applying the
// reserved-attribute exceptions.
//
// Compilation is a pure computation over immutable inputs. It decorates a
// clone of the base metadata and returns it; publishing the result is the
// cache's concern.
package compiler

import (
	"github.com/rafaeljc/mimir/internal/metadata"
	"github.com/rafaeljc/mimir/internal/policy"
	"github.com/rafaeljc/mimir/internal/predicate"
	"github.com/rafaeljc/mimir/internal/validation"
)

// System validator ids the compiler attaches on its own. Like configured
// validators, only the ids are carried; the logic lives in the host.
const (
	// ValidatorRequiredByPolicy enforces the compiled required predicate.
	// Attached whenever an attribute declares a required rule.
	ValidatorRequiredByPolicy = "required-by-policy"

	// ValidatorImmutableAttribute rejects writes to attributes flagged
	// immutable by the host. Attached to every processed attribute.
	ValidatorImmutableAttribute = "immutable-attribute"
)

// ignoreEmptyValueKey is merged into every configured validator's config so
// host validators skip empty values (required-ness is enforced separately).
const ignoreEmptyValueKey = "ignore.empty.value"

// Compiler turns parsed configuration into compiled profile metadata.
// It is immutable after construction and safe for concurrent use.
type Compiler struct {
	reserved   policy.ReservedSet
	defaults   *policy.Config
	validators policy.ValidatorRegistry
	decorators []metadata.Decorator
}

// New creates a Compiler. The default configuration supplies the built-in
// validator attachments the merger treats as superseded when a reserved
// attribute re-specifies them. Decorators run after all configuration-driven
// decoration, in order.
func New(reserved policy.ReservedSet, defaults *policy.Config, validators policy.ValidatorRegistry, decorators ...metadata.Decorator) *Compiler {
	validation.AssertNotNil(defaults, "default configuration")
	if validators == nil {
		panic("compiler: validator registry cannot be nil")
	}

	return &Compiler{
		reserved:   reserved,
		defaults:   defaults,
		validators: validators,
		decorators: decorators,
	}
}

// Validate runs semantic validation against the compiler's registry.
func (c *Compiler) Validate(cfg *policy.Config) []policy.ValidationError {
	return policy.Validate(cfg, c.validators)
}

// Compile validates the configuration and compiles it for one context.
// Validation runs on every call, not only on submission, so a configuration
// that became invalid in place fails loudly on the next cache recompute.
func (c *Compiler) Compile(def metadata.ContextDefinition, cfg *policy.Config) (*metadata.ProfileMetadata, error) {
	if errs := c.Validate(cfg); len(errs) > 0 {
		return nil, &InvalidConfigError{Errors: errs}
	}

	profile := def.Base.Clone()
	profile.ContextID = def.Descriptor.ID

	c.reconcileBase(profile, cfg)

	guiOrder := 0
	for i := range cfg.Attributes {
		attrCfg := &cfg.Attributes[i]

		if !def.Descriptor.IsAttributeSupported(attrCfg.Name) {
			// Skipped attributes consume no GUI order slot.
			continue
		}
		guiOrder++

		if err := c.compileAttribute(def, cfg, profile, attrCfg, guiOrder); err != nil {
			return nil, err
		}
	}

	for _, d := range c.decorators {
		d.Decorate(profile.ContextID, profile)
	}

	return profile, nil
}

// reconcileBase applies the per-compilation pass over the base entries:
// optional reserved attributes are removed unconditionally (configuration is
// authoritative for optional built-ins; the compile loop re-adds the
// configured ones), and for reserved attributes the user re-declares, base
// validators re-specified by the default built-in definition are dropped so
// the user configuration fully supersedes them.
func (c *Compiler) reconcileBase(profile *metadata.ProfileMetadata, cfg *policy.Config) {
	// Removal compacts the attribute slice in place, so names are collected
	// first and dropped after the iteration.
	var drop []string

	for _, attr := range profile.Attributes {
		name := attr.Name

		switch {
		case c.reserved.IsReserved(name):
			if cfg.Attribute(name) == nil {
				continue
			}
			defaultAttr := c.defaults.Attribute(name)
			if defaultAttr == nil {
				continue
			}
			for _, id := range policy.SortedValidationIDs(defaultAttr.Validations) {
				attr.RemoveValidator(id)
			}
		case c.reserved.IsOptionalReserved(name):
			drop = append(drop, name)
		}
	}

	for _, name := range drop {
		profile.RemoveAttribute(name)
	}
}

func (c *Compiler) compileAttribute(def metadata.ContextDefinition, cfg *policy.Config, profile *metadata.ProfileMetadata, attrCfg *policy.AttributeConfig, guiOrder int) error {
	name := attrCfg.Name

	required := c.compileRequired(def.Descriptor, attrCfg.Required)
	readAllowed, writeAllowed := compilePermissions(attrCfg.Permissions)
	selected := c.compileSelector(def.Descriptor, name, attrCfg.Selector)
	validators := compileValidators(attrCfg)
	group := compileGroup(cfg, attrCfg.Group)

	if c.reserved.IsReserved(name) {
		// Reserved attributes are visible and editable by default absent
		// explicit restriction.
		if attrCfg.Permissions.IsEmpty() {
			readAllowed = predicate.AlwaysTrue
			writeAllowed = predicate.AlwaysTrue
		}

		switch name {
		case c.reserved.Identifier():
			// A realm synthesizing the identifier from the contact address
			// never asks the user for it.
			required = predicate.Not(predicate.IdentifierFromContact)
		case c.reserved.Contact():
			// Service accounts short-circuit first; the configured predicate
			// stays a sub-term of the composition. Evaluation order is
			// load-bearing here.
			required = predicate.And(
				predicate.Not(predicate.ServiceAccountTarget),
				predicate.Or(required, predicate.IdentifierFromContact),
			)
		}

		existing := profile.Attribute(name)
		if len(existing) == 0 {
			return &ContextIntegrityError{ContextID: def.Descriptor.ID, Attribute: name}
		}

		for _, attr := range existing {
			attr.AddAnnotations(attrCfg.Annotations).
				SetDisplayName(attrCfg.DisplayName).
				SetGUIOrder(guiOrder).
				SetGroup(group).
				SetReadAllowed(readAllowed).
				SetWriteAllowed(writeAllowed).
				AddValidators(validators...).
				SetRequired(required)
		}
		return nil
	}

	attr := metadata.NewAttribute(name)
	attr.SetGUIOrder(guiOrder).
		SetDisplayName(attrCfg.DisplayName).
		SetGroup(group).
		SetRequired(required).
		SetReadAllowed(readAllowed).
		SetWriteAllowed(writeAllowed).
		SetSelected(selected).
		AddValidators(validators...).
		AddAnnotations(attrCfg.Annotations)
	profile.AddAttribute(attr)

	return nil
}

// compileRequired builds the required predicate in precedence order: no rule
// means never required; an always/context-role match means required, demoted
// to a scope match (or to never, outside auth flows) when scopes are
// configured; otherwise a configured scope list alone requires the attribute
// when one of the scopes is requested.
func (c *Compiler) compileRequired(d metadata.Descriptor, rule *policy.RequiredRule) predicate.Predicate {
	if rule == nil {
		return predicate.AlwaysFalse
	}

	scoped := len(rule.Scopes) > 0

	if rule.Always || d.IsRoleForContext(rule.Roles) {
		if !scoped {
			return predicate.AlwaysTrue
		}
		if d.AuthFlow {
			return predicate.ScopeMatch(rule.Scopes)
		}
		// Scopes are meaningless outside an auth flow.
		return predicate.AlwaysFalse
	}

	if d.AuthFlow && scoped {
		return predicate.ScopeMatch(rule.Scopes)
	}

	return predicate.AlwaysFalse
}

// compilePermissions builds the read/write predicates. View defaults to
// whoever can edit, and editors can always also read.
func compilePermissions(perms *policy.Permissions) (read, write predicate.Predicate) {
	read = predicate.AlwaysFalse
	write = predicate.AlwaysFalse

	if perms == nil {
		return read, write
	}

	if len(perms.Edit) > 0 {
		write = predicate.RoleMatch(perms.Edit)
	}

	if len(perms.View) == 0 {
		read = write
	} else {
		read = predicate.Or(predicate.RoleMatch(perms.View), write)
	}

	return read, write
}

// compileSelector builds the selector predicate. Attributes are offered by
// default; a scope selector narrows that only for non-reserved attributes in
// contexts reachable from an auth flow.
func (c *Compiler) compileSelector(d metadata.Descriptor, name string, rule *policy.SelectorRule) predicate.Predicate {
	if rule != nil && !c.reserved.IsReserved(name) && d.AuthFlow && len(rule.Scopes) > 0 {
		return predicate.ScopeMatch(rule.Scopes)
	}
	return predicate.AlwaysTrue
}

// compileValidators builds the ordered validator attachments: the configured
// validators in deterministic id order, required-by-policy when a required
// rule exists, and the immutability validator for every attribute.
func compileValidators(attrCfg *policy.AttributeConfig) []metadata.ValidatorRef {
	refs := make([]metadata.ValidatorRef, 0, len(attrCfg.Validations)+2)

	for _, id := range policy.SortedValidationIDs(attrCfg.Validations) {
		refs = append(refs, configuredValidator(id, attrCfg.Validations[id]))
	}

	if attrCfg.Required != nil {
		refs = append(refs, metadata.ValidatorRef{ID: ValidatorRequiredByPolicy})
	}

	refs = append(refs, metadata.ValidatorRef{ID: ValidatorImmutableAttribute})

	return refs
}

func configuredValidator(id string, cfg map[string]any) metadata.ValidatorRef {
	compiled := make(map[string]any, len(cfg)+1)
	for k, v := range cfg {
		compiled[k] = v
	}
	compiled[ignoreEmptyValueKey] = true
	return metadata.ValidatorRef{ID: id, Config: compiled}
}

// compileGroup resolves a group reference. An unresolved reference compiles
// to no group.
func compileGroup(cfg *policy.Config, name string) *metadata.GroupMetadata {
	if name == "" {
		return nil
	}
	group := cfg.Group(name)
	if group == nil {
		return nil
	}

	meta := &metadata.GroupMetadata{
		Name:               group.Name,
		DisplayHeader:      group.DisplayHeader,
		DisplayDescription: group.DisplayDescription,
	}
	if group.Annotations != nil {
		meta.Annotations = make(map[string]any, len(group.Annotations))
		for k, v := range group.Annotations {
			meta.Annotations[k] = v
		}
	}
	return meta
}
