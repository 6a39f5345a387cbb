// Package policy holds the declarative attribute-policy configuration model:
// the structures parsed from the raw JSON document an operator submits, the
// reserved-attribute sets, and the semantic validation run before any
// compilation. The structures carry no behavior beyond lookup and cloning;
// translating them into executable metadata is the compiler's job.
package policy

// Config is the parsed attribute-policy configuration for one realm.
// It mirrors the JSON document stored in the profile_configs table.
type Config struct {
	// Attributes is the ordered list of declared attributes. Declaration
	// order drives the GUI order assigned during compilation.
	Attributes []AttributeConfig `json:"attributes"`

	// Groups declares the attribute groups referenced by Attributes.
	Groups []GroupConfig `json:"groups,omitempty"`
}

// AttributeConfig declares the policy for a single named attribute.
type AttributeConfig struct {
	// Name is the unique attribute identifier. Required.
	Name string `json:"name"`

	// DisplayName is an optional human-readable label.
	DisplayName string `json:"displayName,omitempty"`

	// Group is an optional reference to a GroupConfig by name.
	Group string `json:"group,omitempty"`

	// Permissions lists the roles allowed to view/edit the attribute.
	Permissions *Permissions `json:"permissions,omitempty"`

	// Required declares when the attribute must be provided.
	Required *RequiredRule `json:"required,omitempty"`

	// Selector restricts when the attribute is offered at all.
	Selector *SelectorRule `json:"selector,omitempty"`

	// Validations maps validator ids to their opaque configuration.
	// Validator logic lives in the host environment; only the ids and
	// configs are carried here.
	Validations map[string]map[string]any `json:"validations,omitempty"`

	// Annotations is free-form metadata passed through to consumers.
	Annotations map[string]any `json:"annotations,omitempty"`
}

// Permissions holds the role sets gating read and write access.
type Permissions struct {
	View []string `json:"view,omitempty"`
	Edit []string `json:"edit,omitempty"`
}

// IsEmpty reports whether no roles are configured at all.
func (p *Permissions) IsEmpty() bool {
	return p == nil || (len(p.View) == 0 && len(p.Edit) == 0)
}

// RequiredRule declares when an attribute is required.
type RequiredRule struct {
	// Always marks the attribute unconditionally required.
	Always bool `json:"always,omitempty"`

	// Roles makes the attribute required in contexts matching any of the
	// given context roles.
	Roles []string `json:"roles,omitempty"`

	// Scopes makes the attribute required when any of the given scopes is
	// requested. Only meaningful for contexts reachable from an
	// authentication flow.
	Scopes []string `json:"scopes,omitempty"`
}

// SelectorRule restricts when an attribute is offered.
type SelectorRule struct {
	Scopes []string `json:"scopes,omitempty"`
}

// GroupConfig declares an attribute group.
type GroupConfig struct {
	Name               string         `json:"name"`
	DisplayHeader      string         `json:"displayHeader,omitempty"`
	DisplayDescription string         `json:"displayDescription,omitempty"`
	Annotations        map[string]any `json:"annotations,omitempty"`
}

// Attribute returns the declared attribute with the given name, or nil.
func (c *Config) Attribute(name string) *AttributeConfig {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return &c.Attributes[i]
		}
	}
	return nil
}

// Group returns the declared group with the given name, or nil.
func (c *Config) Group(name string) *GroupConfig {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Callers receive clones rather than the live
// configuration held by the provider, so mutating a returned config can
// never corrupt cached state.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	out := &Config{}

	if c.Attributes != nil {
		out.Attributes = make([]AttributeConfig, len(c.Attributes))
		for i := range c.Attributes {
			out.Attributes[i] = c.Attributes[i].clone()
		}
	}

	if c.Groups != nil {
		out.Groups = make([]GroupConfig, len(c.Groups))
		for i := range c.Groups {
			g := c.Groups[i]
			g.Annotations = cloneAnyMap(g.Annotations)
			out.Groups[i] = g
		}
	}

	return out
}

func (a AttributeConfig) clone() AttributeConfig {
	out := a

	if a.Permissions != nil {
		out.Permissions = &Permissions{
			View: cloneStrings(a.Permissions.View),
			Edit: cloneStrings(a.Permissions.Edit),
		}
	}

	if a.Required != nil {
		out.Required = &RequiredRule{
			Always: a.Required.Always,
			Roles:  cloneStrings(a.Required.Roles),
			Scopes: cloneStrings(a.Required.Scopes),
		}
	}

	if a.Selector != nil {
		out.Selector = &SelectorRule{Scopes: cloneStrings(a.Selector.Scopes)}
	}

	if a.Validations != nil {
		out.Validations = make(map[string]map[string]any, len(a.Validations))
		for id, cfg := range a.Validations {
			out.Validations[id] = cloneAnyMap(cfg)
		}
	}

	out.Annotations = cloneAnyMap(a.Annotations)

	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
