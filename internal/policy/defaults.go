package policy

import "sort"

// Validator ids referenced by the default configuration. Their
// implementations live in the host environment; the ids are listed here so
// DefaultValidatorRegistry can vouch for them.
const (
	ValidatorLength               = "length"
	ValidatorEmailFormat          = "email-format"
	ValidatorUsernameProhibited   = "username-prohibited-characters"
	ValidatorPersonNameProhibited = "person-name-prohibited-characters"
)

// DefaultValidatorRegistry recognizes the validator ids used by the default
// configuration. Hosts typically wrap this with their own registry.
func DefaultValidatorRegistry() ValidatorRegistry {
	return StaticRegistry(
		ValidatorLength,
		ValidatorEmailFormat,
		ValidatorUsernameProhibited,
		ValidatorPersonNameProhibited,
	)
}

// DefaultConfig is the built-in configuration in effect when a realm has no
// user-defined document. It declares the reserved attributes with their
// default validations; its validations double as the "default built-in
// definition" the merger consults when deciding which base validators a
// user-defined attribute supersedes.
func DefaultConfig() *Config {
	return &Config{
		Attributes: []AttributeConfig{
			{
				Name:        AttributeUsername,
				DisplayName: "${username}",
				Permissions: &Permissions{
					View: []string{"admin", "user"},
					Edit: []string{"admin", "user"},
				},
				Validations: map[string]map[string]any{
					ValidatorLength:             {"min": 3, "max": 255},
					ValidatorUsernameProhibited: {},
				},
			},
			{
				Name:        AttributeEmail,
				DisplayName: "${email}",
				Required:    &RequiredRule{Roles: []string{"user"}},
				Permissions: &Permissions{
					View: []string{"admin", "user"},
					Edit: []string{"admin", "user"},
				},
				Validations: map[string]map[string]any{
					ValidatorEmailFormat: {},
					ValidatorLength:      {"max": 255},
				},
			},
			{
				Name:        AttributeFirstName,
				DisplayName: "${firstName}",
				Required:    &RequiredRule{Roles: []string{"user"}},
				Permissions: &Permissions{
					View: []string{"admin", "user"},
					Edit: []string{"admin", "user"},
				},
				Validations: map[string]map[string]any{
					ValidatorLength:               {"max": 255},
					ValidatorPersonNameProhibited: {},
				},
			},
			{
				Name:        AttributeLastName,
				DisplayName: "${lastName}",
				Required:    &RequiredRule{Roles: []string{"user"}},
				Permissions: &Permissions{
					View: []string{"admin", "user"},
					Edit: []string{"admin", "user"},
				},
				Validations: map[string]map[string]any{
					ValidatorLength:               {"max": 255},
					ValidatorPersonNameProhibited: {},
				},
			},
		},
	}
}

// SortedValidationIDs returns the validator ids of a validations map in
// lexicographic order. Map iteration order is random; compilation and
// validation both need a deterministic ordering so compiling the same
// configuration twice yields structurally equal output.
func SortedValidationIDs(validations map[string]map[string]any) []string {
	if len(validations) == 0 {
		return nil
	}
	ids := make([]string, 0, len(validations))
	for id := range validations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
