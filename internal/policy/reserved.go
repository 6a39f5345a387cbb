package policy

// Standard attribute names used by the default reserved set. The engine
// itself never hard-codes these outside DefaultReserved; the compiler works
// against whatever ReservedSet it was constructed with, which keeps the
// merge logic testable against alternate attribute sets.
const (
	AttributeUsername  = "username"
	AttributeEmail     = "email"
	AttributeFirstName = "firstName"
	AttributeLastName  = "lastName"
)

// ReservedSet names the attributes with special handling during compilation:
// the identifier and contact-address attributes are always present and get
// default-permission and required-rule overrides; optional reserved
// attributes are present by default but removable by omission from
// configuration.
type ReservedSet struct {
	identifier string
	contact    string
	optional   map[string]struct{}
}

// NewReservedSet builds a reserved set from the identifier attribute name,
// the contact-address attribute name, and any optional reserved names.
func NewReservedSet(identifier, contact string, optional ...string) ReservedSet {
	set := ReservedSet{
		identifier: identifier,
		contact:    contact,
		optional:   make(map[string]struct{}, len(optional)),
	}
	for _, name := range optional {
		set.optional[name] = struct{}{}
	}
	return set
}

// DefaultReserved is the standard reserved set: username as the identifier,
// email as the contact address, given/family name as optional.
func DefaultReserved() ReservedSet {
	return NewReservedSet(AttributeUsername, AttributeEmail, AttributeFirstName, AttributeLastName)
}

// Identifier returns the identifier attribute name.
func (r ReservedSet) Identifier() string { return r.identifier }

// Contact returns the contact-address attribute name.
func (r ReservedSet) Contact() string { return r.contact }

// IsReserved reports whether name is a mandatory reserved attribute.
func (r ReservedSet) IsReserved(name string) bool {
	return name == r.identifier || name == r.contact
}

// IsOptionalReserved reports whether name is an optional reserved attribute.
func (r ReservedSet) IsOptionalReserved(name string) bool {
	_, ok := r.optional[name]
	return ok
}
