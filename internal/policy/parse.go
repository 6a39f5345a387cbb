package policy

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a raw configuration document that fails to parse into
// the structural model. It is fatal at the point of use and never retried.
var ErrMalformed = errors.New("malformed profile configuration")

// Parse deserializes a raw configuration document.
// Structural failures wrap ErrMalformed; semantic checks are a separate
// concern handled by Validate.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &cfg, nil
}

// MustParse parses a document known to be valid at build time, such as the
// embedded default configuration. It panics on failure.
func MustParse(raw []byte) *Config {
	cfg, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return cfg
}
