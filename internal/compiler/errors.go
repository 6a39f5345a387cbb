package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rafaeljc/mimir/internal/policy"
)

// Sentinel errors for errors.Is checks. The typed errors below wrap them and
// carry the detail.
var (
	ErrInvalidConfig    = errors.New("invalid profile configuration")
	ErrContextIntegrity = errors.New("context integrity fault")
)

// InvalidConfigError reports every semantic violation found in a
// configuration. Compilation never proceeds on an invalid configuration.
type InvalidConfigError struct {
	Errors []policy.ValidationError
}

// Error implements the error interface, listing all violations at once.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%v: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// ContextIntegrityError reports a reserved attribute that a context claims
// to support without providing a base metadata entry for it. This is a
// programmer/configuration error, not user input, and aborts compilation.
type ContextIntegrityError struct {
	ContextID string
	Attribute string
}

// Error implements the error interface.
func (e *ContextIntegrityError) Error() string {
	return fmt.Sprintf("%v: reserved attribute %q has no base metadata entry in context %q",
		ErrContextIntegrity, e.Attribute, e.ContextID)
}

// Unwrap lets errors.Is match ErrContextIntegrity.
func (e *ContextIntegrityError) Unwrap() error { return ErrContextIntegrity }
