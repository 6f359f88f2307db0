package protocol

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks structurally invalid action configurations: missing
// required fields, unresolvable target types. Always caught at the handler
// boundary and recorded as a failed step.
var ErrInvalidConfig = errors.New("invalid action configuration")

// ConfigError carries the offending field alongside ErrInvalidConfig.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid action configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a configuration error for one field.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}
