package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidBinding = errors.New("invalid binding")

	// ErrEntityNotFound means an identifier was supplied but no record answered it.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrAmbiguousPrimary means zero or several owned records carry the primary flag.
	ErrAmbiguousPrimary = errors.New("primary record is ambiguous")
	ErrDatasetMiss      = errors.New("dataset miss")

	ErrAssistingServiceUnavailable = errors.New("assisting service unavailable")
)

// ConfigurationError reports an invalid entity registry or prefix rule table.
// It is the only error in the binding engine that aborts an operation.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid binding configuration: %s", strings.Join(e.Problems, "; "))
}

// NewConfigurationError returns nil when problems is empty.
func NewConfigurationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ConfigurationError{Problems: problems}
}

// IsConfigurationError reports whether err wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
