package contracts

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid run request: inverted window,
// unknown dataset or price area, bad grain. Fatal, never retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NewConfigurationError builds a ConfigurationError with a formatted message.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// SourceUnavailableError reports that the upstream source stayed
// unreachable after retries were exhausted. Fatal for the affected
// dataset's window only; sibling datasets continue.
type SourceUnavailableError struct {
	Dataset Dataset
	Err     error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable for dataset %s: %v", e.Dataset, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// IsSourceUnavailable reports whether err is a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}
