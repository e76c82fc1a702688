package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigInvalid marks a desired-state document that is absent, malformed or
	// missing fields required by the selected backend.
	ErrConfigInvalid = errors.New("configuration invalid")
	// ErrRemoteExec marks a failed command on the legacy target host.
	ErrRemoteExec = errors.New("remote execution failed")
	// ErrUpstream marks a failure reported by an orchestrator, Docker daemon or DNS API.
	ErrUpstream = errors.New("upstream resource failed")

	ErrStateNotFound = errors.New("resource state not found")
)

// ConfigError reports the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %s", e.Reason)
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfigInvalid }

// NewConfigError returns a ConfigError for field with a formatted reason.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
