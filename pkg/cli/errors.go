package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitUnhealthy = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UnhealthyError reports a health check whose overall status is not healthy.
type UnhealthyError struct {
	Status string
}

func (e *UnhealthyError) Error() string {
	return "health check status: " + e.Status
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	var (
		cfgErr       *ConfigError
		unhealthyErr *UnhealthyError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &unhealthyErr):
		return ExitUnhealthy
	default:
		return ExitFailure
	}
}
