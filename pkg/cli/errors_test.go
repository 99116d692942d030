package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		err  *ConfigError
		want string
	}{
		{err: NewConfigError("audit.salt", "must not be empty"), want: "config error in audit.salt: must not be empty"},
		{err: NewConfigError("", "file not found"), want: "config error: file not found"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("serve", underlyingErr)

	expected := "command serve failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("CommandError does not unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "generic", err: errors.New("boom"), want: ExitFailure},
		{name: "config", err: NewConfigError("x", "y"), want: ExitConfig},
		{name: "wrapped config", err: fmt.Errorf("load: %w", NewConfigError("x", "y")), want: ExitConfig},
		{name: "unhealthy", err: &UnhealthyError{Status: "degraded"}, want: ExitUnhealthy},
		{name: "command", err: NewCommandError("audit", errors.New("locked")), want: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
