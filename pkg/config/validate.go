package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "audit.salt").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// cronParser accepts the same expressions as the schedulers that consume them.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validatePerformance(&cfg.Performance)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateErrors(&cfg.Errors)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must not be negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must not be negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	// Validate metrics
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: fmt.Sprintf("metrics path %q must start with '/'", cfg.Metrics.Path),
		})
	}
	if cfg.Metrics.MaxOperations < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.max_operations",
			Message: "max operations must not be negative",
		})
	}

	// Validate tracing
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health
	if cfg.Health.CheckTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be positive",
		})
	}
	if cfg.Health.MemoryThresholdMB <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.memory_threshold_mb",
			Message: "memory threshold must be positive",
		})
	}
	if cfg.Health.BreakerFailures <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.breaker_failures",
			Message: "breaker failures must be positive",
		})
	}

	return errs
}

func validatePerformance(cfg *PerformanceConfig) []FieldError {
	var errs []FieldError

	if cfg.WindowSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "performance.window_size",
			Message: "window size must be positive",
		})
	}
	if cfg.OutlierFactor <= 1.0 {
		errs = append(errs, FieldError{
			Field:   "performance.outlier_factor",
			Message: "outlier factor must be greater than 1.0",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if cfg.Salt == "" {
		errs = append(errs, FieldError{Field: "audit.salt", Message: "salt is required"})
	}

	validBackends := map[string]bool{"none": true, "memory": true, "sqlite": true}
	if !validBackends[cfg.Storage.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'none', 'memory', or 'sqlite'", cfg.Storage.Backend),
		})
	}

	if cfg.Storage.Backend == "sqlite" {
		if cfg.Storage.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "audit.storage.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
		if !validDrivers[cfg.Storage.SQLite.Driver] {
			errs = append(errs, FieldError{
				Field:   "audit.storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.Storage.SQLite.Driver),
			})
		}
		if cfg.Storage.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "audit.storage.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "retention days must not be negative"})
	}
	if cfg.Retention.MaxEntries < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_entries", Message: "max entries must not be negative"})
	}
	if _, err := cronParser.Parse(cfg.Retention.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "audit.retention.schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.Schedule, err),
		})
	}

	return errs
}

func validateErrors(cfg *ErrorsConfig) []FieldError {
	var errs []FieldError

	if cfg.AlertThreshold < 1 {
		errs = append(errs, FieldError{Field: "errors.alert_threshold", Message: "alert threshold must be at least 1"})
	}
	if cfg.StackDepth < 1 {
		errs = append(errs, FieldError{Field: "errors.stack_depth", Message: "stack depth must be at least 1"})
	}
	if cfg.MaxSignatures < 1 {
		errs = append(errs, FieldError{Field: "errors.max_signatures", Message: "max signatures must be at least 1"})
	}
	if cfg.SignatureTTL < 0 {
		errs = append(errs, FieldError{Field: "errors.signature_ttl", Message: "signature ttl must not be negative"})
	}
	if _, err := cronParser.Parse(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "errors.sweep_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.SweepSchedule, err),
		})
	}

	return errs
}
