package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// A missing file is not an error: the defaults are returned instead. An empty
// path also selects the defaults.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		default:
			// Decode on top of the defaults so omitted fields keep them
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
			}
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SENTINEL_SECTION_FIELD (e.g., SENTINEL_AUDIT_SALT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (if present)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SENTINEL_SECTION_FIELD.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SENTINEL_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SENTINEL_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SENTINEL_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SENTINEL_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envBool("SENTINEL_SERVER_DEBUG_ENDPOINTS", &cfg.Server.DebugEndpoints)

	// Telemetry overrides
	envString("SENTINEL_TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	envString("SENTINEL_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("SENTINEL_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("SENTINEL_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("SENTINEL_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("SENTINEL_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envBool("SENTINEL_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("SENTINEL_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("SENTINEL_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("SENTINEL_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envDuration("SENTINEL_HEALTH_CHECK_TIMEOUT", &cfg.Telemetry.Health.CheckTimeout)
	envInt("SENTINEL_HEALTH_MEMORY_THRESHOLD_MB", &cfg.Telemetry.Health.MemoryThresholdMB)
	envString("SENTINEL_HEALTH_TOKEN_SECRET", &cfg.Telemetry.Health.TokenSecret)

	// Performance overrides
	envInt("SENTINEL_PERFORMANCE_WINDOW_SIZE", &cfg.Performance.WindowSize)
	envFloat("SENTINEL_PERFORMANCE_OUTLIER_FACTOR", &cfg.Performance.OutlierFactor)

	// Audit overrides
	envString("SENTINEL_AUDIT_SALT", &cfg.Audit.Salt)
	envString("SENTINEL_AUDIT_STORAGE_BACKEND", &cfg.Audit.Storage.Backend)
	envString("SENTINEL_AUDIT_SQLITE_PATH", &cfg.Audit.Storage.SQLite.Path)
	envString("SENTINEL_AUDIT_SQLITE_DRIVER", &cfg.Audit.Storage.SQLite.Driver)
	envInt("SENTINEL_AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("SENTINEL_AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)
	envString("SENTINEL_AUDIT_ARCHIVE_PATH", &cfg.Audit.Retention.ArchivePath)

	// Error aggregation overrides
	envInt("SENTINEL_ERRORS_ALERT_THRESHOLD", &cfg.Errors.AlertThreshold)
	envInt("SENTINEL_ERRORS_STACK_DEPTH", &cfg.Errors.StackDepth)
	envInt("SENTINEL_ERRORS_MAX_SIGNATURES", &cfg.Errors.MaxSignatures)
	envDuration("SENTINEL_ERRORS_SIGNATURE_TTL", &cfg.Errors.SignatureTTL)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
