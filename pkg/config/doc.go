// Package config provides configuration management for Sentinel.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Every setting has a default,
// so a missing configuration file is not an error: Sentinel starts with the
// defaults and whatever environment overrides are present.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("sentinel.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("sentinel.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SENTINEL_SECTION_FIELD.
// For example:
//
//   - SENTINEL_AUDIT_SALT overrides audit.salt
//   - SENTINEL_ERRORS_ALERT_THRESHOLD overrides errors.alert_threshold
//   - SENTINEL_PERFORMANCE_WINDOW_SIZE overrides performance.window_size
//   - SENTINEL_HEALTH_MEMORY_THRESHOLD_MB overrides telemetry.health.memory_threshold_mb
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// A Watcher observes the configuration file with fsnotify and reloads it on
// change. Subscribers receive the new configuration; only settings that are
// safe to change at runtime (log level, error alert threshold) are applied by
// the serve command.
package config
