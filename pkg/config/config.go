package config

import "time"

// Config is the root configuration structure for Sentinel.
type Config struct {
	// Server contains the operational HTTP server configuration (health,
	// readiness, metrics and debug snapshot endpoints).
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health checking.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Performance contains sliding-window latency statistics configuration.
	Performance PerformanceConfig `yaml:"performance"`

	// Audit contains security audit logging configuration.
	Audit AuditConfig `yaml:"audit"`

	// Errors contains error aggregation configuration.
	Errors ErrorsConfig `yaml:"errors"`
}

// ServerConfig contains configuration for the operational HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// DebugEndpoints exposes the /debug/telemetry snapshot routes.
	// Default: true
	DebugEndpoints bool `yaml:"debug_endpoints"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// ServiceName identifies this process in traces and metrics.
	// Default: "sentinel"
	ServiceName string `yaml:"service_name"`

	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables regex-based PII redaction of log fields.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether Prometheus metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "sentinel"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "auth"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for operation duration (seconds).
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// MaxOperations caps the number of distinct operation label values.
	// Operations beyond the cap are reported as "other".
	// Default: 1000
	MaxOperations int `yaml:"max_operations"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout is the timeout for individual probes.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// MemoryThresholdMB is the heap usage above which the memory probe
	// reports degraded.
	// Default: 512
	MemoryThresholdMB int `yaml:"memory_threshold_mb"`

	// TokenSecret is the HMAC key used by the token subsystem self-test.
	// Default: a fixed development key; override in production.
	TokenSecret string `yaml:"token_secret"`

	// BreakerFailures is the number of consecutive dependency probe failures
	// that opens the probe's circuit breaker.
	// Default: 3
	BreakerFailures int `yaml:"breaker_failures"`

	// BreakerCooldown is how long an open breaker waits before letting a
	// trial probe through.
	// Default: 30s
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// PerformanceConfig contains configuration for the sliding-window recorder.
type PerformanceConfig struct {
	// WindowSize is the number of samples retained per operation name.
	// Default: 100
	WindowSize int `yaml:"window_size"`

	// OutlierFactor is the multiple of p95 above which a sample raises a
	// performance alert.
	// Default: 2.0
	OutlierFactor float64 `yaml:"outlier_factor"`
}

// AuditConfig contains security audit logging configuration.
type AuditConfig struct {
	// Salt keys the hash used to redact email, IP and user-agent values.
	// Default: "sentinel-default-salt"
	Salt string `yaml:"salt"`

	// Storage configures optional persistence of audit entries.
	Storage AuditStorageConfig `yaml:"storage"`

	// Retention configures pruning of persisted audit entries.
	Retention AuditRetentionConfig `yaml:"retention"`
}

// AuditStorageConfig contains audit trail persistence configuration.
type AuditStorageConfig struct {
	// Backend selects the storage backend.
	// Options: "none", "memory", "sqlite"
	// Default: "none"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite database configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc.org/sqlite)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// AuditRetentionConfig contains audit retention configuration.
type AuditRetentionConfig struct {
	// Days is how long audit entries are kept (0 = forever).
	// Default: 90
	Days int `yaml:"days"`

	// MaxEntries caps the number of stored entries (0 = unlimited).
	// Default: 0
	MaxEntries int64 `yaml:"max_entries"`

	// Schedule is the cron expression for automatic pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// ArchivePath is a directory where pruned entries are written as JSON
	// before deletion. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// ErrorsConfig contains error aggregation configuration.
type ErrorsConfig struct {
	// AlertThreshold is the occurrence count at which a signature raises a
	// high-frequency alert.
	// Default: 10
	AlertThreshold int `yaml:"alert_threshold"`

	// StackDepth is the number of leading stack frames folded into a signature.
	// Default: 3
	StackDepth int `yaml:"stack_depth"`

	// MaxSignatures bounds the error count table. The least recently seen
	// signature is evicted when the table is full.
	// Default: 10000
	MaxSignatures int `yaml:"max_signatures"`

	// SignatureTTL evicts signatures not seen for this long (0 = never).
	// Default: 0
	SignatureTTL time.Duration `yaml:"signature_ttl"`

	// SweepSchedule is the cron expression for TTL sweeps.
	// Default: "@every 1m"
	SweepSchedule string `yaml:"sweep_schedule"`
}
