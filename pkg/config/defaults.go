package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Telemetry defaults
	DefaultServiceName         = "sentinel"
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "sentinel"
	DefaultMetricsSubsystem    = "auth"
	DefaultMaxOperations       = 1000
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingTimeout      = 10 * time.Second

	// Health defaults
	DefaultHealthCheckTimeout = 5 * time.Second
	DefaultMemoryThresholdMB  = 512
	DefaultTokenSecret        = "sentinel-self-test-key"
	DefaultBreakerFailures    = 3
	DefaultBreakerCooldown    = 30 * time.Second

	// Performance defaults
	DefaultWindowSize    = 100
	DefaultOutlierFactor = 2.0

	// Audit defaults
	DefaultAuditSalt              = "sentinel-default-salt"
	DefaultAuditBackend           = "none"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultAuditSQLiteDriver      = "sqlite3"
	DefaultAuditSQLiteMaxOpen     = 10
	DefaultAuditSQLiteMaxIdle     = 5
	DefaultAuditSQLiteBusyTimeout = 5 * time.Second
	DefaultAuditRetentionDays     = 90
	DefaultAuditRetentionSchedule = "0 3 * * *"

	// Error aggregation defaults
	DefaultErrorAlertThreshold = 10
	DefaultErrorStackDepth     = 3
	DefaultMaxSignatures       = 10000
	DefaultSweepSchedule       = "@every 1m"
)

// DefaultDurationBuckets are the histogram buckets for authentication
// operation latencies (5ms - 5s).
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Default returns a configuration populated with every default, including
// the settings whose zero value is meaningful. YAML is decoded on top of it so
// that fields omitted from the file keep their defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.DebugEndpoints = true
	cfg.Telemetry.Logging.RedactPII = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.Insecure = true
	cfg.Audit.Storage.SQLite.WALMode = true
	cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Metrics.MaxOperations == 0 {
		cfg.Telemetry.Metrics.MaxOperations = DefaultMaxOperations
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}

	// Health defaults
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if cfg.Telemetry.Health.MemoryThresholdMB == 0 {
		cfg.Telemetry.Health.MemoryThresholdMB = DefaultMemoryThresholdMB
	}
	if cfg.Telemetry.Health.TokenSecret == "" {
		cfg.Telemetry.Health.TokenSecret = DefaultTokenSecret
	}
	if cfg.Telemetry.Health.BreakerFailures == 0 {
		cfg.Telemetry.Health.BreakerFailures = DefaultBreakerFailures
	}
	if cfg.Telemetry.Health.BreakerCooldown == 0 {
		cfg.Telemetry.Health.BreakerCooldown = DefaultBreakerCooldown
	}

	// Performance defaults
	if cfg.Performance.WindowSize == 0 {
		cfg.Performance.WindowSize = DefaultWindowSize
	}
	if cfg.Performance.OutlierFactor == 0 {
		cfg.Performance.OutlierFactor = DefaultOutlierFactor
	}

	// Audit defaults
	if cfg.Audit.Salt == "" {
		cfg.Audit.Salt = DefaultAuditSalt
	}
	if cfg.Audit.Storage.Backend == "" {
		cfg.Audit.Storage.Backend = DefaultAuditBackend
	}
	applySQLiteDefaults(&cfg.Audit.Storage.SQLite)
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}

	// Error aggregation defaults
	if cfg.Errors.AlertThreshold == 0 {
		cfg.Errors.AlertThreshold = DefaultErrorAlertThreshold
	}
	if cfg.Errors.StackDepth == 0 {
		cfg.Errors.StackDepth = DefaultErrorStackDepth
	}
	if cfg.Errors.MaxSignatures == 0 {
		cfg.Errors.MaxSignatures = DefaultMaxSignatures
	}
	if cfg.Errors.SweepSchedule == "" {
		cfg.Errors.SweepSchedule = DefaultSweepSchedule
	}
}

func applySQLiteDefaults(cfg *SQLiteConfig) {
	if cfg.Path == "" {
		cfg.Path = DefaultAuditSQLitePath
	}
	if cfg.Driver == "" {
		cfg.Driver = DefaultAuditSQLiteDriver
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultAuditSQLiteMaxOpen
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = DefaultAuditSQLiteMaxIdle
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
}
