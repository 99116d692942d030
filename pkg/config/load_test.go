package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:8081"
performance:
  window_size: 50
  outlier_factor: 3.0
audit:
  salt: "pepper"
  storage:
    backend: sqlite
    sqlite:
      path: /tmp/audit.db
      driver: sqlite
errors:
  alert_threshold: 5
  signature_ttl: 1h
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8081" {
		t.Errorf("listen address = %q, want 0.0.0.0:8081", cfg.Server.ListenAddress)
	}
	if cfg.Performance.WindowSize != 50 {
		t.Errorf("window size = %d, want 50", cfg.Performance.WindowSize)
	}
	if cfg.Performance.OutlierFactor != 3.0 {
		t.Errorf("outlier factor = %v, want 3.0", cfg.Performance.OutlierFactor)
	}
	if cfg.Audit.Salt != "pepper" {
		t.Errorf("salt = %q, want pepper", cfg.Audit.Salt)
	}
	if cfg.Audit.Storage.SQLite.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Audit.Storage.SQLite.Driver)
	}
	if cfg.Errors.AlertThreshold != 5 {
		t.Errorf("alert threshold = %d, want 5", cfg.Errors.AlertThreshold)
	}
	if cfg.Errors.SignatureTTL != time.Hour {
		t.Errorf("signature ttl = %v, want 1h", cfg.Errors.SignatureTTL)
	}

	// Omitted fields keep their defaults
	if cfg.Errors.StackDepth != DefaultErrorStackDepth {
		t.Errorf("stack depth = %d, want %d", cfg.Errors.StackDepth, DefaultErrorStackDepth)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should stay enabled when omitted")
	}
	if !cfg.Audit.Storage.SQLite.WALMode {
		t.Error("WAL mode should stay enabled when omitted")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Performance.WindowSize != DefaultWindowSize {
		t.Errorf("window size = %d, want %d", cfg.Performance.WindowSize, DefaultWindowSize)
	}
	if cfg.Performance.OutlierFactor != DefaultOutlierFactor {
		t.Errorf("outlier factor = %v, want %v", cfg.Performance.OutlierFactor, DefaultOutlierFactor)
	}
	if cfg.Errors.AlertThreshold != DefaultErrorAlertThreshold {
		t.Errorf("alert threshold = %d, want %d", cfg.Errors.AlertThreshold, DefaultErrorAlertThreshold)
	}
	if cfg.Errors.MaxSignatures != DefaultMaxSignatures {
		t.Errorf("max signatures = %d, want %d", cfg.Errors.MaxSignatures, DefaultMaxSignatures)
	}
	if cfg.Telemetry.Health.MemoryThresholdMB != DefaultMemoryThresholdMB {
		t.Errorf("memory threshold = %d, want %d", cfg.Telemetry.Health.MemoryThresholdMB, DefaultMemoryThresholdMB)
	}
	if cfg.Audit.Retention.Schedule != DefaultAuditRetentionSchedule {
		t.Errorf("retention schedule = %q, want %q", cfg.Audit.Retention.Schedule, DefaultAuditRetentionSchedule)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
performance:
  outlier_factor: 0.5
audit:
  storage:
    backend: postgres
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("got %d field errors, want 2: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
audit:
  salt: "from-file"
`)

	t.Setenv("SENTINEL_AUDIT_SALT", "from-env")
	t.Setenv("SENTINEL_ERRORS_ALERT_THRESHOLD", "25")
	t.Setenv("SENTINEL_PERFORMANCE_WINDOW_SIZE", "not-a-number")
	t.Setenv("SENTINEL_LOGGING_LEVEL", "debug")
	t.Setenv("SENTINEL_SERVER_DEBUG_ENDPOINTS", "false")
	t.Setenv("SENTINEL_ERRORS_SIGNATURE_TTL", "30m")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Audit.Salt != "from-env" {
		t.Errorf("salt = %q, want from-env", cfg.Audit.Salt)
	}
	if cfg.Errors.AlertThreshold != 25 {
		t.Errorf("alert threshold = %d, want 25", cfg.Errors.AlertThreshold)
	}
	if cfg.Performance.WindowSize != DefaultWindowSize {
		t.Errorf("unparseable override should be ignored, window size = %d", cfg.Performance.WindowSize)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Server.DebugEndpoints {
		t.Error("debug endpoints should be disabled by override")
	}
	if cfg.Errors.SignatureTTL != 30*time.Minute {
		t.Errorf("signature ttl = %v, want 30m", cfg.Errors.SignatureTTL)
	}
}

func TestLoadConfigWithEnvOverrides_Invalid(t *testing.T) {
	t.Setenv("SENTINEL_ERRORS_ALERT_THRESHOLD", "-3")

	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Fatal("expected validation error after overrides, got nil")
	}
}
