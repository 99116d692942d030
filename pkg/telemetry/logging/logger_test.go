package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/telemetry/correlation"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid JSON config", config: Config{Level: "info", Format: "json", RedactPII: true}},
		{name: "valid text config", config: Config{Level: "debug", Format: "text"}},
		{name: "uppercase level", config: Config{Level: "WARN", Format: "json"}},
		{name: "empty uses defaults", config: Config{}},
		{name: "invalid log level", config: Config{Level: "invalid", Format: "json"}, wantErr: true},
		{name: "invalid format", config: Config{Level: "info", Format: "xml"}, wantErr: true},
		{
			name: "invalid custom pattern",
			config: Config{
				RedactPII:      true,
				RedactPatterns: []config.RedactPattern{{Name: "bad", Pattern: "[unclosed"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}

			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		logMethod func(*Logger, string)
		wantLog   bool
	}{
		{"debug level logs debug", "debug", func(l *Logger, msg string) { l.Debug(msg) }, true},
		{"info level filters debug", "info", func(l *Logger, msg string) { l.Debug(msg) }, false},
		{"info level logs info", "info", func(l *Logger, msg string) { l.Info(msg) }, true},
		{"warn level filters info", "warn", func(l *Logger, msg string) { l.Info(msg) }, false},
		{"warn level logs warn", "warn", func(l *Logger, msg string) { l.Warn(msg) }, true},
		{"error level filters warn", "error", func(l *Logger, msg string) { l.Warn(msg) }, false},
		{"error level logs error", "error", func(l *Logger, msg string) { l.Error(msg) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{Level: tt.logLevel, Format: "json", Writer: buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			tt.logMethod(logger, "test message")

			hasLog := strings.Contains(buf.String(), "test message")
			if hasLog != tt.wantLog {
				t.Errorf("log written = %v, want %v (output %q)", hasLog, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}
	child := logger.With("component", "test")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %q", buf.String())
	}

	if err := logger.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if logger.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", logger.Level())
	}

	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("derived logger should follow the parent's level change")
	}

	if err := logger.SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := correlation.WithID(context.Background(), "trace-1-abc")
	ctx = WithUser(ctx, "user-42")
	ctx = WithOperation(ctx, "auth.login")

	logger.InfoContext(ctx, "processing", "step", 1)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}

	want := map[string]string{
		"correlation_id": "trace-1-abc",
		"user_id":        "user-42",
		"operation":      "auth.login",
		"msg":            "processing",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
	if _, ok := entry["trace_id"]; ok {
		t.Error("trace_id should be absent without an active span")
	}
}

func TestLogger_ExplicitArgsOverrideContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := correlation.WithID(context.Background(), "trace-1-abc")
	ctx = WithUser(ctx, "user-42")
	ctx = WithOperation(ctx, "auth.login")

	logger.InfoContext(ctx, "audit", "user_id", "anonymous", slog.String("operation", "auth.register"))

	line := buf.String()
	for _, key := range []string{"correlation_id", "user_id", "operation"} {
		if n := strings.Count(line, `"`+key+`":`); n != 1 {
			t.Errorf("%s appears %d times in %s", key, n, line)
		}
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, line)
	}
	if entry["user_id"] != "anonymous" {
		t.Errorf("user_id = %v, want anonymous", entry["user_id"])
	}
	if entry["operation"] != "auth.register" {
		t.Errorf("operation = %v, want auth.register", entry["operation"])
	}
	if entry["correlation_id"] != "trace-1-abc" {
		t.Errorf("correlation_id = %v, want trace-1-abc", entry["correlation_id"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("login failed",
		"email", "jane.doe@example.com",
		"ip", "203.0.113.7",
		"password", "hunter2hunter2",
	)

	out := buf.String()
	for _, raw := range []string{"jane.doe@example.com", "203.0.113.7", "hunter2hunter2"} {
		if strings.Contains(out, raw) {
			t.Errorf("output contains raw value %q: %s", raw, out)
		}
	}
}

func TestLogger_NoRedactionWhenDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "text", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("lookup", "email", "jane@example.com")

	if !strings.Contains(buf.String(), "jane@example.com") {
		t.Errorf("expected raw email without redaction, got %q", buf.String())
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Error("discarded")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("nop logger should not enable info")
	}
}
