package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/audit/storage"
	"taxwise-hq/sentinel/pkg/cli"
	"taxwise-hq/sentinel/pkg/telemetry/health"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// sqliteConfig writes a config using a pure-Go SQLite audit database seeded
// with three entries one hour apart, the oldest first.
func sqliteConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "audit.db")

	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: dbPath, Driver: storage.DriverPure, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	base := time.Now().UTC().Add(-3 * time.Hour)
	kinds := []audit.EventKind{audit.LoginSuccess, audit.LoginFailure, audit.Registration}
	for i, kind := range kinds {
		e := &audit.Entry{
			ID:            fmt.Sprintf("e%d", i+1),
			Kind:          kind,
			Timestamp:     base.Add(time.Duration(i) * time.Hour),
			CorrelationID: fmt.Sprintf("cid-%d", i+1),
			UserID:        audit.AnonymousUser,
			EmailHash:     "hmac:abc",
			Severity:      kind.Severity(),
		}
		if err := store.Store(context.Background(), e); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	cfgPath = writeConfig(t, fmt.Sprintf(`
audit:
  storage:
    backend: sqlite
    sqlite:
      path: %q
      driver: sqlite
`, dbPath))
	return cfgPath, dbPath
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	for _, want := range []string{"Sentinel " + Version, "Git Commit:", "Go Version:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "defaults", body: "", wantCode: cli.ExitOK},
		{name: "valid", body: "performance:\n  window_size: 50\n", wantCode: cli.ExitOK},
		{name: "invalid", body: "performance:\n  outlier_factor: 0.5\n", wantCode: cli.ExitConfig},
		{name: "malformed", body: "performance: [\n", wantCode: cli.ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "config", "validate", "--config", writeConfig(t, tt.body))
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (err %v)", got, tt.wantCode, err)
			}
			if tt.wantCode == cli.ExitOK && !strings.Contains(out, "Configuration valid") {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := writeConfig(t, "audit:\n  salt: very-secret-salt\n")
	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "very-secret-salt") {
		t.Error("salt printed in clear")
	}
	if !strings.Contains(out, redacted) {
		t.Errorf("output missing %s:\n%s", redacted, out)
	}
	if !strings.Contains(out, "window_size: 100") {
		t.Errorf("output missing defaults:\n%s", out)
	}
}

func TestAuditExport(t *testing.T) {
	cfgPath, _ := sqliteConfig(t)

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "audit", "export", "--config", cfgPath)
		if err != nil {
			t.Fatalf("export error = %v", err)
		}
		var entries []audit.Entry
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			t.Fatalf("decode: %v\n%s", err, out)
		}
		if len(entries) != 3 || entries[0].ID != "e1" {
			t.Errorf("entries = %+v, want e1..e3 oldest first", entries)
		}
	})

	t.Run("csv filtered to file", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "failures.csv")
		if _, err := execute(t, "audit", "export", "--config", cfgPath,
			"--format", "csv", "--event", "LOGIN_FAILURE", "--output", outPath); err != nil {
			t.Fatalf("export error = %v", err)
		}
		f, err := os.Open(outPath)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			t.Fatalf("read csv: %v", err)
		}
		if len(rows) != 2 || rows[1][0] != "e2" {
			t.Errorf("rows = %v, want header and e2", rows)
		}
	})

	t.Run("bad event", func(t *testing.T) {
		_, err := execute(t, "audit", "export", "--config", cfgPath, "--event", "LOGOUT")
		if !errors.Is(err, audit.ErrUnknownEvent) {
			t.Errorf("error = %v, want ErrUnknownEvent", err)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		if _, err := execute(t, "audit", "export", "--config", cfgPath, "--format", "xml"); err == nil {
			t.Error("error = nil, want unsupported format")
		}
	})
}

func TestAuditPrune(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "dry run by age", args: []string{"--days", "0", "--dry-run"}, want: "Would delete 0 entries (3 remaining)"},
		{name: "by count", args: []string{"--days", "0", "--max-entries", "1"}, want: "Deleted 2 entries (1 remaining)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath, _ := sqliteConfig(t)
			out, err := execute(t, append([]string{"audit", "prune", "--config", cfgPath}, tt.args...)...)
			if err != nil {
				t.Fatalf("prune error = %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestAuditRequiresStorage(t *testing.T) {
	_, err := execute(t, "audit", "prune", "--config", writeConfig(t, ""))
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("error = %v, want a config error", err)
	}
}

func TestHealthLocal(t *testing.T) {
	out, err := execute(t, "health", "--config", writeConfig(t, ""))
	if err != nil {
		t.Fatalf("health error = %v\n%s", err, out)
	}
	for _, want := range []string{"CHECK", health.ProbeToken, "overall"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHealthRemote(t *testing.T) {
	tests := []struct {
		name     string
		report   health.Report
		code     int
		wantCode int
	}{
		{
			name:     "healthy",
			report:   health.Report{Status: health.StatusHealthy, Checks: map[string]health.Result{"memory": health.Healthy()}},
			code:     http.StatusOK,
			wantCode: cli.ExitOK,
		},
		{
			name:     "unhealthy",
			report:   health.Report{Status: health.StatusUnhealthy, Checks: map[string]health.Result{"dependency": health.Unhealthy(errors.New("down"))}},
			code:     http.StatusServiceUnavailable,
			wantCode: cli.ExitUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/ready" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.code)
				_ = json.NewEncoder(w).Encode(tt.report)
			}))
			defer srv.Close()

			out, err := execute(t, "health", "--url", srv.URL, "--format", "json")
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (err %v)", got, tt.wantCode, err)
			}
			var got health.Report
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("decode output: %v\n%s", err, out)
			}
			if got.Status != tt.report.Status {
				t.Errorf("status = %s, want %s", got.Status, tt.report.Status)
			}
		})
	}
}

func TestServeDryRun(t *testing.T) {
	out, err := execute(t, "serve", "--dry-run", "--config", writeConfig(t, ""))
	if err != nil {
		t.Fatalf("serve --dry-run error = %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}
}
