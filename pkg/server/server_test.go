package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/telemetry"
	"taxwise-hq/sentinel/pkg/telemetry/correlation"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *telemetry.Provider) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Audit.Storage.Backend = "memory"
	if mutate != nil {
		mutate(cfg)
	}

	tel, err := telemetry.New(cfg, telemetry.BuildInfo{Version: "v1.2.3", Commit: "abc123"},
		telemetry.WithoutGlobal(), telemetry.WithoutRuntimeMetrics(), telemetry.WithLogWriter(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("telemetry.New() error = %v", err)
	}
	t.Cleanup(func() { tel.Shutdown(context.Background()) })
	return New(&cfg.Server, tel), tel
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{path: "/health", wantStatus: http.StatusOK, wantBody: `"status":"healthy"`},
		{path: "/ready", wantStatus: http.StatusOK, wantBody: `"checks"`},
		{path: "/version", wantStatus: http.StatusOK, wantBody: `"version":"v1.2.3"`},
		{path: "/metrics", wantStatus: http.StatusOK},
		{path: "/debug/telemetry/performance", wantStatus: http.StatusOK, wantBody: `"operations"`},
		{path: "/debug/telemetry/errors", wantStatus: http.StatusOK, wantBody: `"signatures"`},
		{path: "/debug/telemetry/audit", wantStatus: http.StatusOK, wantBody: `"entries":[]`},
		{path: "/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, srv.Handler(), tt.path)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.wantBody)
			}
			if w.Header().Get(correlation.Header) == "" {
				t.Error("response has no correlation id header")
			}
		})
	}
}

func TestDebugEndpointsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.DebugEndpoints = false
		cfg.Telemetry.Metrics.Path = "/internal/metrics"
	})

	if w := get(t, srv.Handler(), "/debug/telemetry/performance"); w.Code != http.StatusNotFound {
		t.Errorf("debug route status = %d, want 404", w.Code)
	}
	if w := get(t, srv.Handler(), "/internal/metrics"); w.Code != http.StatusOK {
		t.Errorf("custom metrics path status = %d, want 200", w.Code)
	}
}

func TestDebugSnapshots(t *testing.T) {
	srv, tel := newTestServer(t, nil)
	ctx := context.Background()

	for range 3 {
		_ = tel.Monitor().Run(ctx, "auth.login", func(context.Context) error { return nil })
	}
	_ = tel.Monitor().Run(ctx, "auth.register", func(context.Context) error { return errors.New("email taken") })

	var perf PerformanceResponse
	if err := json.Unmarshal(get(t, srv.Handler(), "/debug/telemetry/performance").Body.Bytes(), &perf); err != nil {
		t.Fatalf("decode performance: %v", err)
	}
	if perf.Operations["auth.login"].Count != 3 {
		t.Errorf("auth.login count = %d, want 3", perf.Operations["auth.login"].Count)
	}

	var errs ErrorsResponse
	if err := json.Unmarshal(get(t, srv.Handler(), "/debug/telemetry/errors").Body.Bytes(), &errs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if errs.Total != 1 || len(errs.Signatures) != 1 {
		t.Fatalf("signatures = %+v, want one", errs)
	}
	if errs.Signatures[0].Operation != "auth.register" || errs.Signatures[0].Message != "email taken" {
		t.Errorf("signature = %+v", errs.Signatures[0])
	}
	if errs.Threshold != config.DefaultErrorAlertThreshold {
		t.Errorf("threshold = %d, want %d", errs.Threshold, config.DefaultErrorAlertThreshold)
	}
}

func TestAuditEndpoint(t *testing.T) {
	srv, tel := newTestServer(t, nil)
	ctx := context.Background()

	events := []audit.EventKind{audit.LoginSuccess, audit.LoginFailure, audit.LoginFailure, audit.Registration}
	for _, kind := range events {
		if _, err := tel.Audit().LogAuthAttempt(ctx, kind, audit.AuthContext{Email: "client@example.com"}); err != nil {
			t.Fatalf("LogAuthAttempt() error = %v", err)
		}
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantTotal  int64
		wantLen    int
	}{
		{name: "all", query: "", wantStatus: http.StatusOK, wantTotal: 4, wantLen: 4},
		{name: "by event", query: "?event=LOGIN_FAILURE", wantStatus: http.StatusOK, wantTotal: 2, wantLen: 2},
		{name: "by severity", query: "?severity=INFO", wantStatus: http.StatusOK, wantTotal: 2, wantLen: 2},
		{name: "paged", query: "?limit=1&offset=1", wantStatus: http.StatusOK, wantTotal: 4, wantLen: 1},
		{name: "future window", query: "?since=2999-01-01T00:00:00Z", wantStatus: http.StatusOK},
		{name: "bad event", query: "?event=LOGOUT", wantStatus: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
		{name: "bad time", query: "?until=yesterday", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, srv.Handler(), "/debug/telemetry/audit"+tt.query)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp AuditResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Total != tt.wantTotal || len(resp.Entries) != tt.wantLen {
				t.Errorf("total = %d, entries = %d; want %d, %d", resp.Total, len(resp.Entries), tt.wantTotal, tt.wantLen)
			}
			if strings.Contains(w.Body.String(), "client@example.com") {
				t.Error("raw email exposed by the audit endpoint")
			}
		})
	}
}

func TestAuditEndpointWithoutStorage(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) { cfg.Audit.Storage.Backend = "none" })
	if w := get(t, srv.Handler(), "/debug/telemetry/audit"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) { cfg.Server.ShutdownTimeout = time.Second })

	done := make(chan error, 1)
	go func() { done <- srv.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	srv.Shutdown()
	srv.Shutdown()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestStartContextCancel(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) { cfg.Server.ShutdownTimeout = time.Second })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
