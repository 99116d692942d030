// Package telemetry assembles Sentinel's observability components from
// configuration.
//
// # Components
//
//   - logging: structured slog logging with PII redaction
//   - sink: destination for structured observability records
//   - correlation: per-request and per-operation correlation ids
//   - performance: sliding-window latency statistics and outlier alerts
//   - errtrack: error signatures, counts and frequency alerts
//   - monitor: wraps operations with all of the above
//   - metrics: Prometheus collector fed by every component
//   - tracing: OpenTelemetry spans and W3C propagation
//   - health: concurrent probes and liveness/readiness handlers
//
// The audit trail lives in pkg/audit; the Provider wires it to the same sink
// and collector.
//
// # Usage
//
//	cfg := config.GetConfig()
//	tel, err := telemetry.New(cfg, BuildInfo{Version: "v1.0.0"})
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	login := monitor.Wrap(tel.Monitor(), "auth.login", svc.Login)
//
// # PII Protection
//
// Log fields are redacted by the logging package's regex redactor. Audit
// entries never carry raw email, IP or user-agent values; those are replaced
// by keyed hashes before any record is emitted.
package telemetry
