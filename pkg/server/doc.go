// Package server provides Sentinel's operational HTTP server.
//
// The server exposes the process's health, metrics and telemetry snapshots;
// it carries no application traffic.
//
// # Routes
//
//	GET /health                       liveness, always 200 while serving
//	GET /ready                        readiness, 503 only when a probe is unhealthy
//	GET /version                      build information
//	GET /metrics                      Prometheus exposition (path configurable)
//	GET /debug/telemetry/performance  per-operation latency statistics
//	GET /debug/telemetry/errors       error signatures, highest count first
//	GET /debug/telemetry/audit        persisted audit entries (hashed fields only)
//
// The debug routes are mounted only when server.debug_endpoints is set.
//
// # Middleware
//
// Requests pass through, outermost first: panic recovery, real client IP,
// correlation id, trace context extraction, client capture for auditing, and
// request logging.
//
// # Graceful Shutdown
//
// Start blocks until its context is cancelled, SIGINT or SIGTERM arrives, or
// Shutdown is called, then drains in-flight requests for at most
// server.shutdown_timeout:
//
//	srv := server.New(&cfg.Server, tel)
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
package server
