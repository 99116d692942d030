// Package health runs named probes and reduces them into one system status.
//
// Each Probe returns a Result with a status of healthy, degraded or
// unhealthy. Checker.PerformHealthCheck runs all registered probes
// concurrently, each bounded by a timeout; a probe that panics or times out
// is reported unhealthy rather than aborting the check. The overall status
// is the most severe individual status, and the report always carries a
// timestamp and one entry per probe.
//
// # Built-in probes
//
//   - DependencyProbe: pings a dependency through a sony/gobreaker circuit
//     breaker, so a failing dependency is not hammered by frequent checks.
//   - TokenSelfTest: signs and verifies an HS256 JWT.
//   - MemoryProbe: degraded when the live heap exceeds a threshold
//     (default 512 MB).
//
// # Endpoints
//
//   - /health: liveness, always 200 while the process serves requests
//   - /ready: readiness, runs every probe, 503 only when unhealthy
//   - /version: build information
package health
