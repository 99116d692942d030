// Package monitor instruments arbitrary operations.
//
// Wrap turns a Func into an instrumented Func with the same signature. Each
// invocation gets its own correlation id and OpenTelemetry span, emits
// operation.started before the call and operation.completed or
// operation.failed after it, feeds its duration to the performance
// recorder and, on failure, its error to the error aggregator.
//
// The wrapper is transparent: results and errors are returned exactly as
// the wrapped function produced them, and panics are re-raised with their
// original value. Failures to record telemetry are logged and dropped.
//
//	login := monitor.Wrap(mon, "auth.login", svc.Login)
//	session, err := login(ctx, credentials)
package monitor
