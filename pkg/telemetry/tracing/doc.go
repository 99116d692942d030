// Package tracing provides OpenTelemetry tracing for Sentinel.
//
// A Tracer wraps an SDK TracerProvider configured from
// config.TracingConfig. When tracing is disabled a no-op tracer is used.
// When it is enabled without an OTLP endpoint, spans are still created and
// sampled so that trace and span ids reach the structured logs, but nothing
// is exported. With an endpoint, spans are batched to an OTLP/gRPC
// collector.
//
// W3C Trace Context is installed as the global propagator; Extract, Inject
// and HTTPMiddleware carry it across HTTP boundaries.
//
// # Sampling
//
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample by trace id hash (sample_ratio between 0 and 1)
//
// All samplers are parent-based, so a remote sampled parent keeps its
// decision.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, "sentinel", version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "auth.login")
//	defer span.End()
package tracing
