package tracing

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Response headers carrying the server span ids.
const (
	TraceIDHeader = "X-Trace-ID"
	SpanIDHeader  = "X-Span-ID"
)

// Propagator returns the global text map propagator.
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx carrying the trace context found in headers, if any.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the trace context of ctx into headers.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// HTTPMiddleware extracts incoming W3C trace context and wraps each request
// in a server span. The span ids are echoed in X-Trace-ID and X-Span-ID.
func (t *Tracer) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := t.Start(ctx, "HTTP "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			w.Header().Set(TraceIDHeader, sc.TraceID().String())
			w.Header().Set(SpanIDHeader, sc.SpanID().String())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateTraceParent reports whether traceparent is a well-formed W3C
// traceparent header (version-trace_id-parent_id-flags) with non-zero ids.
func ValidateTraceParent(traceparent string) bool {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return false
	}
	for i, want := range []int{2, 32, 16, 2} {
		if len(parts[i]) != want || !isHex(parts[i]) {
			return false
		}
	}
	return strings.Trim(parts[1], "0") != "" && strings.Trim(parts[2], "0") != ""
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
