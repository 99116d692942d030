package tracing

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrOperation           = "sentinel.operation"
	AttrCorrelationID       = "sentinel.correlation_id"
	AttrParentCorrelationID = "sentinel.parent_correlation_id"
	AttrStatus              = "sentinel.status"
	AttrDuration            = "sentinel.duration_ms"
	AttrErrorSignature      = "sentinel.error.signature"
)

// SetOperationAttributes tags span with the monitored operation and its
// correlation ids. An empty parent id is omitted.
func SetOperationAttributes(span trace.Span, operation, correlationID, parentID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOperation, operation),
		attribute.String(AttrCorrelationID, correlationID),
	}
	if parentID != "" {
		attrs = append(attrs, attribute.String(AttrParentCorrelationID, parentID))
	}
	span.SetAttributes(attrs...)
}

// SetOutcomeAttributes records how an operation ended.
func SetOutcomeAttributes(span trace.Span, status string, d time.Duration) {
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Float64(AttrDuration, float64(d)/float64(time.Millisecond)),
	)
}
