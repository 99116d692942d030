package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"taxwise-hq/sentinel/pkg/telemetry/correlation"
)

type contextKey string

const (
	// UserKey is the context key for the authenticated user id.
	UserKey contextKey = "user_id"

	// OperationKey is the context key for the operation name being executed.
	OperationKey contextKey = "operation"
)

// WithUser adds a user identifier to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the user identifier from the context.
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

// GetOperation retrieves the operation name from the context.
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(OperationKey).(string); ok {
		return op
	}
	return ""
}

// extractContextFields returns key-value pairs for the log fields carried by
// ctx. The correlation id is owned by the correlation package and trace ids
// come from the active OpenTelemetry span.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any

	if id := correlation.FromContext(ctx); id != "" {
		fields = append(fields, "correlation_id", id)
	}
	if user := GetUser(ctx); user != "" {
		fields = append(fields, "user_id", user)
	}
	if op := GetOperation(ctx); op != "" {
		fields = append(fields, "operation", op)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
		)
	}

	return fields
}

// dropKeys removes the key/value pairs of fields whose key is also set in
// args, so explicit arguments take precedence over context values.
func dropKeys(fields, args []any) []any {
	if len(fields) == 0 || len(args) == 0 {
		return fields
	}

	set := make(map[string]struct{}, len(args)/2)
	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case slog.Attr:
			set[a.Key] = struct{}{}
		case string:
			set[a] = struct{}{}
			i++
		}
	}

	kept := fields[:0:0]
	for i := 0; i+1 < len(fields); i += 2 {
		if _, ok := set[fields[i].(string)]; ok {
			continue
		}
		kept = append(kept, fields[i], fields[i+1])
	}
	return kept
}
