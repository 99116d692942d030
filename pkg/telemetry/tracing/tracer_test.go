package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"taxwise-hq/sentinel/pkg/config"
)

func newRecordingTracer(t *testing.T, sampler string) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tr, err := New(&config.TracingConfig{Enabled: true, Sampler: sampler, SampleRatio: 1}, "test", "v0", WithExporter(exp), WithoutGlobal())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { tr.Shutdown(context.Background()) })
	return tr, exp
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		config      *config.TracingConfig
		wantErr     bool
		wantEnabled bool
	}{
		{"nil config", nil, true, false},
		{"disabled", &config.TracingConfig{Enabled: false}, false, false},
		{"always without endpoint", &config.TracingConfig{Enabled: true, Sampler: "always"}, false, true},
		{"ratio", &config.TracingConfig{Enabled: true, Sampler: "ratio", SampleRatio: 0.5}, false, true},
		{"ratio out of range", &config.TracingConfig{Enabled: true, Sampler: "ratio", SampleRatio: 1.5}, true, false},
		{"unknown sampler", &config.TracingConfig{Enabled: true, Sampler: "sometimes"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.config, "test", "v0", WithoutGlobal())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer tr.Shutdown(context.Background())
			if tr.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", tr.Enabled(), tt.wantEnabled)
			}
		})
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	tr, exp := newRecordingTracer(t, SamplerAlways)

	ctx, span := tr.Start(context.Background(), "auth.login")
	if TraceID(ctx) == "" || SpanID(ctx) == "" {
		t.Error("recording span has no ids in context")
	}
	SetOperationAttributes(span, "auth.login", "trace-1", "")
	SetStatus(span, errors.New("denied"))
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "auth.login" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.Status.Code != codes.Error {
		t.Errorf("Status = %v, want Error", got.Status.Code)
	}
	if len(got.Events) == 0 {
		t.Error("error was not recorded as a span event")
	}
	for _, a := range got.Attributes {
		if string(a.Key) == AttrParentCorrelationID {
			t.Error("empty parent correlation id should be omitted")
		}
	}
}

func TestTracer_NeverSampler(t *testing.T) {
	tr, exp := newRecordingTracer(t, SamplerNever)

	_, span := tr.Start(context.Background(), "op")
	span.End()

	if n := len(exp.GetSpans()); n != 0 {
		t.Errorf("exported %d spans with the never sampler", n)
	}
}

func TestNoop(t *testing.T) {
	tr := NewNoop()
	ctx, span := tr.Start(context.Background(), "op")
	span.End()

	if TraceID(ctx) != "" {
		t.Errorf("noop tracer produced trace id %q", TraceID(ctx))
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
