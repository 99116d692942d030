package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"

	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/errtrack"
	"taxwise-hq/sentinel/pkg/telemetry/logging"
	"taxwise-hq/sentinel/pkg/telemetry/performance"
	"taxwise-hq/sentinel/pkg/telemetry/sink"
	"taxwise-hq/sentinel/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels reported to the Observer and on spans.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCancelled = "cancelled"
	StatusPanic     = "panic"
)

// Func is an operation that can be monitored.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Observer counts finished invocations.
type Observer interface {
	ObserveOperation(op, status string)
}

// Options configures a Monitor. Nil components are created with defaults.
type Options struct {
	Recorder   *performance.Recorder
	Aggregator *errtrack.Aggregator
	Sink       sink.Sink
	Tracer     *tracing.Tracer
	Observer   Observer

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Monitor holds the components every wrapped invocation reports to.
type Monitor struct {
	recorder   *performance.Recorder
	aggregator *errtrack.Aggregator
	sink       sink.Sink
	tracer     *tracing.Tracer
	observer   Observer
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Monitor.
func New(opts Options) *Monitor {
	if opts.Sink == nil {
		opts.Sink = sink.Discard
	}
	if opts.Recorder == nil {
		opts.Recorder = performance.New(performance.Options{Sink: opts.Sink})
	}
	if opts.Aggregator == nil {
		opts.Aggregator = errtrack.New(errtrack.Options{Sink: opts.Sink})
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.NewNoop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		recorder:   opts.Recorder,
		aggregator: opts.Aggregator,
		sink:       opts.Sink,
		tracer:     opts.Tracer,
		observer:   opts.Observer,
		now:        opts.Now,
		logger:     slog.Default().With("component", "monitor"),
	}
}

// Recorder returns the performance recorder.
func (m *Monitor) Recorder() *performance.Recorder { return m.recorder }

// Aggregator returns the error aggregator.
func (m *Monitor) Aggregator() *errtrack.Aggregator { return m.aggregator }

// ErrExited is tracked for an operation whose goroutine exited through
// runtime.Goexit before fn returned.
var ErrExited = pkgerrors.New("operation exited without returning")

// Wrap returns fn instrumented as operation op. Concurrent invocations are
// measured independently.
func Wrap[In, Out any](m *Monitor, op string, fn Func[In, Out]) Func[In, Out] {
	return func(ctx context.Context, in In) (out Out, err error) {
		inv := m.begin(ctx, op)
		finished := false
		defer func() {
			if r := recover(); r != nil {
				m.finish(inv, panicError(r), StatusPanic)
				panic(r)
			}
			if !finished {
				// fn ended its goroutine with runtime.Goexit.
				m.finish(inv, ErrExited, StatusCancelled)
			}
		}()

		out, err = fn(inv.ctx, in)
		finished = true
		m.finish(inv, err, outcome(err))
		return out, err
	}
}

// Run monitors an operation that produces no result.
func (m *Monitor) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Wrap(m, op, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})(ctx, struct{}{})
	return err
}

// invocation is the per-call state shared by begin and finish.
type invocation struct {
	op            string
	ctx           context.Context
	span          trace.Span
	correlationID string
	parentID      string
	start         time.Time
}

func (m *Monitor) begin(ctx context.Context, op string) *invocation {
	parent := correlation.FromContext(ctx)
	cid := correlation.Generate()

	ctx = correlation.WithID(ctx, cid)
	ctx = logging.WithOperation(ctx, op)
	ctx, span := m.tracer.Start(ctx, op)
	tracing.SetOperationAttributes(span, op, cid, parent)

	fields := map[string]any{"operation": op}
	if parent != "" {
		fields["parent_correlation_id"] = parent
	}
	inv := &invocation{
		op:            op,
		ctx:           ctx,
		span:          span,
		correlationID: cid,
		parentID:      parent,
		start:         m.now(),
	}
	m.emit(inv, sink.Record{
		Kind:    sink.KindOperationStarted,
		Level:   slog.LevelDebug,
		Message: "operation started",
		Fields:  fields,
	})
	return inv
}

func (m *Monitor) finish(inv *invocation, err error, status string) {
	defer inv.span.End()

	d := m.now().Sub(inv.start)
	ms := float64(d) / float64(time.Millisecond)

	if recErr := m.recorder.Record(inv.ctx, inv.op, d, map[string]any{"correlation_id": inv.correlationID}); recErr != nil {
		m.logger.Warn("failed to record duration", "operation", inv.op, "error", recErr)
	}

	tracing.SetOutcomeAttributes(inv.span, status, d)
	tracing.SetStatus(inv.span, err)
	if m.observer != nil {
		m.observer.ObserveOperation(inv.op, status)
	}

	fields := map[string]any{
		"operation":   inv.op,
		"duration_ms": ms,
	}
	if inv.parentID != "" {
		fields["parent_correlation_id"] = inv.parentID
	}

	if err == nil {
		m.emit(inv, sink.Record{
			Kind:    sink.KindOperationCompleted,
			Level:   slog.LevelInfo,
			Message: "operation completed",
			Fields:  fields,
		})
		return
	}

	occ, trackErr := m.aggregator.Track(inv.ctx, err, errtrack.Context{
		Operation:     inv.op,
		UserID:        logging.GetUser(inv.ctx),
		CorrelationID: inv.correlationID,
		Metadata: map[string]any{
			"correlation_id": inv.correlationID,
			"duration_ms":    ms,
		},
	})
	if trackErr != nil {
		m.logger.Warn("failed to track error", "operation", inv.op, "error", trackErr)
	}

	fields["status"] = status
	fields["error"] = err.Error()
	fields["error_type"] = errtrack.TypeName(err)
	fields["signature"] = occ.Signature
	inv.span.SetAttributes(attribute.String(tracing.AttrErrorSignature, occ.Signature))
	m.emit(inv, sink.Record{
		Kind:    sink.KindOperationFailed,
		Level:   slog.LevelError,
		Message: "operation failed",
		Fields:  fields,
	})
}

// emit sends rec for inv, logging and dropping sink errors.
func (m *Monitor) emit(inv *invocation, rec sink.Record) {
	rec.Time = m.now()
	rec.CorrelationID = inv.correlationID
	if err := m.sink.Emit(inv.ctx, rec); err != nil {
		m.logger.Warn("failed to emit record", "kind", rec.Kind, "operation", inv.op, "error", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCancelled
	}
	return StatusError
}

// panicError converts a recovered value into a trackable error with the
// stack of the panicking goroutine.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.Errorf("panic: %v", r)
}
