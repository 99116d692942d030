package monitor

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/errtrack"
	"taxwise-hq/sentinel/pkg/telemetry/logging"
	"taxwise-hq/sentinel/pkg/telemetry/performance"
	"taxwise-hq/sentinel/pkg/telemetry/sink"
	"taxwise-hq/sentinel/pkg/telemetry/tracing"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveOperation(op, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[op+"/"+status]++
}

func (o *countingObserver) get(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[key]
}

type fixture struct {
	mon      *Monitor
	sink     *sink.MemorySink
	clock    *fakeClock
	observer *countingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := sink.NewMemorySink(0)
	clock := newFakeClock()
	obs := &countingObserver{}
	mon := New(Options{
		Recorder:   performance.New(performance.Options{Sink: mem, Now: clock.Now}),
		Aggregator: errtrack.New(errtrack.Options{Sink: mem, Now: clock.Now}),
		Sink:       mem,
		Observer:   obs,
		Now:        clock.Now,
	})
	return &fixture{mon: mon, sink: mem, clock: clock, observer: obs}
}

var errDenied = errors.New("access denied")

func TestWrapTransparency(t *testing.T) {
	f := newFixture(t)

	double := Wrap(f.mon, "calc.double", func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got, err := double(context.Background(), 21)
	if err != nil || got != 42 {
		t.Fatalf("double(21) = %d, %v; want 42, nil", got, err)
	}

	fail := Wrap(f.mon, "calc.fail", func(_ context.Context, n int) (int, error) {
		return n, errDenied
	})
	got, err = fail(context.Background(), 7)
	if err != errDenied {
		t.Errorf("error = %v, want the identical error value", err)
	}
	if got != 7 {
		t.Errorf("result = %d, want 7", got)
	}
}

func TestWrapEventOrder(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantLast string
		status   string
	}{
		{name: "success", wantLast: sink.KindOperationCompleted, status: StatusSuccess},
		{name: "failure", err: errDenied, wantLast: sink.KindOperationFailed, status: StatusError},
		{name: "cancelled", err: context.Canceled, wantLast: sink.KindOperationFailed, status: StatusCancelled},
		{name: "deadline", err: pkgerrors.Wrap(context.DeadlineExceeded, "call"), wantLast: sink.KindOperationFailed, status: StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_ = f.mon.Run(context.Background(), "op", func(context.Context) error {
				f.clock.Advance(5 * time.Millisecond)
				return tt.err
			})

			var ops []sink.Record
			for _, rec := range f.sink.Records() {
				switch rec.Kind {
				case sink.KindOperationStarted, sink.KindOperationCompleted, sink.KindOperationFailed:
					ops = append(ops, rec)
				}
			}
			if len(ops) != 2 {
				t.Fatalf("got %d operation records, want 2", len(ops))
			}
			if ops[0].Kind != sink.KindOperationStarted {
				t.Errorf("first record = %s, want %s", ops[0].Kind, sink.KindOperationStarted)
			}
			if ops[1].Kind != tt.wantLast {
				t.Errorf("last record = %s, want %s", ops[1].Kind, tt.wantLast)
			}
			if ops[0].CorrelationID == "" || ops[0].CorrelationID != ops[1].CorrelationID {
				t.Errorf("correlation ids %q and %q differ", ops[0].CorrelationID, ops[1].CorrelationID)
			}
			if got := ops[1].Fields["duration_ms"]; got != 5.0 {
				t.Errorf("duration_ms = %v, want 5", got)
			}
			if got := f.observer.get("op/" + tt.status); got != 1 {
				t.Errorf("observer count for %s = %d, want 1", tt.status, got)
			}
		})
	}
}

func TestWrapFailureTracksError(t *testing.T) {
	f := newFixture(t)
	ctx := logging.WithUser(context.Background(), "user-7")

	_ = f.mon.Run(ctx, "auth.login", func(context.Context) error { return errDenied })

	tracked := f.sink.ByKind(sink.KindErrorTracked)
	if len(tracked) != 1 {
		t.Fatalf("got %d error.tracked records, want 1", len(tracked))
	}
	fields := tracked[0].Fields
	if fields["operation"] != "auth.login" {
		t.Errorf("operation = %v", fields["operation"])
	}
	if fields["user_id"] != "user-7" {
		t.Errorf("user_id = %v, want user-7", fields["user_id"])
	}
	if fields["correlation_id"] == "" || fields["correlation_id"] == nil {
		t.Error("correlation_id missing from error metadata")
	}
	if _, ok := fields["duration_ms"]; !ok {
		t.Error("duration_ms missing from error metadata")
	}

	failed := f.sink.ByKind(sink.KindOperationFailed)[0]
	if failed.Fields["signature"] != fields["signature"] {
		t.Errorf("failed signature %v != tracked signature %v", failed.Fields["signature"], fields["signature"])
	}
	if failed.Fields["error"] != "access denied" {
		t.Errorf("error field = %v", failed.Fields["error"])
	}
}

func TestWrapCorrelation(t *testing.T) {
	f := newFixture(t)

	var seen []string
	op := Wrap(f.mon, "op", func(ctx context.Context, _ struct{}) (struct{}, error) {
		seen = append(seen, correlation.FromContext(ctx))
		if got := logging.GetOperation(ctx); got != "op" {
			t.Errorf("operation in context = %q, want op", got)
		}
		return struct{}{}, nil
	})

	parent := correlation.WithID(context.Background(), "parent-1")
	op(parent, struct{}{})
	op(parent, struct{}{})

	if len(seen) != 2 || seen[0] == "" || seen[0] == seen[1] {
		t.Fatalf("correlation ids = %v, want two distinct ids", seen)
	}
	for _, id := range seen {
		if id == "parent-1" {
			t.Error("invocation reused the parent correlation id")
		}
	}
	for _, rec := range f.sink.ByKind(sink.KindOperationStarted) {
		if rec.Fields["parent_correlation_id"] != "parent-1" {
			t.Errorf("parent_correlation_id = %v, want parent-1", rec.Fields["parent_correlation_id"])
		}
	}
}

func TestWrapPanic(t *testing.T) {
	f := newFixture(t)
	type boom struct{ code int }

	defer func() {
		r := recover()
		if r != (boom{code: 3}) {
			t.Fatalf("recovered %v, want the original panic value", r)
		}
		failed := f.sink.ByKind(sink.KindOperationFailed)
		if len(failed) != 1 {
			t.Fatalf("got %d operation.failed records, want 1", len(failed))
		}
		if failed[0].Fields["status"] != StatusPanic {
			t.Errorf("status = %v, want panic", failed[0].Fields["status"])
		}
		if f.mon.Aggregator().Len() != 1 {
			t.Errorf("aggregator holds %d signatures, want 1", f.mon.Aggregator().Len())
		}
		if got := f.observer.get("op/" + StatusPanic); got != 1 {
			t.Errorf("observer panic count = %d, want 1", got)
		}
	}()

	_ = f.mon.Run(context.Background(), "op", func(context.Context) error {
		panic(boom{code: 3})
	})
	t.Fatal("panic was swallowed")
}

func TestWrapGoexit(t *testing.T) {
	f := newFixture(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.mon.Run(context.Background(), "op", func(context.Context) error {
			f.clock.Advance(7 * time.Millisecond)
			runtime.Goexit()
			return nil
		})
	}()
	<-done

	failed := f.sink.ByKind(sink.KindOperationFailed)
	if len(failed) != 1 {
		t.Fatalf("got %d operation.failed records, want 1", len(failed))
	}
	if failed[0].Fields["status"] != StatusCancelled {
		t.Errorf("status = %v, want cancelled", failed[0].Fields["status"])
	}
	if failed[0].Fields["error"] != ErrExited.Error() {
		t.Errorf("error = %v, want %q", failed[0].Fields["error"], ErrExited.Error())
	}
	stats := f.mon.Recorder().Snapshot()["op"]
	if stats.Count != 1 || stats.Max != 7 {
		t.Errorf("recorded %+v, want one 7ms sample", stats)
	}
	if got := f.observer.get("op/" + StatusCancelled); got != 1 {
		t.Errorf("observer cancelled count = %d, want 1", got)
	}
}

func TestWrapSinkFailure(t *testing.T) {
	f := newFixture(t)
	f.sink.FailWith(errors.New("sink down"))

	got, err := Wrap(f.mon, "op", func(context.Context, string) (string, error) {
		return "ok", nil
	})(context.Background(), "")
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v; want ok, nil", got, err)
	}

	err = f.mon.Run(context.Background(), "op", func(context.Context) error { return errDenied })
	if err != errDenied {
		t.Errorf("error = %v, want errDenied", err)
	}
	if f.mon.Recorder().Snapshot()["op"].Count != 2 {
		t.Error("durations were not recorded while the sink failed")
	}
}

func TestWrapSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr, err := tracing.New(&config.TracingConfig{Enabled: true, Sampler: tracing.SamplerAlways}, "test", "v0",
		tracing.WithExporter(exp), tracing.WithoutGlobal())
	if err != nil {
		t.Fatalf("tracing.New() error = %v", err)
	}
	t.Cleanup(func() { tr.Shutdown(context.Background()) })

	mon := New(Options{Tracer: tr})
	_ = mon.Run(context.Background(), "auth.login", func(context.Context) error { return nil })
	_ = mon.Run(context.Background(), "auth.register", func(context.Context) error { return errDenied })

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "auth.login" || spans[0].Status.Code != codes.Ok {
		t.Errorf("span 0 = %s %v, want auth.login Ok", spans[0].Name, spans[0].Status.Code)
	}
	if spans[1].Name != "auth.register" || spans[1].Status.Code != codes.Error {
		t.Errorf("span 1 = %s %v, want auth.register Error", spans[1].Name, spans[1].Status.Code)
	}

	attrs := map[string]string{}
	for _, kv := range spans[1].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[tracing.AttrStatus] != StatusError {
		t.Errorf("%s = %q, want error", tracing.AttrStatus, attrs[tracing.AttrStatus])
	}
	if attrs[tracing.AttrErrorSignature] == "" {
		t.Errorf("%s missing", tracing.AttrErrorSignature)
	}
}

func TestWrapConcurrent(t *testing.T) {
	f := newFixture(t)
	op := Wrap(f.mon, "op", func(_ context.Context, n int) (int, error) { return n, nil })

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, _ := op(context.Background(), i); got != i {
				t.Errorf("op(%d) = %d", i, got)
			}
		}()
	}
	wg.Wait()

	if got := f.observer.get("op/" + StatusSuccess); got != 50 {
		t.Errorf("success count = %d, want 50", got)
	}
}

func recurringFailure() error {
	return pkgerrors.New("ledger unavailable")
}

func TestWrapEndToEnd(t *testing.T) {
	f := newFixture(t)
	op := Wrap(f.mon, "test.op", func(_ context.Context, i int) (int, error) {
		f.clock.Advance(10 * time.Millisecond)
		if i%10 == 0 {
			return 0, recurringFailure()
		}
		return i, nil
	})

	for i := range 150 {
		op(context.Background(), i)
	}

	stats := f.mon.Recorder().Snapshot()["test.op"]
	if stats.Count != performance.DefaultWindowSize {
		t.Errorf("window count = %d, want %d", stats.Count, performance.DefaultWindowSize)
	}
	if stats.P95 != 10 {
		t.Errorf("p95 = %v, want 10", stats.P95)
	}

	counts := f.mon.Aggregator().Export()
	if len(counts) != 1 {
		t.Fatalf("got %d signatures, want 1: %v", len(counts), counts)
	}
	for sig, n := range counts {
		if n != 15 {
			t.Errorf("signature %s count = %d, want 15", sig, n)
		}
	}
	if got := len(f.sink.ByKind(sink.KindFrequencyAlert)); got != 6 {
		t.Errorf("got %d frequency alerts, want 6", got)
	}
}
