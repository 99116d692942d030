package performance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/sink"
)

const (
	// DefaultWindowSize is the number of samples kept per operation.
	DefaultWindowSize = 100

	// DefaultOutlierFactor is the multiple of p95 above which a sample alerts.
	DefaultOutlierFactor = 2.0
)

// Observer receives every recorded sample and every outlier alert.
type Observer interface {
	ObserveDuration(op string, d time.Duration)
	ObservePerformanceAlert(op string)
}

// Options configures a Recorder.
type Options struct {
	// WindowSize is the per-operation sample capacity (default 100).
	WindowSize int

	// OutlierFactor is the multiple of p95 that triggers an alert (default 2.0).
	OutlierFactor float64

	// Sink receives performance.alert records (default sink.Discard).
	Sink sink.Sink

	// Observer optionally receives samples and alerts.
	Observer Observer

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Recorder maintains one sliding window per operation name.
type Recorder struct {
	mu      sync.RWMutex
	windows map[string]*Window

	windowSize int
	factor     float64
	sink       sink.Sink
	observer   Observer
	now        func() time.Time
}

// New creates a Recorder.
func New(opts Options) *Recorder {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.OutlierFactor <= 0 {
		opts.OutlierFactor = DefaultOutlierFactor
	}
	if opts.Sink == nil {
		opts.Sink = sink.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Recorder{
		windows:    make(map[string]*Window),
		windowSize: opts.WindowSize,
		factor:     opts.OutlierFactor,
		sink:       opts.Sink,
		observer:   opts.Observer,
		now:        opts.Now,
	}
}

// window returns the window for op, creating it on first use.
func (r *Recorder) window(op string) *Window {
	r.mu.RLock()
	w, ok := r.windows[op]
	r.mu.RUnlock()
	if ok {
		return w
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok = r.windows[op]; !ok {
		w = NewWindow(r.windowSize)
		r.windows[op] = w
	}
	return w
}

// Record appends d to the window for op and emits a performance.alert record
// when d exceeds the outlier factor times the window's p95 after insertion.
// metadata is copied into the alert. Only sink errors are returned.
func (r *Recorder) Record(ctx context.Context, op string, d time.Duration, metadata map[string]any) error {
	ms := float64(d) / float64(time.Millisecond)
	values := r.window(op).Add(ms)

	if r.observer != nil {
		r.observer.ObserveDuration(op, d)
	}

	p95 := Percentile(values, 95)
	threshold := r.factor * p95
	if ms <= threshold {
		return nil
	}

	if r.observer != nil {
		r.observer.ObservePerformanceAlert(op)
	}

	fields := make(map[string]any, len(metadata)+5)
	for k, v := range metadata {
		fields[k] = v
	}
	fields["operation"] = op
	fields["duration_ms"] = ms
	fields["p95_ms"] = p95
	fields["threshold_ms"] = threshold
	fields["window_count"] = len(values)

	err := r.sink.Emit(ctx, sink.Record{
		Kind:          sink.KindPerformanceAlert,
		Level:         slog.LevelWarn,
		Message:       "operation slower than usual",
		Time:          r.now(),
		CorrelationID: correlation.FromContext(ctx),
		Fields:        fields,
	})
	if err != nil {
		return fmt.Errorf("emit performance alert: %w", err)
	}
	return nil
}

// Snapshot returns a point-in-time summary of every tracked operation.
// Statistics are computed from copies, so Snapshot is safe to call while
// other goroutines record.
func (r *Recorder) Snapshot() map[string]Stats {
	r.mu.RLock()
	windows := make(map[string]*Window, len(r.windows))
	for op, w := range r.windows {
		windows[op] = w
	}
	r.mu.RUnlock()

	out := make(map[string]Stats, len(windows))
	for op, w := range windows {
		out[op] = Summarize(w.Values())
	}
	return out
}

// Samples returns the retained samples for op in insertion order, or nil if
// the operation has never been recorded.
func (r *Recorder) Samples(op string) []float64 {
	r.mu.RLock()
	w, ok := r.windows[op]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return w.Values()
}
