package sink

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/logging"
)

// Record kinds emitted by Sentinel components.
const (
	KindOperationStarted   = "operation.started"
	KindOperationCompleted = "operation.completed"
	KindOperationFailed    = "operation.failed"
	KindPerformanceAlert   = "performance.alert"
	KindSecurityAudit      = "security.audit"
	KindSecurityAlert      = "security.alert"
	KindErrorTracked       = "error.tracked"
	KindFrequencyAlert     = "error.frequency_alert"
)

// Record is one structured observability record.
type Record struct {
	Kind          string
	Level         slog.Level
	Message       string
	Time          time.Time
	CorrelationID string
	Fields        map[string]any
}

// Sink accepts records. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

// Func adapts an ordinary function to the Sink interface.
type Func func(ctx context.Context, rec Record) error

// Emit calls f(ctx, rec).
func (f Func) Emit(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Discard drops every record.
var Discard Sink = Func(func(context.Context, Record) error { return nil })

// LoggerSink writes each record as one structured log line.
type LoggerSink struct {
	logger *logging.Logger
}

// NewLoggerSink creates a sink writing through logger.
func NewLoggerSink(logger *logging.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Emit writes rec at its level. The record's correlation id replaces any id
// carried by ctx so it appears exactly once on the line.
func (s *LoggerSink) Emit(ctx context.Context, rec Record) error {
	if rec.CorrelationID != "" {
		ctx = correlation.WithID(ctx, rec.CorrelationID)
	}

	args := make([]any, 0, 2+2*len(rec.Fields))
	args = append(args, "event", rec.Kind)
	if !rec.Time.IsZero() {
		args = append(args, "event_time", rec.Time.UTC().Format(time.RFC3339Nano))
	}
	for _, k := range slices.Sorted(maps.Keys(rec.Fields)) {
		args = append(args, k, rec.Fields[k])
	}

	msg := rec.Message
	if msg == "" {
		msg = rec.Kind
	}
	s.logger.Log(ctx, rec.Level, msg, args...)
	return nil
}

// MemorySink stores records in memory. With a positive capacity only the
// most recent records are kept.
type MemorySink struct {
	mu       sync.Mutex
	records  []Record
	capacity int
	err      error
}

// NewMemorySink creates a MemorySink. capacity <= 0 means unbounded.
func NewMemorySink(capacity int) *MemorySink {
	return &MemorySink{capacity: capacity}
}

// Emit stores rec, or returns the error configured with FailWith.
func (s *MemorySink) Emit(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	if s.capacity > 0 && len(s.records) > s.capacity {
		s.records = slices.Delete(s.records, 0, len(s.records)-s.capacity)
	}
	return nil
}

// FailWith makes subsequent Emit calls return err. A nil err restores normal
// operation.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Records returns a copy of the stored records in emission order.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// ByKind returns the stored records of the given kind.
func (s *MemorySink) ByKind(kind string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Reset discards all stored records.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// MultiSink emits every record to each of its sinks in order.
type MultiSink []Sink

// Emit delivers rec to all sinks, even when earlier ones fail, and returns
// the joined errors.
func (m MultiSink) Emit(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
