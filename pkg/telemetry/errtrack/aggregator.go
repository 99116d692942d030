package errtrack

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/sink"
)

const (
	// DefaultThreshold is the count at which a signature raises a frequency alert.
	DefaultThreshold = 10

	// DefaultMaxSignatures bounds the count table.
	DefaultMaxSignatures = 10000
)

// Context describes where an error occurred.
type Context struct {
	Operation     string
	UserID        string
	CorrelationID string
	Metadata      map[string]any
}

// Occurrence is the result of tracking one error.
type Occurrence struct {
	Signature string
	Count     int64
	Alerted   bool
}

// Stat is a snapshot of one signature's row.
type Stat struct {
	Signature string    `json:"signature"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Operation string    `json:"operation"`
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Observer receives tracking events.
type Observer interface {
	ObserveError(op string)
	ObserveFrequencyAlert(op string)
	ObserveSignatures(n int)
}

// Options configures an Aggregator.
type Options struct {
	// Threshold is the alert threshold (default 10).
	Threshold int

	// StackDepth is the number of frames in a signature (default 3).
	StackDepth int

	// MaxSignatures bounds the count table (default 10000).
	MaxSignatures int

	// TTL evicts signatures idle for longer than this in Prune (0 disables).
	TTL time.Duration

	// Sink receives error.tracked and error.frequency_alert records.
	Sink sink.Sink

	// Observer optionally receives tracking events.
	Observer Observer

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Aggregator counts error signatures. It is safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	table *table

	threshold atomic.Int64
	depth     int
	ttl       time.Duration
	sink      sink.Sink
	observer  Observer
	now       func() time.Time
}

// New creates an Aggregator.
func New(opts Options) *Aggregator {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.StackDepth <= 0 {
		opts.StackDepth = DefaultStackDepth
	}
	if opts.MaxSignatures <= 0 {
		opts.MaxSignatures = DefaultMaxSignatures
	}
	if opts.Sink == nil {
		opts.Sink = sink.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &Aggregator{
		table:    newTable(opts.MaxSignatures),
		depth:    opts.StackDepth,
		ttl:      opts.TTL,
		sink:     opts.Sink,
		observer: opts.Observer,
		now:      opts.Now,
	}
	a.threshold.Store(int64(opts.Threshold))
	return a
}

// SetThreshold changes the alert threshold. Values below 1 are ignored.
func (a *Aggregator) SetThreshold(n int) {
	if n >= 1 {
		a.threshold.Store(int64(n))
	}
}

// Threshold returns the current alert threshold.
func (a *Aggregator) Threshold() int {
	return int(a.threshold.Load())
}

// Track records one occurrence of err. A nil err is ignored. Sink errors are
// joined and returned; the count is updated regardless.
func (a *Aggregator) Track(ctx context.Context, err error, ec Context) (Occurrence, error) {
	if err == nil {
		return Occurrence{}, nil
	}

	sig, typeName, message := signature(err, a.depth)
	now := a.now()

	a.mu.Lock()
	e, evicted := a.table.touch(sig, now, func() *entry {
		return &entry{
			signature: sig,
			typeName:  typeName,
			message:   message,
			operation: ec.Operation,
		}
	})
	e.count++
	count := e.count
	threshold := a.threshold.Load()
	size := a.table.len()
	a.mu.Unlock()

	if ec.CorrelationID == "" {
		ec.CorrelationID = correlation.FromContext(ctx)
	}

	if a.observer != nil {
		a.observer.ObserveError(ec.Operation)
		a.observer.ObserveSignatures(size)
	}
	if evicted != nil {
		slog.Default().Debug("error signature evicted",
			"component", "errtrack",
			"signature", evicted.signature,
			"count", evicted.count,
		)
	}

	fields := make(map[string]any, len(ec.Metadata)+7)
	for k, v := range ec.Metadata {
		fields[k] = v
	}
	fields["signature"] = sig
	fields["operation"] = ec.Operation
	fields["user_id"] = ec.UserID
	fields["count"] = count
	fields["error_type"] = typeName
	fields["error_message"] = message

	var errs []error
	if emitErr := a.sink.Emit(ctx, sink.Record{
		Kind:          sink.KindErrorTracked,
		Level:         slog.LevelError,
		Message:       "error tracked",
		Time:          now,
		CorrelationID: ec.CorrelationID,
		Fields:        fields,
	}); emitErr != nil {
		errs = append(errs, fmt.Errorf("emit error record: %w", emitErr))
	}

	occ := Occurrence{Signature: sig, Count: count}
	if count >= threshold {
		occ.Alerted = true
		if a.observer != nil {
			a.observer.ObserveFrequencyAlert(ec.Operation)
		}
		if emitErr := a.sink.Emit(ctx, sink.Record{
			Kind:          sink.KindFrequencyAlert,
			Level:         slog.LevelError,
			Message:       "error recurring above threshold",
			Time:          now,
			CorrelationID: ec.CorrelationID,
			Fields: map[string]any{
				"signature": sig,
				"count":     count,
				"threshold": threshold,
				"operation": ec.Operation,
			},
		}); emitErr != nil {
			errs = append(errs, fmt.Errorf("emit frequency alert: %w", emitErr))
		}
	}

	return occ, errors.Join(errs...)
}

// Export returns a copy of the signature -> count table.
func (a *Aggregator) Export() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int64, a.table.len())
	for sig, el := range a.table.items {
		out[sig] = el.Value.(*entry).count
	}
	return out
}

// Stats returns every retained signature, highest count first.
func (a *Aggregator) Stats() []Stat {
	a.mu.Lock()
	out := make([]Stat, 0, a.table.len())
	for el := a.table.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		out = append(out, Stat{
			Signature: e.signature,
			Type:      e.typeName,
			Message:   e.message,
			Operation: e.operation,
			Count:     e.count,
			FirstSeen: e.firstSeen,
			LastSeen:  e.lastSeen,
		})
	}
	a.mu.Unlock()

	slices.SortStableFunc(out, func(x, y Stat) int {
		return cmp.Compare(y.Count, x.Count)
	})
	return out
}

// Len returns the number of retained signatures.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.table.len()
}

// Prune drops signatures not seen within the TTL as of now and returns how
// many were removed. It does nothing when no TTL is configured.
func (a *Aggregator) Prune(now time.Time) int {
	if a.ttl <= 0 {
		return 0
	}

	a.mu.Lock()
	removed := a.table.pruneIdle(now.Add(-a.ttl))
	size := a.table.len()
	a.mu.Unlock()

	if a.observer != nil && removed > 0 {
		a.observer.ObserveSignatures(size)
	}
	return removed
}
