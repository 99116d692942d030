package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/sink"
)

// DefaultSalt is used when no salt is configured.
const DefaultSalt = "sentinel-default-salt"

// AlertPriority is attached to security.alert records.
const AlertPriority = "HIGH"

// Observer receives audit events, typically to update metrics.
type Observer interface {
	ObserveAuditEvent(kind EventKind, severity Severity)
	ObserveSecurityAlert(kind EventKind)
}

// Options configures a Logger.
type Options struct {
	// Salt keys the PII hash (default DefaultSalt).
	Salt string

	// Sink receives security.audit and security.alert records.
	Sink sink.Sink

	// Storage optionally persists every entry.
	Storage Storage

	// Observer optionally receives audit events.
	Observer Observer

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Logger records authentication events. It is safe for concurrent use.
type Logger struct {
	hasher   *Hasher
	sink     sink.Sink
	storage  Storage
	observer Observer
	now      func() time.Time
	logger   *slog.Logger
}

// NewLogger creates an audit Logger.
func NewLogger(opts Options) *Logger {
	if opts.Salt == "" {
		opts.Salt = DefaultSalt
	}
	if opts.Sink == nil {
		opts.Sink = sink.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Logger{
		hasher:   NewHasher(opts.Salt),
		sink:     opts.Sink,
		storage:  opts.Storage,
		observer: opts.Observer,
		now:      opts.Now,
		logger:   slog.Default().With("component", "audit"),
	}
}

// Storage returns the configured storage backend, or nil.
func (l *Logger) Storage() Storage {
	return l.storage
}

// Hasher returns the hasher used to redact entry fields.
func (l *Logger) Hasher() *Hasher {
	return l.hasher
}

// LogAuthAttempt builds the audit entry for one authentication event and
// emits it. Sink and storage errors are joined and returned together with
// the entry; nothing is retried.
func (l *Logger) LogAuthAttempt(ctx context.Context, kind EventKind, ac AuthContext) (*Entry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}

	entry := l.newEntry(ctx, kind, ac)

	if l.observer != nil {
		l.observer.ObserveAuditEvent(kind, entry.Severity)
	}

	level := slog.LevelInfo
	if entry.Severity == SeverityWarning {
		level = slog.LevelWarn
	}

	var errs []error
	if err := l.sink.Emit(ctx, sink.Record{
		Kind:          sink.KindSecurityAudit,
		Level:         level,
		Message:       "authentication event",
		Time:          entry.Timestamp,
		CorrelationID: entry.CorrelationID,
		Fields:        entry.Fields(),
	}); err != nil {
		errs = append(errs, fmt.Errorf("emit audit record: %w", err))
	}

	if reason := alertReason(entry); reason != "" {
		if l.observer != nil {
			l.observer.ObserveSecurityAlert(kind)
		}
		fields := entry.Fields()
		fields["priority"] = AlertPriority
		fields["reason"] = reason
		if err := l.sink.Emit(ctx, sink.Record{
			Kind:          sink.KindSecurityAlert,
			Level:         slog.LevelError,
			Message:       "security alert",
			Time:          entry.Timestamp,
			CorrelationID: entry.CorrelationID,
			Fields:        fields,
		}); err != nil {
			errs = append(errs, fmt.Errorf("emit security alert: %w", err))
		}
	}

	if l.storage != nil {
		stored := *entry
		if err := l.storage.Store(ctx, &stored); err != nil {
			l.logger.Error("failed to store audit entry",
				"entry_id", entry.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("store audit entry: %w", err))
		}
	}

	return entry, errors.Join(errs...)
}

func (l *Logger) newEntry(ctx context.Context, kind EventKind, ac AuthContext) *Entry {
	cid := ac.CorrelationID
	if cid == "" {
		cid = correlation.FromContext(ctx)
	}
	if cid == "" {
		cid = correlation.Generate()
	}
	userID := ac.UserID
	if userID == "" {
		userID = AnonymousUser
	}
	return &Entry{
		ID:            uuid.NewString(),
		Kind:          kind,
		Timestamp:     l.now().UTC(),
		CorrelationID: cid,
		UserID:        userID,
		EmailHash:     l.hasher.Hash(ac.Email),
		IPHash:        l.hasher.Hash(ac.IPAddress),
		UserAgentHash: l.hasher.Hash(ac.UserAgent),
		ErrorCode:     ac.ErrorCode,
		Severity:      kind.Severity(),
	}
}

func alertReason(e *Entry) string {
	switch {
	case e.Kind == LoginFailure:
		return "login_failure"
	case strings.Contains(e.ErrorCode, "SECURITY"):
		return "security_error_code"
	}
	return ""
}
