package audit

import (
	"context"
	"io"
	"strings"
	"time"
)

// EventKind identifies an audited authentication event.
type EventKind string

const (
	LoginSuccess EventKind = "LOGIN_SUCCESS"
	LoginFailure EventKind = "LOGIN_FAILURE"
	Registration EventKind = "REGISTRATION"
	TokenRefresh EventKind = "TOKEN_REFRESH"
)

// Valid reports whether k is one of the audited event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case LoginSuccess, LoginFailure, Registration, TokenRefresh:
		return true
	}
	return false
}

// Severity derives the entry severity: failures are warnings.
func (k EventKind) Severity() Severity {
	if strings.HasSuffix(string(k), "_FAILURE") {
		return SeverityWarning
	}
	return SeverityInfo
}

// Severity of an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
)

// AnonymousUser is recorded when an event has no user id.
const AnonymousUser = "anonymous"

// AuthContext carries the raw details of an authentication event.
type AuthContext struct {
	CorrelationID string
	UserID        string
	Email         string
	IPAddress     string
	UserAgent     string
	ErrorCode     string
}

// Entry is one audit record. It holds hashes in place of PII and is never
// modified after creation.
type Entry struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"event"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	UserID        string    `json:"user_id"`
	EmailHash     string    `json:"email_hash,omitempty"`
	IPHash        string    `json:"ip_hash,omitempty"`
	UserAgentHash string    `json:"user_agent_hash,omitempty"`
	ErrorCode     string    `json:"error_code,omitempty"`
	Severity      Severity  `json:"severity"`
}

// Fields returns the entry as a flat field map, omitting absent hashes.
func (e *Entry) Fields() map[string]any {
	f := map[string]any{
		"entry_id":    e.ID,
		"audit_event": string(e.Kind),
		"user_id":     e.UserID,
		"severity":    string(e.Severity),
	}
	if e.EmailHash != "" {
		f["email_hash"] = e.EmailHash
	}
	if e.IPHash != "" {
		f["ip_hash"] = e.IPHash
	}
	if e.UserAgentHash != "" {
		f["user_agent_hash"] = e.UserAgentHash
	}
	if e.ErrorCode != "" {
		f["error_code"] = e.ErrorCode
	}
	return f
}

// Query defines filter parameters for querying stored entries.
type Query struct {
	// Time range, both inclusive
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	Kind          EventKind `json:"kind,omitempty"`
	Severity      Severity  `json:"severity,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder orders by timestamp: "asc" or "desc" (default).
	SortOrder string `json:"sort_order,omitempty"`
}

// Matches reports whether e satisfies the query's filters. Pagination and
// ordering are not considered.
func (q *Query) Matches(e *Entry) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.Severity != "" && e.Severity != q.Severity {
		return false
	}
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	if q.CorrelationID != "" && e.CorrelationID != q.CorrelationID {
		return false
	}
	return true
}

// Ascending reports whether results are ordered oldest first.
func (q *Query) Ascending() bool {
	return q != nil && strings.EqualFold(q.SortOrder, "asc")
}

// Storage defines the interface for audit trail backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an entry.
	Store(ctx context.Context, entry *Entry) error

	// Query retrieves entries matching the query, newest first unless the
	// query asks for ascending order. Returns an empty slice if none match.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// Count returns the number of entries matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes entries matching the query filters and returns how many
	// were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes entries to w in some format.
type Exporter interface {
	Export(ctx context.Context, entries []*Entry, w io.Writer) error
}
