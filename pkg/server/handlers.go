package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/telemetry/errtrack"
	"taxwise-hq/sentinel/pkg/telemetry/performance"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// PerformanceResponse is the body of /debug/telemetry/performance.
type PerformanceResponse struct {
	Timestamp  time.Time                    `json:"timestamp"`
	Operations map[string]performance.Stats `json:"operations"`
}

// ErrorsResponse is the body of /debug/telemetry/errors.
type ErrorsResponse struct {
	Timestamp  time.Time       `json:"timestamp"`
	Threshold  int             `json:"threshold"`
	Total      int             `json:"total"`
	Signatures []errtrack.Stat `json:"signatures"`
}

// AuditResponse is the body of /debug/telemetry/audit.
type AuditResponse struct {
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Entries []*audit.Entry `json:"entries"`
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PerformanceResponse{
		Timestamp:  time.Now().UTC(),
		Operations: s.tel.Recorder().Snapshot(),
	})
}

// handleErrors lists signatures highest count first. ?limit bounds the list.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	agg := s.tel.Aggregator()
	stats := agg.Stats()
	total := len(stats)

	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < len(stats) {
		stats = stats[:limit]
	}

	writeJSON(w, http.StatusOK, ErrorsResponse{
		Timestamp:  time.Now().UTC(),
		Threshold:  agg.Threshold(),
		Total:      total,
		Signatures: stats,
	})
}

// handleAudit queries persisted audit entries. Supported parameters: event,
// severity, user_id, correlation_id, since and until (RFC 3339), limit,
// offset and order ("asc" or "desc").
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	store := s.tel.AuditStorage()
	if store == nil {
		writeError(w, http.StatusNotFound, "audit storage is not configured")
		return
	}

	q, err := parseAuditQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := store.Count(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "audit count failed", "error", err)
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	entries, err := store.Query(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "audit query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	writeJSON(w, http.StatusOK, AuditResponse{
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		Entries: entries,
	})
}

func parseAuditQuery(r *http.Request) (*audit.Query, error) {
	v := r.URL.Query()
	q := &audit.Query{
		Kind:          audit.EventKind(v.Get("event")),
		Severity:      audit.Severity(v.Get("severity")),
		UserID:        v.Get("user_id"),
		CorrelationID: v.Get("correlation_id"),
		SortOrder:     v.Get("order"),
	}
	if q.Kind != "" && !q.Kind.Valid() {
		return nil, &paramError{name: "event", value: string(q.Kind)}
	}

	var err error
	if q.StartTime, err = timeParam(r, "since"); err != nil {
		return nil, err
	}
	if q.EndTime, err = timeParam(r, "until"); err != nil {
		return nil, err
	}
	if q.Limit, err = intParam(r, "limit", defaultLimit); err != nil {
		return nil, err
	}
	if q.Offset, err = intParam(r, "offset", 0); err != nil {
		return nil, err
	}
	return q, nil
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

// intParam parses a non-negative integer parameter capped at maxLimit.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &paramError{name: name, value: raw}
	}
	if name == "limit" && n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &paramError{name: name, value: raw}
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
