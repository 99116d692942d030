package export

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"taxwise-hq/sentinel/pkg/audit"
)

// CSVExporter exports audit entries to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header is the CSV column order.
var Header = []string{
	"id", "event", "timestamp", "correlation_id", "user_id",
	"email_hash", "ip_hash", "user_agent_hash", "error_code", "severity",
}

// Export writes entries to w, one row per entry.
func (e *CSVExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return audit.NewExportError("csv", len(entries), err)
		}
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return audit.NewExportError("csv", i, err)
		}
		if err := writer.Write(entryToRow(entry)); err != nil {
			return audit.NewExportError("csv", len(entries), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(entries), err)
	}
	return nil
}

func entryToRow(e *audit.Entry) []string {
	return []string{
		e.ID,
		string(e.Kind),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.CorrelationID,
		e.UserID,
		e.EmailHash,
		e.IPHash,
		e.UserAgentHash,
		e.ErrorCode,
		string(e.Severity),
	}
}

// ForFormat returns the exporter for format ("json" or "csv").
func ForFormat(format string, pretty bool) (audit.Exporter, bool) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), true
	case "csv":
		return NewCSVExporter(true), true
	}
	return nil, false
}
