package export

import (
	"context"
	"encoding/json"
	"io"

	"taxwise-hq/sentinel/pkg/audit"
)

// JSONExporter exports audit entries as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes entries to w. An empty input produces "[]".
func (e *JSONExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return audit.NewExportError("json", len(entries), err)
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(entries); err != nil {
		return audit.NewExportError("json", len(entries), err)
	}
	return nil
}
