package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is an aligned text table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: text, json)", s)
	}
}

// Table is implemented by results that can render as text rows.
type Table interface {
	Header() []string
	Rows() [][]string
}

// Formatter writes command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders Table values as tab-aligned columns and anything
// else with fmt.
type TextFormatter struct{}

// FormatTo writes data to w.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	t, ok := data.(Table)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, t.Header())
	for _, row := range t.Rows() {
		writeRow(tw, row)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}
