package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output, for piping into other tools.
	FormatJSON OutputFormat = "json"
)

// Formatter renders command output to a writer.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// NewFormatter returns the formatter for a format name. Unknown names are
// an error so a typo on --format fails loudly instead of printing garbage.
func NewFormatter(format string) (Formatter, error) {
	switch OutputFormat(format) {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected text or json)", format)
	}
}

// TextFormatter renders values with their default text representation.
// Commands with tabular output render the table themselves and use this
// only for scalar results.
type TextFormatter struct{}

// FormatTo implements Formatter.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter renders values as JSON.
type JSONFormatter struct {
	// Indent pretty-prints the output.
	Indent bool
}

// FormatTo implements Formatter.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}
