package dataprocessing

import (
	"fmt"
	"strings"
)

// FormatError reports an upload whose extension is not a supported format
type FormatError struct {
	Filename  string
	Extension string
}

func (e *FormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file format: %q has no extension (want csv, txt, tsv, xlsx or json)", e.Filename)
	}
	return fmt.Sprintf("unsupported file format %q (want csv, txt, tsv, xlsx or json)", e.Extension)
}

// SchemaError reports required columns absent from the uploaded header
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ParseError reports content that does not match the declared format.
// Row is the 1-based data row (0 when the failure is not tied to a row).
type ParseError struct {
	Format Format
	Row    int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to parse %s", e.Format)
	if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
