package output

import (
	"encoding/csv"
	"io"

	"github.com/inodb/maflift/internal/maf"
)

// CSVWriter writes normalized records in RFC 4180 comma-delimited
// format: fields containing a comma, quote or newline are quoted with
// internal quotes doubled. Header and field order are identical to the
// tab-delimited output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a new comma-delimited writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the schema column names.
func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(maf.Schema)
}

// Write writes a single normalized record.
func (c *CSVWriter) Write(rec maf.NormalizedRecord) error {
	return c.w.Write(rec)
}

// Flush flushes buffered rows and reports any accumulated write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
