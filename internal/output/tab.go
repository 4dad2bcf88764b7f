// Package output serializes normalized records to their tab-delimited
// and comma-delimited forms, plus the unmapped sidecar.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/maflift/internal/maf"
)

// TabWriter writes normalized records in tab-delimited format. Field
// content is written verbatim, so a field containing a tab or newline
// would corrupt the row structure; such fields are rejected.
type TabWriter struct {
	w   *bufio.Writer
	row int
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the schema column names.
func (t *TabWriter) WriteHeader() error {
	_, err := t.w.WriteString(strings.Join(maf.Schema, "\t") + "\n")
	return err
}

// Write writes a single normalized record.
func (t *TabWriter) Write(rec maf.NormalizedRecord) error {
	t.row++
	for i, v := range rec {
		if strings.ContainsAny(v, "\t\n\r") {
			return fmt.Errorf("row %d column %s: field %q contains a delimiter", t.row, maf.Schema[i], v)
		}
	}
	_, err := t.w.WriteString(strings.Join(rec, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (t *TabWriter) Flush() error {
	return t.w.Flush()
}
