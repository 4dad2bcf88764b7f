package output

import (
	"bufio"
	"io"
	"strings"
)

// UnmapReasonColumn is appended after the original columns in the
// unmapped sidecar file.
const UnmapReasonColumn = "Unmap_Reason"

// UnmappedWriter writes records the liftover could not place, keeping
// the original (pre-liftover) schema plus a trailing reason column.
type UnmappedWriter struct {
	w      *bufio.Writer
	header []string
}

// NewUnmappedWriter creates a writer for the given original header.
func NewUnmappedWriter(w io.Writer, header []string) *UnmappedWriter {
	return &UnmappedWriter{
		w:      bufio.NewWriter(w),
		header: header,
	}
}

// WriteHeader writes the original header plus the reason column.
func (u *UnmappedWriter) WriteHeader() error {
	cols := append(append([]string{}, u.header...), UnmapReasonColumn)
	_, err := u.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes one unmapped record with its reason.
func (u *UnmappedWriter) Write(fields []string, reason string) error {
	row := append(append([]string{}, fields...), reason)
	_, err := u.w.WriteString(strings.Join(row, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (u *UnmappedWriter) Flush() error {
	return u.w.Flush()
}
