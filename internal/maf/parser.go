package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parser reads records from a MAF file.
// Supports both plain and gzipped (.gz) input.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	path       string
	lineNumber int
	header     []string
}

// NewParser creates a new MAF parser for the given file.
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}

	p := &Parser{file: file, path: path}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	_, err = file.Read(buf)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read maf header: %w", err)
	}

	_, err = file.Seek(0, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seek maf file: %w", err)
	}

	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(r),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads past comment lines and parses the header line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read header: %w", err)
		}
		atEOF := err == io.EOF
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		// Skip comment lines (start with #) and blank lines
		if line == "" || strings.HasPrefix(line, "#") {
			if atEOF {
				return &ParseError{
					File:    p.path,
					Line:    p.lineNumber,
					Message: "no header line found",
				}
			}
			continue
		}

		p.header = strings.Split(line, "\t")
		return p.validateHeader()
	}
}

// validateHeader checks that the columns needed to locate a record are present.
func (p *Parser) validateHeader() error {
	required := []string{ColChromosome, ColStartPosition, ColReferenceAllele, ColTumorSeqAllele2}
	present := make(map[string]bool, len(p.header))
	for _, col := range p.header {
		present[col] = true
	}
	for _, col := range required {
		if !present[col] {
			return &ParseError{
				File:    p.path,
				Line:    p.lineNumber,
				Message: fmt.Sprintf("required column %q not found in header", col),
			}
		}
	}
	return nil
}

// Next reads the next record. Returns false when there are no more records.
func (p *Parser) Next() (Record, bool, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return Record{}, false, fmt.Errorf("read record line: %w", err)
		}
		atEOF := err == io.EOF
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			if atEOF {
				return Record{}, false, nil
			}
			continue
		}

		fields := strings.Split(line, "\t")

		// Rows shorter than the header are padded so every header column
		// resolves; extra trailing fields are kept as-is.
		for len(fields) < len(p.header) {
			fields = append(fields, "")
		}

		return Record{Row: p.lineNumber, Fields: fields}, true, nil
	}
}

// Header returns the parsed header columns.
func (p *Parser) Header() []string {
	return p.header
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ReadFile parses an entire MAF file into memory.
func ReadFile(path string) (*File, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return readAll(p, path)
}

// ReadFrom parses a complete MAF stream into memory.
func ReadFrom(r io.Reader, path string) (*File, error) {
	p, err := NewParserFromReader(r)
	if err != nil {
		return nil, err
	}
	p.path = path

	return readAll(p, path)
}

func readAll(p *Parser, path string) (*File, error) {
	var records []Record
	for {
		rec, ok, err := p.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		records = append(records, rec)
	}
	return NewFile(path, p.Header(), records), nil
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("maf parse error in %s at line %d: %s", e.File, e.Line, e.Message)
}
