// Package maf provides MAF (Mutation Annotation Format) parsing, variant
// classification and schema normalization.
package maf

import (
	"fmt"
	"strconv"
	"strings"
)

// Standard MAF column names used throughout the pipeline.
const (
	ColChromosome      = "Chromosome"
	ColStartPosition   = "Start_Position"
	ColEndPosition     = "End_Position"
	ColReferenceAllele = "Reference_Allele"
	ColTumorSeqAllele1 = "Tumor_Seq_Allele1"
	ColTumorSeqAllele2 = "Tumor_Seq_Allele2"
	ColVariantType     = "Variant_Type"
	ColNCBIBuild       = "NCBI_Build"
)

// Columns holds the indices of the coordinate and allele columns.
// An index of -1 means the column is absent from the header.
type Columns struct {
	Chromosome      int
	StartPosition   int
	EndPosition     int
	ReferenceAllele int
	TumorSeqAllele1 int
	TumorSeqAllele2 int
	VariantType     int
	NCBIBuild       int
}

// Record is one row of mutation data. Fields are aligned to the owning
// File's header and are never mutated after parsing; derived rows are
// produced as new values.
type Record struct {
	Row    int // 1-based line number in the source file
	Fields []string
}

// File is a fully parsed MAF file: ordered records plus the header they
// are aligned to.
type File struct {
	Path    string
	Header  []string
	Columns Columns
	Records []Record

	index map[string]int
}

// NewFile builds a File from a header and records. Used by parsers and
// by tests that construct files in memory.
func NewFile(path string, header []string, records []Record) *File {
	f := &File{
		Path:    path,
		Header:  header,
		Records: records,
		index:   make(map[string]int, len(header)),
	}
	for i, col := range header {
		if _, ok := f.index[col]; !ok {
			f.index[col] = i
		}
	}
	f.Columns = Columns{
		Chromosome:      f.Index(ColChromosome),
		StartPosition:   f.Index(ColStartPosition),
		EndPosition:     f.Index(ColEndPosition),
		ReferenceAllele: f.Index(ColReferenceAllele),
		TumorSeqAllele1: f.Index(ColTumorSeqAllele1),
		TumorSeqAllele2: f.Index(ColTumorSeqAllele2),
		VariantType:     f.Index(ColVariantType),
		NCBIBuild:       f.Index(ColNCBIBuild),
	}
	return f
}

// Index returns the header index of the named column, or -1.
func (f *File) Index(col string) int {
	if i, ok := f.index[col]; ok {
		return i
	}
	return -1
}

// Get returns the value of the named column for a record, or "" when the
// column is absent.
func (f *File) Get(r Record, col string) string {
	return f.at(r, f.Index(col))
}

func (f *File) at(r Record, idx int) string {
	if idx < 0 || idx >= len(r.Fields) {
		return ""
	}
	return r.Fields[idx]
}

// Chromosome returns the record's chromosome name.
func (f *File) Chromosome(r Record) string {
	return strings.TrimSpace(f.at(r, f.Columns.Chromosome))
}

// Start returns the record's 1-based start position.
func (f *File) Start(r Record) (int64, error) {
	return f.position(r, f.Columns.StartPosition, ColStartPosition)
}

// End returns the record's end position.
func (f *File) End(r Record) (int64, error) {
	return f.position(r, f.Columns.EndPosition, ColEndPosition)
}

func (f *File) position(r Record, idx int, col string) (int64, error) {
	raw := strings.TrimSpace(f.at(r, idx))
	pos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: invalid %s %q", r.Row, col, raw)
	}
	return pos, nil
}

// RefAllele returns the record's reference allele.
func (f *File) RefAllele(r Record) string {
	return strings.TrimSpace(f.at(r, f.Columns.ReferenceAllele))
}

// TumorAllele2 returns the record's second tumor allele.
func (f *File) TumorAllele2(r Record) string {
	return strings.TrimSpace(f.at(r, f.Columns.TumorSeqAllele2))
}

// Build returns the record's stated genome build.
func (f *File) Build(r Record) string {
	return strings.TrimSpace(f.at(r, f.Columns.NCBIBuild))
}
