package maf

import (
	"go.uber.org/zap"
)

// Placeholder is the sentinel written for missing or empty schema fields.
const Placeholder = "-"

// Schema is the fixed output column order. Both the tab-delimited and
// comma-delimited outputs share this header.
var Schema = []string{
	"Hugo_Symbol",
	"Entrez_Gene_Id",
	"NCBI_Build",
	"Chromosome",
	"Start_Position",
	"End_Position",
	"Consequence",
	"Variant_Classification",
	"Variant_Type",
	"Reference_Allele",
	"Tumor_Seq_Allele1",
	"Tumor_Seq_Allele2",
	"Tumor_Sample_Barcode",
	"Transcript_ID",
	"RefSeq",
	"Gene",
	"Annotation_Status",
	"Filter",
	"Tissue",
	"Cancer_Type",
	"PMID",
	"Study",
	"Seq_Tech",
}

var schemaIndex = func() map[string]int {
	m := make(map[string]int, len(Schema))
	for i, col := range Schema {
		m[col] = i
	}
	return m
}()

// SchemaIndex returns the schema position of the named column, or -1.
func SchemaIndex(col string) int {
	if i, ok := schemaIndex[col]; ok {
		return i
	}
	return -1
}

// NormalizedRecord is a record reprojected onto Schema: exactly one
// value per schema column, in schema order, with Placeholder filling
// missing or empty fields.
type NormalizedRecord []string

// Get returns the value of the named schema column.
func (r NormalizedRecord) Get(col string) string {
	i := SchemaIndex(col)
	if i < 0 || i >= len(r) {
		return Placeholder
	}
	return r[i]
}

// Normalizer reprojects arbitrary MAF records onto the fixed schema.
type Normalizer struct {
	// MissingWarnFraction is the fraction of schema columns that may be
	// absent from a file's header before a warning is logged.
	MissingWarnFraction float64

	logger *zap.Logger
}

// NewNormalizer creates a normalizer that warns when more than
// missingWarnFraction of the schema columns are absent from the input.
func NewNormalizer(missingWarnFraction float64) *Normalizer {
	return &Normalizer{
		MissingWarnFraction: missingWarnFraction,
		logger:              zap.NewNop(),
	}
}

// SetLogger sets the logger for warning messages.
func (n *Normalizer) SetLogger(l *zap.Logger) {
	n.logger = l
}

// Normalize reprojects one record onto the schema. It never fails:
// present non-empty fields are copied verbatim, everything else becomes
// the placeholder, and columns outside the schema are dropped.
// Variant_Type is recomputed from the normalized alleles.
func (n *Normalizer) Normalize(f *File, r Record) NormalizedRecord {
	out := make(NormalizedRecord, len(Schema))
	for i, col := range Schema {
		v := f.Get(r, col)
		if v == "" {
			v = Placeholder
		}
		out[i] = v
	}

	ref := out[SchemaIndex(ColReferenceAllele)]
	alt := out[SchemaIndex(ColTumorSeqAllele2)]
	out[SchemaIndex(ColVariantType)] = string(Classify(ref, alt))

	return out
}

// NormalizeFile normalizes every record of a file in order. A single
// warning is logged when the file's header covers too little of the
// schema, since that usually signals a malformed source file.
func (n *Normalizer) NormalizeFile(f *File) []NormalizedRecord {
	if frac := MissingFraction(f.Header); frac > n.MissingWarnFraction {
		n.logger.Warn("input covers little of the output schema",
			zap.String("file", f.Path),
			zap.Float64("missing_fraction", frac))
	}

	out := make([]NormalizedRecord, 0, len(f.Records))
	for _, r := range f.Records {
		out = append(out, n.Normalize(f, r))
	}
	return out
}

// MissingFraction returns the fraction of schema columns absent from a
// header.
func MissingFraction(header []string) float64 {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	missing := 0
	for _, col := range Schema {
		if !present[col] {
			missing++
		}
	}
	return float64(missing) / float64(len(Schema))
}
