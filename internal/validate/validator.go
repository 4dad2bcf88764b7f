// Package validate cross-checks lifted records against the target
// genome sequence and builds the run's reports.
package validate

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/maflift/internal/maf"
)

// SequenceSource is the reference sequence lookup the validator reads
// from. refseq.Genome satisfies it; tests use a map-backed fake.
type SequenceSource interface {
	Has(chrom string) bool
	Fetch(chrom string, start, end int64) (string, error)
}

// Validator checks normalized, lifted records against the genome.
type Validator struct {
	// Build is the expected NCBI_Build value, e.g. "GRCh38".
	Build string
	// Threshold is the mismatch rate above which a file fails. A file
	// at exactly the threshold passes.
	Threshold float64
	// SampleCap bounds the number of mismatches kept in the report.
	SampleCap int

	genome SequenceSource
	logger *zap.Logger
}

// New creates a validator against the given sequence source.
func New(genome SequenceSource, build string, threshold float64, sampleCap int) *Validator {
	return &Validator{
		Build:     build,
		Threshold: threshold,
		SampleCap: sampleCap,
		genome:    genome,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for per-file progress messages.
func (v *Validator) SetLogger(l *zap.Logger) {
	v.logger = l
}

// ValidateFile checks every record and returns the file's report.
// Record-level problems only move counters; they never abort the file.
func (v *Validator) ValidateFile(name string, records []maf.NormalizedRecord) *FileReport {
	r := &FileReport{
		File:  name,
		Build: v.Build,
	}
	r.Counts.Total = len(records)
	missing := make(map[string]bool)

	for _, rec := range records {
		v.validateRecord(rec, r, missing)
	}

	r.MissingChromosomes = sortedKeys(missing)
	if r.Counts.Compared > 0 {
		r.MismatchRate = float64(r.Counts.RefMismatch) / float64(r.Counts.Compared)
	}
	r.Verdict = VerdictPassed
	if r.MismatchRate > v.Threshold {
		r.Verdict = VerdictFailed
	}

	v.logger.Info("validated file",
		zap.String("file", name),
		zap.Int("records", r.Counts.Total),
		zap.Int("mismatches", r.Counts.RefMismatch),
		zap.Float64("mismatch_rate", r.MismatchRate),
		zap.String("verdict", r.Verdict))

	return r
}

// validateRecord walks one record through the per-record checks:
// schema, build, chromosome availability, sequence fetch, comparison.
func (v *Validator) validateRecord(rec maf.NormalizedRecord, r *FileReport, missing map[string]bool) {
	chrom := rec.Get(maf.ColChromosome)
	ref := rec.Get(maf.ColReferenceAllele)
	alt := rec.Get(maf.ColTumorSeqAllele2)
	build := rec.Get(maf.ColNCBIBuild)
	startRaw := rec.Get(maf.ColStartPosition)
	endRaw := rec.Get(maf.ColEndPosition)

	// Schema check: a record without coordinates, alleles or build
	// cannot be located in the genome and is excluded from comparison.
	if isPlaceholder(chrom, ref, alt, build, startRaw, endRaw) {
		r.Counts.SchemaInvalid++
		return
	}
	start, err := strconv.ParseInt(startRaw, 10, 64)
	if err != nil {
		r.Counts.SchemaInvalid++
		return
	}
	if _, err := strconv.ParseInt(endRaw, 10, 64); err != nil {
		r.Counts.SchemaInvalid++
		return
	}

	// Build check is counted but does not block the sequence comparison.
	if build != v.Build {
		r.Counts.WrongBuild++
	}

	if !v.genome.Has(chrom) {
		r.Counts.ChromMissing++
		missing[chrom] = true
		return
	}

	fetched, err := v.genome.Fetch(chrom, start, start+int64(len(ref))-1)
	if err != nil {
		r.Counts.FetchErrors++
		return
	}

	r.Counts.Compared++
	if strings.EqualFold(fetched, ref) {
		r.Counts.RefOK++
		return
	}

	r.Counts.RefMismatch++
	kind := KindIndel
	if maf.IsSNV(ref, alt) {
		kind = KindSNV
		r.Counts.SNVMismatch++
	} else {
		r.Counts.IndelMismatch++
	}

	if len(r.Sample) < v.SampleCap {
		r.Sample = append(r.Sample, Mismatch{
			Chromosome: chrom,
			Position:   start,
			Expected:   ref,
			Observed:   fetched,
			Kind:       kind,
		})
	}
}

func isPlaceholder(values ...string) bool {
	for _, v := range values {
		if v == maf.Placeholder || v == "" {
			return true
		}
	}
	return false
}
