package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
)

// Verdict values for files and for the whole run.
const (
	VerdictPassed = "PASSED"
	VerdictFailed = "FAILED"
)

// Mismatch kinds, split by the same length rule as variant
// classification.
const (
	KindSNV   = "SNV"
	KindIndel = "INDEL"
)

// Mismatch is one record whose stated reference allele disagrees with
// the genome sequence at its lifted position.
type Mismatch struct {
	Chromosome string `json:"chromosome"`
	Position   int64  `json:"position"`
	Expected   string `json:"expected_allele"`
	Observed   string `json:"observed_sequence"`
	Kind       string `json:"kind"`
}

// Counts accumulates the per-record outcomes of a validation pass.
// Total covers every input record (mapped + unmapped when liftover ran
// first); Compared is the mismatch-rate denominator.
type Counts struct {
	Total         int `json:"total"`
	Mapped        int `json:"mapped"`
	Unmapped      int `json:"unmapped"`
	SchemaInvalid int `json:"schema_invalid"`
	WrongBuild    int `json:"wrong_build"`
	ChromMissing  int `json:"chrom_missing"`
	FetchErrors   int `json:"fetch_errors"`
	Compared      int `json:"compared"`
	RefOK         int `json:"ref_ok"`
	RefMismatch   int `json:"ref_mismatch"`
	SNVMismatch   int `json:"snv_mismatch"`
	IndelMismatch int `json:"indel_mismatch"`
}

// Add sums another Counts into this one.
func (c *Counts) Add(o Counts) {
	c.Total += o.Total
	c.Mapped += o.Mapped
	c.Unmapped += o.Unmapped
	c.SchemaInvalid += o.SchemaInvalid
	c.WrongBuild += o.WrongBuild
	c.ChromMissing += o.ChromMissing
	c.FetchErrors += o.FetchErrors
	c.Compared += o.Compared
	c.RefOK += o.RefOK
	c.RefMismatch += o.RefMismatch
	c.SNVMismatch += o.SNVMismatch
	c.IndelMismatch += o.IndelMismatch
}

// FileReport is the validation result for one input file.
type FileReport struct {
	File               string     `json:"file"`
	Build              string     `json:"build"`
	Counts             Counts     `json:"counts"`
	MismatchRate       float64    `json:"mismatch_rate"`
	MissingChromosomes []string   `json:"missing_chromosomes"`
	Sample             []Mismatch `json:"mismatch_sample"`
	Verdict            string     `json:"verdict"`
}

// AggregateReport sums FileReports across a run. Files counts every
// input file, including those whose processing failed before a report
// could be produced; such files appear in FailedFiles with the error
// and force the run verdict to FAILED.
type AggregateReport struct {
	Files              int               `json:"files"`
	Counts             Counts            `json:"counts"`
	MismatchRate       float64           `json:"mismatch_rate"`
	MissingChromosomes []string          `json:"missing_chromosomes"`
	FileVerdicts       map[string]string `json:"file_verdicts"`
	FailedFiles        map[string]string `json:"failed_files,omitempty"`
	Verdict            string            `json:"verdict"`
}

// Aggregate merges per-file reports. The run passes only if every
// constituent file passed.
func Aggregate(reports []*FileReport) *AggregateReport {
	agg := &AggregateReport{
		Files: len(reports),
		Counts: lo.Reduce(reports, func(acc Counts, r *FileReport, _ int) Counts {
			acc.Add(r.Counts)
			return acc
		}, Counts{}),
		MissingChromosomes: lo.Uniq(lo.FlatMap(reports, func(r *FileReport, _ int) []string {
			return r.MissingChromosomes
		})),
		FileVerdicts: lo.SliceToMap(reports, func(r *FileReport) (string, string) {
			return r.File, r.Verdict
		}),
	}
	sort.Strings(agg.MissingChromosomes)

	if agg.Counts.Compared > 0 {
		agg.MismatchRate = float64(agg.Counts.RefMismatch) / float64(agg.Counts.Compared)
	}

	agg.Verdict = VerdictPassed
	if !lo.EveryBy(reports, func(r *FileReport) bool { return r.Verdict == VerdictPassed }) {
		agg.Verdict = VerdictFailed
	}

	return agg
}

// AddFailure records a file whose processing failed before validation
// could run. The file still counts toward the run, and a run with any
// failed file cannot pass.
func (a *AggregateReport) AddFailure(file string, err error) {
	if a.FailedFiles == nil {
		a.FailedFiles = make(map[string]string)
	}
	a.FailedFiles[file] = err.Error()
	a.Files++
	a.Verdict = VerdictFailed
}

// WriteFile persists the report as indented JSON.
func (r *FileReport) WriteFile(path string) error {
	return writeJSON(path, r)
}

// WriteFile persists the aggregate report as indented JSON.
func (a *AggregateReport) WriteFile(path string) error {
	return writeJSON(path, a)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
