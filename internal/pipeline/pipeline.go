// Package pipeline orchestrates the per-file liftover, normalization,
// output and validation stages across a run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/maflift/internal/liftover"
	"github.com/inodb/maflift/internal/maf"
	"github.com/inodb/maflift/internal/output"
	"github.com/inodb/maflift/internal/refseq"
	"github.com/inodb/maflift/internal/reportdb"
	"github.com/inodb/maflift/internal/validate"
)

// Config carries every setting the pipeline needs. The CLI populates it
// from flags and the config file; nothing below cmd/ reads global state.
type Config struct {
	CrossMapBin string // liftover executable
	ChainPath   string // chain file, old build -> target build
	FastaPath   string // target genome FASTA
	TargetBuild string // e.g. "GRCh38"
	ChromStyle  string // chromosome naming style passed to the tool

	OutputDir   string
	UnmappedDir string
	ReportDir   string

	MismatchThreshold   float64 // mismatch rate above which a file fails
	MismatchSampleCap   int     // bound on mismatches kept per report
	MissingWarnFraction float64 // schema coverage warning threshold

	Workers  int
	ReportDB string // optional DuckDB path for report history
}

func (c Config) withDefaults() Config {
	if c.CrossMapBin == "" {
		c.CrossMapBin = "CrossMap"
	}
	if c.TargetBuild == "" {
		c.TargetBuild = "GRCh38"
	}
	if c.ChromStyle == "" {
		c.ChromStyle = "a"
	}
	if c.MismatchSampleCap == 0 {
		c.MismatchSampleCap = 50
	}
	if c.MissingWarnFraction == 0 {
		c.MissingWarnFraction = 0.5
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// FileResult is the outcome of processing one input file. Err is set
// for file-fatal problems; the rest of the run continues regardless.
type FileResult struct {
	Input          string
	Output         string
	CSVOutput      string
	UnmappedOutput string
	ReportPath     string
	MappedCount    int
	UnmappedCount  int
	Report         *validate.FileReport
	Err            error
}

// RunResult is the outcome of a whole run.
type RunResult struct {
	Files         []FileResult
	Aggregate     *validate.AggregateReport
	AggregatePath string
}

// Pipeline processes MAF files through liftover and validation.
type Pipeline struct {
	cfg       Config
	genome    *refseq.Genome
	driver    *liftover.Driver
	norm      *maf.Normalizer
	validator *validate.Validator
	logger    *zap.Logger
}

// New loads the reference genome and builds the pipeline. An unreadable
// genome is fatal for the whole run.
func New(cfg Config) (*Pipeline, error) {
	cfg = cfg.withDefaults()

	genome, err := refseq.Load(cfg.FastaPath)
	if err != nil {
		return nil, fmt.Errorf("load reference genome: %w", err)
	}

	return &Pipeline{
		cfg:       cfg,
		genome:    genome,
		driver:    liftover.NewDriver(cfg.CrossMapBin, cfg.ChainPath, cfg.FastaPath, cfg.TargetBuild, cfg.ChromStyle),
		norm:      maf.NewNormalizer(cfg.MissingWarnFraction),
		validator: validate.New(genome, cfg.TargetBuild, cfg.MismatchThreshold, cfg.MismatchSampleCap),
		logger:    zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for the pipeline and its stages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
	p.driver.SetLogger(l)
	p.norm.SetLogger(l)
	p.validator.SetLogger(l)
}

// SetRunner replaces the liftover process runner. Used by tests.
func (p *Pipeline) SetRunner(r liftover.Runner) {
	p.driver.SetRunner(r)
}

// Run processes every input file and writes the aggregate report.
// File-fatal errors land in the corresponding FileResult; the returned
// error covers run-level failures only (output dirs, aggregate report,
// report history store).
func (p *Pipeline) Run(ctx context.Context, inputs []string) (*RunResult, error) {
	for _, dir := range []string{p.cfg.OutputDir, p.cfg.UnmappedDir, p.cfg.ReportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	// Files are independent units; a bounded worker pool processes them
	// concurrently, each worker writing only its own result slot.
	results := make([]FileResult, len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := min(p.cfg.Workers, len(inputs))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.processFile(ctx, inputs[i])
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	run := &RunResult{Files: results}

	var reports []*validate.FileReport
	var failed []FileResult
	for i := range results {
		if results[i].Err != nil {
			p.logger.Error("file failed",
				zap.String("file", results[i].Input),
				zap.Error(results[i].Err))
			failed = append(failed, results[i])
			continue
		}
		reports = append(reports, results[i].Report)
	}

	// Failed files must still leave a trace in the durable report; a run
	// with a failed file cannot pass.
	run.Aggregate = validate.Aggregate(reports)
	for _, f := range failed {
		run.Aggregate.AddFailure(f.Input, f.Err)
	}
	run.AggregatePath = filepath.Join(p.cfg.ReportDir, "validation_summary.json")
	if err := run.Aggregate.WriteFile(run.AggregatePath); err != nil {
		return nil, err
	}

	if p.cfg.ReportDB != "" {
		if err := p.persistReports(reports); err != nil {
			return nil, err
		}
	}

	return run, nil
}

// processFile runs one file through liftover, normalization, output and
// validation.
func (p *Pipeline) processFile(ctx context.Context, input string) FileResult {
	res := FileResult{Input: input}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	base := fmt.Sprintf("%s.%s", stem, p.cfg.TargetBuild)
	res.Output = filepath.Join(p.cfg.OutputDir, base+".txt")
	res.CSVOutput = filepath.Join(p.cfg.OutputDir, base+".csv")
	res.UnmappedOutput = filepath.Join(p.cfg.UnmappedDir, base+".txt.unmap")
	res.ReportPath = filepath.Join(p.cfg.ReportDir, stem+".validation.json")

	in, err := maf.ReadFile(input)
	if err != nil {
		res.Err = fmt.Errorf("parse %s: %w", input, err)
		return res
	}

	lifted, err := p.driver.Lift(ctx, in, res.Output)
	if err != nil {
		res.Err = err
		return res
	}
	res.MappedCount = len(lifted.Mapped.Records)
	res.UnmappedCount = len(lifted.Unmapped)
	// The tool's raw .unmap sidecar has been consumed into the
	// partition; the annotated one below replaces it.
	os.Remove(res.Output + ".unmap")

	normalized := p.norm.NormalizeFile(lifted.Mapped)

	if err := p.writeOutputs(res, in, normalized, lifted.Unmapped); err != nil {
		res.Err = err
		return res
	}

	report := p.validator.ValidateFile(filepath.Base(res.Output), normalized)
	// The validator only sees mapped records; widen Total back to the
	// whole input so total == mapped + unmapped in the report.
	report.Counts.Total = res.MappedCount + res.UnmappedCount
	report.Counts.Mapped = res.MappedCount
	report.Counts.Unmapped = res.UnmappedCount
	res.Report = report

	if err := report.WriteFile(res.ReportPath); err != nil {
		res.Err = err
		return res
	}

	p.logger.Info("processed file",
		zap.String("input", input),
		zap.Int("mapped", res.MappedCount),
		zap.Int("unmapped", res.UnmappedCount),
		zap.String("verdict", report.Verdict))

	return res
}

// writeOutputs emits the dual-format lifted records and the unmapped
// sidecar. The tab output overwrites the tool's raw lifted file with
// its schema-normalized form.
func (p *Pipeline) writeOutputs(res FileResult, in *maf.File, normalized []maf.NormalizedRecord, unmapped []liftover.UnmappedRecord) error {
	tabFile, err := os.Create(res.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer tabFile.Close()

	tw := output.NewTabWriter(tabFile)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("write tab output: %w", err)
	}
	for _, rec := range normalized {
		if err := tw.Write(rec); err != nil {
			return fmt.Errorf("write tab output: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write tab output: %w", err)
	}

	csvFile, err := os.Create(res.CSVOutput)
	if err != nil {
		return fmt.Errorf("create csv output: %w", err)
	}
	defer csvFile.Close()

	cw := output.NewCSVWriter(csvFile)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("write csv output: %w", err)
	}
	for _, rec := range normalized {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv output: %w", err)
		}
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("write csv output: %w", err)
	}

	unmapFile, err := os.Create(res.UnmappedOutput)
	if err != nil {
		return fmt.Errorf("create unmapped output: %w", err)
	}
	defer unmapFile.Close()

	uw := output.NewUnmappedWriter(unmapFile, in.Header)
	if err := uw.WriteHeader(); err != nil {
		return fmt.Errorf("write unmapped output: %w", err)
	}
	for _, u := range unmapped {
		if err := uw.Write(u.Record.Fields, u.Reason); err != nil {
			return fmt.Errorf("write unmapped output: %w", err)
		}
	}
	if err := uw.Flush(); err != nil {
		return fmt.Errorf("write unmapped output: %w", err)
	}

	return nil
}

// persistReports appends this run's reports to the history store.
func (p *Pipeline) persistReports(reports []*validate.FileReport) error {
	store, err := reportdb.Open(p.cfg.ReportDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runAt := time.Now().UTC()
	for _, r := range reports {
		if err := store.WriteReport(runAt, r); err != nil {
			return err
		}
	}
	return nil
}
