package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/maflift/internal/maf"
	"github.com/inodb/maflift/internal/refseq"
	"github.com/inodb/maflift/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var (
		fastaPath string
		build     string
		threshold float64
		sampleCap int
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "validate [flags] <maf-file>...",
		Short: "Validate already-lifted MAF files against the reference genome",
		Long: `Check the reference allele of every record in a lifted MAF file
against the genome sequence at its stated coordinates, without running
the liftover itself. Useful for auditing files lifted elsewhere.`,
		Example: `  maflift validate output/mutations.GRCh38.txt
  maflift validate --threshold 0.01 --fasta hg38.fa.gz lifted/*.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fasta := resolve(fastaPath, "reference.fasta")
			if fasta == "" {
				_, fasta, _ = FindDataFiles()
			}
			if fasta == "" {
				fmt.Fprintf(os.Stderr, "Error: no reference genome configured\n")
				fmt.Fprintf(os.Stderr, "Hint: run 'maflift download' or pass --fasta\n")
				return fmt.Errorf("missing reference genome")
			}
			return runValidate(fasta, build, threshold, sampleCap, reportDir, args)
		},
	}

	cmd.Flags().StringVar(&fastaPath, "fasta", "", "reference genome FASTA (default: from config or ~/.maflift/)")
	cmd.Flags().StringVar(&build, "build", "GRCh38", "expected NCBI_Build value")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.1, "maximum tolerated reference mismatch rate")
	cmd.Flags().IntVar(&sampleCap, "sample-cap", 50, "maximum mismatch examples kept per file report")
	cmd.Flags().StringVar(&reportDir, "report-dir", "reports", "directory for validation reports")

	return cmd
}

func runValidate(fasta, build string, threshold float64, sampleCap int, reportDir string, inputs []string) error {
	fmt.Fprintf(os.Stderr, "Loading reference genome %s...\n", fasta)
	genome, err := refseq.Load(fasta)
	if err != nil {
		return fmt.Errorf("load reference genome: %w", err)
	}

	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	logger := newLogger()
	v := validate.New(genome, build, threshold, sampleCap)
	v.SetLogger(logger)
	norm := maf.NewNormalizer(0.5)
	norm.SetLogger(logger)

	var reports []*validate.FileReport
	var failed int
	for _, input := range inputs {
		f, err := maf.ReadFile(input)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: ERROR: %v\n", input, err)
			continue
		}

		report := v.ValidateFile(filepath.Base(input), norm.NormalizeFile(f))
		reports = append(reports, report)

		reportPath := filepath.Join(reportDir, reportName(input))
		if err := report.WriteFile(reportPath); err != nil {
			return fmt.Errorf("write report for %s: %w", input, err)
		}

		fmt.Fprintf(os.Stderr, "  %s: %d records, %d compared, mismatch rate %.4f, %s\n",
			input, report.Counts.Total, report.Counts.Compared,
			report.MismatchRate, report.Verdict)
	}

	agg := validate.Aggregate(reports)
	aggPath := filepath.Join(reportDir, "validation_summary.json")
	if err := agg.WriteFile(aggPath); err != nil {
		return fmt.Errorf("write aggregate report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\nRun verdict: %s (%d files, summary: %s)\n", agg.Verdict, agg.Files, aggPath)

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to process", failed)
	}
	if agg.Verdict == validate.VerdictFailed {
		return errValidationFailed
	}
	return nil
}

func reportName(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + ".validation.json"
}
