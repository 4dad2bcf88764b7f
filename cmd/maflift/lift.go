package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/maflift/internal/pipeline"
	"github.com/inodb/maflift/internal/validate"
)

func newLiftCmd() *cobra.Command {
	var (
		chainPath   string
		fastaPath   string
		crossmapBin string
		chromStyle  string
		targetBuild string
		outputDir   string
		unmappedDir string
		reportDir   string
		threshold   float64
		sampleCap   int
		workers     int
		reportDB    string
	)

	cmd := &cobra.Command{
		Use:   "lift [flags] <maf-file>...",
		Short: "Lift MAF files to GRCh38 and validate against the reference genome",
		Example: `  maflift lift data_mutations.txt
  maflift lift --output-dir lifted/ --threshold 0.05 study1.maf study2.maf
  maflift lift --chain custom.chain.gz --fasta hg38.fa.gz data_mutations.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pipeline.Config{
				CrossMapBin:       resolve(crossmapBin, "crossmap.bin"),
				ChainPath:         resolve(chainPath, "liftover.chain"),
				FastaPath:         resolve(fastaPath, "reference.fasta"),
				TargetBuild:       targetBuild,
				ChromStyle:        chromStyle,
				OutputDir:         outputDir,
				UnmappedDir:       unmappedDir,
				ReportDir:         reportDir,
				MismatchThreshold: threshold,
				MismatchSampleCap: sampleCap,
				Workers:           workers,
				ReportDB:          resolve(reportDB, "reports.db"),
			}

			// Fall back to files a previous download placed.
			if cfg.ChainPath == "" || cfg.FastaPath == "" {
				chain, fasta, found := FindDataFiles()
				if cfg.ChainPath == "" {
					cfg.ChainPath = chain
				}
				if cfg.FastaPath == "" {
					cfg.FastaPath = fasta
				}
				if !found && (cfg.ChainPath == "" || cfg.FastaPath == "") {
					fmt.Fprintf(os.Stderr, "Error: no chain file or reference genome configured\n")
					fmt.Fprintf(os.Stderr, "Hint: run 'maflift download' or pass --chain and --fasta\n")
					return fmt.Errorf("missing liftover inputs")
				}
			}

			return runLift(cfg, args)
		},
	}

	cmd.Flags().StringVar(&chainPath, "chain", "", "GRCh37 to GRCh38 chain file (default: from config or ~/.maflift/)")
	cmd.Flags().StringVar(&fastaPath, "fasta", "", "GRCh38 reference genome FASTA (default: from config or ~/.maflift/)")
	cmd.Flags().StringVar(&crossmapBin, "crossmap", "", "CrossMap executable (default: CrossMap on PATH)")
	cmd.Flags().StringVar(&chromStyle, "chromid", "a", "chromosome id style passed to CrossMap: a, s, or l")
	cmd.Flags().StringVar(&targetBuild, "build", "GRCh38", "target build name written to NCBI_Build")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "output", "directory for lifted MAF output")
	cmd.Flags().StringVar(&unmappedDir, "unmapped-dir", "unmapped", "directory for unmapped record sidecars")
	cmd.Flags().StringVar(&reportDir, "report-dir", "reports", "directory for validation reports")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.1, "maximum tolerated reference mismatch rate")
	cmd.Flags().IntVar(&sampleCap, "sample-cap", 50, "maximum mismatch examples kept per file report")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of files processed in parallel (default: CPU count)")
	cmd.Flags().StringVar(&reportDB, "report-db", "", "DuckDB file for the report history (optional)")

	return cmd
}

// resolve prefers the flag value, then the config file.
func resolve(flagVal, key string) string {
	if flagVal != "" {
		return flagVal
	}
	return viper.GetString(key)
}

func runLift(cfg pipeline.Config, inputs []string) error {
	fmt.Fprintf(os.Stderr, "Lifting %d file(s) to %s\n", len(inputs), cfg.TargetBuild)
	fmt.Fprintf(os.Stderr, "  Chain: %s\n", cfg.ChainPath)
	fmt.Fprintf(os.Stderr, "  FASTA: %s\n", cfg.FastaPath)

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	p.SetLogger(newLogger())

	run, err := p.Run(cmdContext(), inputs)
	if err != nil {
		return err
	}

	var failed int
	for _, res := range run.Files {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: ERROR: %v\n", res.Input, res.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %d mapped, %d unmapped, mismatch rate %.4f, %s\n",
			res.Input, res.MappedCount, res.UnmappedCount,
			res.Report.MismatchRate, res.Report.Verdict)
	}

	if run.Aggregate != nil {
		fmt.Fprintf(os.Stderr, "\nRun verdict: %s (%d files, summary: %s)\n",
			run.Aggregate.Verdict, run.Aggregate.Files, run.AggregatePath)
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to process", failed)
	}
	if run.Aggregate != nil && run.Aggregate.Verdict == validate.VerdictFailed {
		return errValidationFailed
	}
	return nil
}
