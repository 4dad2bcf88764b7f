package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// UCSC download URLs for the liftover inputs.
const (
	chainURL = "https://hgdownload.soe.ucsc.edu/goldenPath/hg19/liftOver/hg19ToHg38.over.chain.gz"
	fastaURL = "https://hgdownload.soe.ucsc.edu/goldenPath/hg38/bigZips/hg38.fa.gz"
)

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		chainOnly bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the chain file and GRCh38 reference genome",
		Long: `Download the hg19-to-hg38 chain file and the GRCh38 reference genome
from UCSC. maflift picks these up automatically on later runs.

Files downloaded:
  - hg19ToHg38.over.chain.gz (~200KB)
  - hg38.fa.gz (~950MB)`,
		Example: `  maflift download
  maflift download --chain-only
  maflift download --output /data/liftover`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(outputDir, chainOnly)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "output directory (default: ~/.maflift/)")
	cmd.Flags().BoolVar(&chainOnly, "chain-only", false, "only download the chain file (skip the genome)")

	return cmd
}

func runDownload(outputDir string, chainOnly bool) error {
	if outputDir == "" {
		outputDir = defaultDataDir()
		if outputDir == "" {
			return fmt.Errorf("cannot determine home directory")
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
	}

	fmt.Printf("Downloading liftover inputs...\n")
	fmt.Printf("Destination: %s\n\n", outputDir)

	chainFile := filepath.Join(outputDir, filepath.Base(chainURL))
	if err := downloadFile(chainURL, chainFile); err != nil {
		return fmt.Errorf("download chain file: %w", err)
	}

	if !chainOnly {
		fastaFile := filepath.Join(outputDir, filepath.Base(fastaURL))
		if err := downloadFile(fastaURL, fastaFile); err != nil {
			return fmt.Errorf("download reference genome: %w", err)
		}
	}

	fmt.Printf("\nDownload complete!\n")
	fmt.Printf("To lift a MAF file, run:\n")
	fmt.Printf("  maflift lift data_mutations.txt\n")

	return nil
}

// FindDataFiles looks for a chain file and reference genome in the
// default data directory.
func FindDataFiles() (chainPath, fastaPath string, found bool) {
	dir := defaultDataDir()
	if dir == "" {
		return "", "", false
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.over.chain.gz"))
	if err != nil || len(matches) == 0 {
		return "", "", false
	}
	chainPath = matches[0]

	for _, pattern := range []string{"*.fa.gz", "*.fasta.gz", "*.fa", "*.fasta"} {
		matches, err = filepath.Glob(filepath.Join(dir, pattern))
		if err == nil && len(matches) > 0 {
			fastaPath = matches[0]
			break
		}
	}

	return chainPath, fastaPath, true
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	// Long timeout for the genome file
	client := &http.Client{
		Timeout: 60 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
