// Package refseq provides random access to reference genome sequence
// loaded from FASTA.
package refseq

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Genome holds chromosome sequences keyed by name. Sequences are stored
// uppercase so comparisons are case-insensitive.
type Genome struct {
	path string
	seqs map[string]string
}

// Load reads a genome FASTA file. Gzipped files (.gz) are supported.
func Load(path string) (*Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genome FASTA: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	g := &Genome{path: path, seqs: make(map[string]string)}
	if err := g.parseFASTA(reader); err != nil {
		return nil, err
	}
	return g, nil
}

// parseFASTA parses FASTA content. The chromosome name is the header
// token before the first whitespace, e.g. ">chr1 AC:CM000663.2" -> "chr1".
func (g *Genome) parseFASTA(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long sequence lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line

	var currentName string
	var currentSeq strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, ">") {
			if currentName != "" {
				g.seqs[currentName] = currentSeq.String()
			}
			currentName = parseHeader(line)
			currentSeq.Reset()
		} else {
			currentSeq.WriteString(strings.ToUpper(strings.TrimSpace(line)))
		}
	}

	if currentName != "" {
		g.seqs[currentName] = currentSeq.String()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan genome FASTA: %w", err)
	}

	if len(g.seqs) == 0 {
		return fmt.Errorf("no sequences found in %s", g.path)
	}

	return nil
}

// parseHeader extracts the chromosome name from a FASTA header line.
func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if idx := strings.IndexAny(header, " \t"); idx != -1 {
		header = header[:idx]
	}
	return header
}

// resolve maps a record's chromosome name onto a stored sequence name,
// trying the "chr" prefix both ways when the exact name is absent.
func (g *Genome) resolve(chrom string) (string, bool) {
	if _, ok := g.seqs[chrom]; ok {
		return chrom, true
	}
	if strings.HasPrefix(chrom, "chr") {
		alt := strings.TrimPrefix(chrom, "chr")
		if _, ok := g.seqs[alt]; ok {
			return alt, true
		}
	} else {
		alt := "chr" + chrom
		if _, ok := g.seqs[alt]; ok {
			return alt, true
		}
	}
	return "", false
}

// Has reports whether the genome contains the chromosome, accounting
// for "chr" prefix style differences.
func (g *Genome) Has(chrom string) bool {
	_, ok := g.resolve(chrom)
	return ok
}

// Fetch returns the subsequence at the 1-based inclusive interval
// [start, end] on the given chromosome.
func (g *Genome) Fetch(chrom string, start, end int64) (string, error) {
	name, ok := g.resolve(chrom)
	if !ok {
		return "", fmt.Errorf("chromosome %q not in genome %s", chrom, g.path)
	}
	seq := g.seqs[name]

	if start < 1 || end < start {
		return "", fmt.Errorf("invalid interval %s:%d-%d", chrom, start, end)
	}
	if end > int64(len(seq)) {
		return "", fmt.Errorf("interval %s:%d-%d beyond chromosome end (%d)", chrom, start, end, len(seq))
	}

	return seq[start-1 : end], nil
}

// Chromosomes returns the sorted chromosome names in the genome.
func (g *Genome) Chromosomes() []string {
	names := make([]string, 0, len(g.seqs))
	for name := range g.seqs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
