// Package liftover drives the external coordinate-mapping tool and
// partitions its results.
package liftover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/maflift/internal/maf"
)

// UnmappedRecord is an input record the liftover could not place,
// with its original (pre-liftover) fields intact.
type UnmappedRecord struct {
	Record maf.Record
	Reason string
}

// Result partitions the input records into mapped and unmapped.
// Order within each partition follows the input order.
type Result struct {
	Mapped   *maf.File
	Unmapped []UnmappedRecord
}

// Runner executes the external liftover tool. Tests substitute a fake
// that fabricates the tool's output files.
type Runner interface {
	Run(ctx context.Context, name string, args []string, logPath string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, logPath string) error {
	log, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create liftover log: %w", err)
	}
	defer log.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = log
	cmd.Stderr = log
	return cmd.Run()
}

// Driver invokes the liftover tool once per input file.
type Driver struct {
	Bin        string // liftover executable, e.g. "CrossMap"
	Chain      string // chain file mapping the old build to the new one
	Fasta      string // target genome FASTA handed to the tool
	Build      string // target build name, e.g. "GRCh38"
	ChromStyle string // chromosome naming style flag, e.g. "a", "s", "l"

	runner Runner
	logger *zap.Logger
}

// NewDriver creates a driver for the given tool and reference assets.
func NewDriver(bin, chain, fasta, build, chromStyle string) *Driver {
	return &Driver{
		Bin:        bin,
		Chain:      chain,
		Fasta:      fasta,
		Build:      build,
		ChromStyle: chromStyle,
		runner:     execRunner{},
		logger:     zap.NewNop(),
	}
}

// SetRunner replaces the process runner. Used by tests.
func (d *Driver) SetRunner(r Runner) {
	d.runner = r
}

// SetLogger sets the logger for warning messages.
func (d *Driver) SetLogger(l *zap.Logger) {
	d.logger = l
}

// Lift runs the liftover tool on the input file, writing the lifted
// records to outPath, and returns the mapped/unmapped partition.
// Every input record lands in exactly one partition; records the tool
// drops without explanation are synthesized into the unmapped partition.
// The returned error is fatal for the file (tool missing, tool exited
// non-zero, unreadable outputs); individual unmapped records are not
// errors.
func (d *Driver) Lift(ctx context.Context, in *maf.File, outPath string) (*Result, error) {
	if _, err := os.Stat(d.Chain); err != nil {
		return nil, fmt.Errorf("chain file %s: %w", d.Chain, err)
	}

	args := []string{"maf", "--chromid", d.ChromStyle, d.Chain, in.Path, d.Fasta, d.Build, outPath}
	if err := d.runner.Run(ctx, d.Bin, args, outPath+".log"); err != nil {
		return nil, fmt.Errorf("run %s on %s: %w", d.Bin, in.Path, err)
	}

	mapped, err := maf.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read liftover output: %w", err)
	}

	unmapped, err := d.readUnmapped(outPath + ".unmap")
	if err != nil {
		return nil, err
	}

	res := &Result{Mapped: mapped, Unmapped: unmapped}
	d.recheckAlleleSpans(in, res)
	d.reconcile(in, res)

	return res, nil
}

// readUnmapped parses the tool's .unmap sidecar. A row carrying one
// field beyond the header has the tool's failure tag in that field.
func (d *Driver) readUnmapped(path string) ([]UnmappedRecord, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := maf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unmapped records: %w", err)
	}

	out := make([]UnmappedRecord, 0, len(f.Records))
	for _, r := range f.Records {
		reason := "unmapped by liftover tool"
		if len(r.Fields) == len(f.Header)+1 {
			if tag := strings.TrimSpace(r.Fields[len(r.Fields)-1]); tag != "" {
				reason = normalizeReason(tag)
			}
			r.Fields = r.Fields[:len(r.Fields)-1]
		}
		out = append(out, UnmappedRecord{Record: r, Reason: reason})
	}
	return out, nil
}

// normalizeReason maps the tool's terse failure tags onto readable
// reasons. Unknown tags pass through unchanged.
func normalizeReason(tag string) string {
	t := strings.ToLower(tag)
	t = strings.TrimSpace(strings.TrimPrefix(t, "fail"))
	switch t {
	case "", "(unmap)":
		return "unmapped by liftover tool"
	case "(multiple_to_one)", "(multiple)":
		return "ambiguous: multiple target positions"
	case "(rev_comp)":
		return "strand flip changed allele orientation"
	default:
		return tag
	}
}

// recheckAlleleSpans moves mapped records whose lifted interval no
// longer covers the reference allele into the unmapped partition. A
// lifted coordinate that disagrees with its own allele length means the
// tool changed the record's shape, and keeping it would carry stale
// alleles forward. Rerouted records are restored to their original
// pre-liftover row, matched by the liftover-invariant fields, so the
// unmapped sidecar never carries lifted coordinates.
func (d *Driver) recheckAlleleSpans(in *maf.File, res *Result) {
	f := res.Mapped
	kept := res.Mapped.Records[:0]

	originals := make(map[string][]maf.Record)
	for _, r := range in.Records {
		key := invariantKey(in, r)
		originals[key] = append(originals[key], r)
	}
	original := func(r maf.Record) maf.Record {
		key := invariantKey(f, r)
		if q := originals[key]; len(q) > 0 {
			originals[key] = q[1:]
			return q[0]
		}
		return r
	}

	for _, r := range f.Records {
		ref := f.RefAllele(r)
		if ref == maf.Placeholder || ref == "" {
			// Insertions carry no reference bases; nothing to cross-check.
			kept = append(kept, r)
			continue
		}

		start, serr := f.Start(r)
		end, eerr := f.End(r)
		if serr != nil || eerr != nil {
			res.Unmapped = append(res.Unmapped, UnmappedRecord{
				Record: original(r),
				Reason: "invalid coordinates after liftover",
			})
			continue
		}

		if end-start+1 != int64(len(ref)) {
			res.Unmapped = append(res.Unmapped, UnmappedRecord{
				Record: original(r),
				Reason: "allele span changed by liftover",
			})
			continue
		}

		kept = append(kept, r)
	}

	res.Mapped.Records = kept
}

// reconcile enforces partition completeness: |mapped| + |unmapped| must
// equal the input count. Input rows the tool reported in neither file
// are matched by their liftover-invariant fields and synthesized as
// unmapped.
func (d *Driver) reconcile(in *maf.File, res *Result) {
	accounted := len(res.Mapped.Records) + len(res.Unmapped)
	if accounted == len(in.Records) {
		return
	}
	if accounted > len(in.Records) {
		d.logger.Warn("liftover reported more records than the input holds",
			zap.String("file", in.Path),
			zap.Int("input", len(in.Records)),
			zap.Int("accounted", accounted))
		return
	}

	seen := make(map[string]int)
	for _, r := range res.Mapped.Records {
		seen[invariantKey(res.Mapped, r)]++
	}
	for _, u := range res.Unmapped {
		seen[invariantKey(in, u.Record)]++
	}

	for _, r := range in.Records {
		key := invariantKey(in, r)
		if seen[key] > 0 {
			seen[key]--
			continue
		}
		res.Unmapped = append(res.Unmapped, UnmappedRecord{
			Record: r,
			Reason: "dropped by liftover tool",
		})
	}
}

// invariantKey joins the fields liftover does not rewrite (everything
// except coordinates and build), identifying a record across the lift.
func invariantKey(f *maf.File, r maf.Record) string {
	skip := map[int]bool{
		f.Columns.Chromosome:    true,
		f.Columns.StartPosition: true,
		f.Columns.EndPosition:   true,
		f.Columns.NCBIBuild:     true,
	}

	parts := make([]string, 0, len(r.Fields))
	for i, v := range r.Fields {
		if skip[i] {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "\t")
}
