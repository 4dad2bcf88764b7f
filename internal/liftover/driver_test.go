package liftover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/maflift/internal/maf"
)

const inputHeader = "Hugo_Symbol\tChromosome\tStart_Position\tEnd_Position\tReference_Allele\tTumor_Seq_Allele2\tNCBI_Build"

// fakeRunner stands in for the external tool: instead of executing
// anything it writes pre-baked output and .unmap files.
type fakeRunner struct {
	out    string // contents of the lifted output file; "" skips the write
	unmap  string // contents of the .unmap sidecar; "" skips the write
	err    error
	called bool
	args   []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string, _ string) error {
	f.called = true
	f.args = args
	if f.err != nil {
		return f.err
	}
	outPath := args[len(args)-1]
	if f.out != "" {
		if err := os.WriteFile(outPath, []byte(f.out), 0o644); err != nil {
			return err
		}
	}
	if f.unmap != "" {
		if err := os.WriteFile(outPath+".unmap", []byte(f.unmap), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeInput(t *testing.T, dir, content string) *maf.File {
	t.Helper()
	path := filepath.Join(dir, "input.maf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	f, err := maf.ReadFile(path)
	require.NoError(t, err)
	return f
}

func newTestDriver(t *testing.T, dir string, r Runner) *Driver {
	t.Helper()
	chain := filepath.Join(dir, "hg19ToHg38.over.chain.gz")
	require.NoError(t, os.WriteFile(chain, []byte("chain"), 0o644))

	d := NewDriver("CrossMap", chain, filepath.Join(dir, "genome.fa"), "GRCh38", "a")
	d.SetRunner(r)
	return d
}

func TestDriver_PartitionsMappedAndUnmapped(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, inputHeader+"\n"+
		"TP53\t17\t7577120\t7577120\tC\tT\tGRCh37\n"+
		"KRAS\t12\t25398285\t25398285\tG\tT\tGRCh37\n"+
		"GENE3\t9\t1000\t1000\tA\tG\tGRCh37\n")

	runner := &fakeRunner{
		out: inputHeader + "\n" +
			"TP53\t17\t7674220\t7674220\tC\tT\tGRCh38\n" +
			"KRAS\t12\t25245350\t25245350\tG\tT\tGRCh38\n",
		unmap: inputHeader + "\n" +
			"GENE3\t9\t1000\t1000\tA\tG\tGRCh37\tFail (unmap)\n",
	}
	d := newTestDriver(t, dir, runner)

	res, err := d.Lift(context.Background(), in, filepath.Join(dir, "out.maf"))
	require.NoError(t, err)

	// Partition completeness: every input record in exactly one side.
	assert.Len(t, res.Mapped.Records, 2)
	require.Len(t, res.Unmapped, 1)
	assert.Equal(t, len(in.Records), len(res.Mapped.Records)+len(res.Unmapped))

	assert.Equal(t, "unmapped by liftover tool", res.Unmapped[0].Reason)
	assert.Equal(t, "GENE3", res.Unmapped[0].Record.Fields[0])
	// The trailing failure tag is not kept in the record fields.
	assert.Len(t, res.Unmapped[0].Record.Fields, 7)

	// Lifted coordinates come through.
	start, err := res.Mapped.Start(res.Mapped.Records[0])
	require.NoError(t, err)
	assert.Equal(t, int64(7674220), start)
}

func TestDriver_ReasonNormalization(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"Fail (unmap)", "unmapped by liftover tool"},
		{"Fail", "unmapped by liftover tool"},
		{"Fail (multiple_to_one)", "ambiguous: multiple target positions"},
		{"Fail (rev_comp)", "strand flip changed allele orientation"},
		{"some_other_tag", "some_other_tag"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeReason(tt.tag))
		})
	}
}

func TestDriver_AlleleSpanRecheck(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, inputHeader+"\n"+
		"A1\t1\t100\t101\tAT\tA\tGRCh37\n"+
		"A2\t1\t200\t200\tG\tC\tGRCh37\n"+
		"A3\t1\t300\t300\t-\tAGG\tGRCh37\n")

	// A1 comes back with a one-base interval around a two-base allele.
	runner := &fakeRunner{
		out: inputHeader + "\n" +
			"A1\t1\t150\t150\tAT\tA\tGRCh38\n" +
			"A2\t1\t250\t250\tG\tC\tGRCh38\n" +
			"A3\t1\t350\t350\t-\tAGG\tGRCh38\n",
	}
	d := newTestDriver(t, dir, runner)

	res, err := d.Lift(context.Background(), in, filepath.Join(dir, "out.maf"))
	require.NoError(t, err)

	assert.Len(t, res.Mapped.Records, 2)
	require.Len(t, res.Unmapped, 1)
	assert.Equal(t, "allele span changed by liftover", res.Unmapped[0].Reason)
	assert.Equal(t, "A1", res.Unmapped[0].Record.Fields[0])

	// The rerouted record carries its original pre-liftover row, not the
	// lifted coordinates.
	start, err := in.Start(res.Unmapped[0].Record)
	require.NoError(t, err)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, "GRCh37", in.Build(res.Unmapped[0].Record))

	// Insertions (placeholder reference allele) are never rerouted.
	assert.Equal(t, "A3", res.Mapped.Records[1].Fields[0])
}

func TestDriver_SynthesizesDroppedRecords(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, inputHeader+"\n"+
		"B1\t1\t100\t100\tA\tG\tGRCh37\n"+
		"B2\t2\t200\t200\tC\tT\tGRCh37\n")

	// The tool reports only B1; B2 vanishes without an .unmap entry.
	runner := &fakeRunner{
		out: inputHeader + "\n" +
			"B1\t1\t111\t111\tA\tG\tGRCh38\n",
	}
	d := newTestDriver(t, dir, runner)

	res, err := d.Lift(context.Background(), in, filepath.Join(dir, "out.maf"))
	require.NoError(t, err)

	assert.Len(t, res.Mapped.Records, 1)
	require.Len(t, res.Unmapped, 1)
	assert.Equal(t, "dropped by liftover tool", res.Unmapped[0].Reason)
	assert.Equal(t, "B2", res.Unmapped[0].Record.Fields[0])
	assert.Equal(t, len(in.Records), len(res.Mapped.Records)+len(res.Unmapped))
}

func TestDriver_ToolFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, inputHeader+"\nC1\t1\t100\t100\tA\tG\tGRCh37\n")

	runner := &fakeRunner{err: errors.New("exit status 1")}
	d := newTestDriver(t, dir, runner)

	_, err := d.Lift(context.Background(), in, filepath.Join(dir, "out.maf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CrossMap")
	assert.True(t, runner.called)
}

func TestDriver_MissingChainIsFatal(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, inputHeader+"\nC1\t1\t100\t100\tA\tG\tGRCh37\n")

	runner := &fakeRunner{}
	d := NewDriver("CrossMap", filepath.Join(dir, "missing.chain.gz"), "genome.fa", "GRCh38", "a")
	d.SetRunner(runner)

	_, err := d.Lift(context.Background(), in, filepath.Join(dir, "out.maf"))
	require.Error(t, err)
	assert.False(t, runner.called)
}

func TestDriver_CommandArguments(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, inputHeader+"\nD1\t1\t100\t100\tA\tG\tGRCh37\n")

	runner := &fakeRunner{
		out: inputHeader + "\nD1\t1\t110\t110\tA\tG\tGRCh38\n",
	}
	d := newTestDriver(t, dir, runner)

	outPath := filepath.Join(dir, "out.maf")
	_, err := d.Lift(context.Background(), in, outPath)
	require.NoError(t, err)

	require.Len(t, runner.args, 8)
	assert.Equal(t, "maf", runner.args[0])
	assert.Equal(t, "--chromid", runner.args[1])
	assert.Equal(t, "a", runner.args[2])
	assert.Equal(t, in.Path, runner.args[4])
	assert.Equal(t, "GRCh38", runner.args[6])
	assert.Equal(t, outPath, runner.args[7])
}
