package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/maflift/internal/maf"
)

func normalizedFixture(t *testing.T) []maf.NormalizedRecord {
	t.Helper()
	in := "Hugo_Symbol\tChromosome\tStart_Position\tEnd_Position\tReference_Allele\tTumor_Seq_Allele2\tNCBI_Build\tStudy\n" +
		"KRAS\t12\t25245350\t25245350\tC\tA\tGRCh38\tTCGA, pan-cancer\n" +
		"TP53\t17\t7674220\t7674221\tCG\tC\tGRCh38\tsay \"hello\"\n"

	f, err := maf.ReadFrom(strings.NewReader(in), "in.maf")
	require.NoError(t, err)
	return maf.NewNormalizer(0.9).NormalizeFile(f)
}

func TestTabWriter_HeaderAndRows(t *testing.T) {
	recs := normalizedFixture(t)

	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	require.NoError(t, w.WriteHeader())
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(maf.Schema, "\t"), lines[0])
	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, "\t"), len(maf.Schema))
	}
}

func TestTabWriter_RejectsEmbeddedDelimiters(t *testing.T) {
	rec := make(maf.NormalizedRecord, len(maf.Schema))
	for i := range rec {
		rec[i] = maf.Placeholder
	}
	rec[0] = "bad\tfield"

	w := NewTabWriter(&bytes.Buffer{})
	err := w.Write(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hugo_Symbol")

	rec[0] = "bad\nfield"
	assert.Error(t, w.Write(rec))
}

func TestCSVWriter_QuotesSpecialFields(t *testing.T) {
	recs := normalizedFixture(t)

	var buf bytes.Buffer
	w := NewCSVWriter(&buf)
	require.NoError(t, w.WriteHeader())
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, `"TCGA, pan-cancer"`)
	assert.Contains(t, out, `"say ""hello"""`)
}

// Parsing either output and re-normalizing must reproduce the same
// record sequence.
func TestDualFormat_RoundTrip(t *testing.T) {
	recs := normalizedFixture(t)

	var tabBuf, csvBuf bytes.Buffer

	tw := NewTabWriter(&tabBuf)
	require.NoError(t, tw.WriteHeader())
	for _, r := range recs {
		require.NoError(t, tw.Write(r))
	}
	require.NoError(t, tw.Flush())

	cw := NewCSVWriter(&csvBuf)
	require.NoError(t, cw.WriteHeader())
	for _, r := range recs {
		require.NoError(t, cw.Write(r))
	}
	require.NoError(t, cw.Flush())

	// Re-parse the tab output with the MAF parser and re-normalize.
	tabFile, err := maf.ReadFrom(bytes.NewReader(tabBuf.Bytes()), "round.txt")
	require.NoError(t, err)
	fromTab := maf.NewNormalizer(1).NormalizeFile(tabFile)

	// Re-parse the CSV output with a compliant reader.
	rows, err := csv.NewReader(bytes.NewReader(csvBuf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, maf.Schema, rows[0])

	fromCSV := make([]maf.NormalizedRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fromCSV = append(fromCSV, maf.NormalizedRecord(row))
	}

	require.Equal(t, len(recs), len(fromTab))
	require.Equal(t, len(recs), len(fromCSV))
	for i := range recs {
		assert.Equal(t, recs[i], fromTab[i], "tab row %d", i)
		assert.Equal(t, recs[i], fromCSV[i], "csv row %d", i)
	}
}

func TestUnmappedWriter(t *testing.T) {
	header := []string{"Hugo_Symbol", "Chromosome", "Start_Position"}

	var buf bytes.Buffer
	w := NewUnmappedWriter(&buf, header)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write([]string{"GENE3", "9", "1000"}, "unmapped by liftover tool"))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Hugo_Symbol\tChromosome\tStart_Position\tUnmap_Reason", lines[0])
	assert.Equal(t, "GENE3\t9\t1000\tunmapped by liftover tool", lines[1])
}
