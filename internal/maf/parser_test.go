package maf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMAF = `#version 2.4
Hugo_Symbol	Chromosome	Start_Position	End_Position	Reference_Allele	Tumor_Seq_Allele2	Tumor_Sample_Barcode	NCBI_Build
TP53	17	7577120	7577120	C	T	SAMPLE-01	GRCh37
KRAS	12	25398285	25398285	G	T	SAMPLE-01	GRCh37
BRAF	7	140453136	140453136	A	T	SAMPLE-02	GRCh37
`

func TestParser_ParseRecords(t *testing.T) {
	f, err := ReadFrom(strings.NewReader(sampleMAF), "sample.maf")
	require.NoError(t, err)

	require.Len(t, f.Records, 3)
	assert.Equal(t, 1, f.Columns.Chromosome)
	assert.Equal(t, 2, f.Columns.StartPosition)
	assert.Equal(t, 4, f.Columns.ReferenceAllele)
	assert.Equal(t, 5, f.Columns.TumorSeqAllele2)

	r := f.Records[0]
	assert.Equal(t, "17", f.Chromosome(r))
	start, err := f.Start(r)
	require.NoError(t, err)
	assert.Equal(t, int64(7577120), start)
	assert.Equal(t, "C", f.RefAllele(r))
	assert.Equal(t, "T", f.TumorAllele2(r))
	assert.Equal(t, "GRCh37", f.Build(r))

	// Row numbers reflect the source file, including the comment line.
	assert.Equal(t, 3, f.Records[0].Row)
	assert.Equal(t, 5, f.Records[2].Row)
}

func TestParser_SkipsCommentsAndBlankLines(t *testing.T) {
	in := "#comment\n\nChromosome\tStart_Position\tReference_Allele\tTumor_Seq_Allele2\n" +
		"1\t100\tA\tG\n\n#trailing comment\n2\t200\tC\tT\n"

	f, err := ReadFrom(strings.NewReader(in), "in.maf")
	require.NoError(t, err)
	require.Len(t, f.Records, 2)
	assert.Equal(t, "1", f.Chromosome(f.Records[0]))
	assert.Equal(t, "2", f.Chromosome(f.Records[1]))
}

func TestParser_MissingRequiredColumn(t *testing.T) {
	in := "Chromosome\tStart_Position\tReference_Allele\n1\t100\tA\n"

	_, err := ReadFrom(strings.NewReader(in), "in.maf")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "Tumor_Seq_Allele2")
}

func TestParser_NoHeader(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("#only a comment\n"), "in.maf")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "no header")
}

func TestParser_ShortRowsPadded(t *testing.T) {
	in := "Chromosome\tStart_Position\tReference_Allele\tTumor_Seq_Allele2\tNCBI_Build\n" +
		"1\t100\tA\tG\n"

	f, err := ReadFrom(strings.NewReader(in), "in.maf")
	require.NoError(t, err)
	require.Len(t, f.Records, 1)
	assert.Len(t, f.Records[0].Fields, 5)
	assert.Equal(t, "", f.Build(f.Records[0]))
}

func TestParser_NoTrailingNewline(t *testing.T) {
	in := "Chromosome\tStart_Position\tReference_Allele\tTumor_Seq_Allele2\n1\t100\tA\tG"

	f, err := ReadFrom(strings.NewReader(in), "in.maf")
	require.NoError(t, err)
	require.Len(t, f.Records, 1)
}

func TestParseError(t *testing.T) {
	err := &ParseError{Line: 42, Message: "required column not found"}
	assert.Equal(t, "maf parse error at line 42: required column not found", err.Error())

	err = &ParseError{File: "a.maf", Line: 1, Message: "no header line found"}
	assert.Equal(t, "maf parse error in a.maf at line 1: no header line found", err.Error())
}

func TestFile_GetUnknownColumn(t *testing.T) {
	f, err := ReadFrom(strings.NewReader(sampleMAF), "sample.maf")
	require.NoError(t, err)

	assert.Equal(t, "", f.Get(f.Records[0], "No_Such_Column"))
	assert.Equal(t, -1, f.Index("No_Such_Column"))
}
