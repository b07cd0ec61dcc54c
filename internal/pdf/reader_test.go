package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/packlist/internal/extract"
	"github.com/a3tai/packlist/internal/pdf/pdftest"
)

func TestOpen_PageText(t *testing.T) {
	data := pdftest.Build(
		[]string{"PACKING LIST", "PKG.A1 LOT/J7 3.00 PC 10 LB/5 KG"},
		nil,
		[]string{"PKG.B2 LOT/J8 4.50 PC 20 LB/9 KG"},
	)

	doc, err := Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 3, doc.NumPages())

	text, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Equal(t, "PACKING LIST\nPKG.A1 LOT/J7 3.00 PC 10 LB/5 KG", text)

	text, err = doc.PageText(2)
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = doc.PageText(4)
	assert.Error(t, err)
}

func TestOpenFile_FeedsExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packing.pdf")
	data := pdftest.Build(
		[]string{"P.1 L/10 1.00 PC 1 LB/1 KG", "noise"},
		[]string{"P.2 L/20 2.00 PC 2 LB/1 KG", "P.3 L/30 3.00 PC 3 LB/1 KG"},
	)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	doc, err := OpenFile(path)
	require.NoError(t, err)
	defer doc.Close()

	rs, err := extract.Extract(doc)
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())
	assert.Equal(t, "3", rs.Records[2].PackageBundle)
}

func TestOpen_Malformed(t *testing.T) {
	data := []byte("this is not a pdf at all")

	_, err := Open(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file does not exist")
}

func TestJoinRuns(t *testing.T) {
	tests := []struct {
		name string
		runs lpdf.TextHorizontal
		want string
	}{
		{
			name: "word runs get separators",
			runs: lpdf.TextHorizontal{{S: "PKG.A1"}, {S: "LOT/J7"}, {S: "3.00"}},
			want: "PKG.A1 LOT/J7 3.00",
		},
		{
			name: "existing whitespace kept",
			runs: lpdf.TextHorizontal{{S: "10 "}, {S: "LB/5"}, {S: " KG"}},
			want: "10 LB/5 KG",
		},
		{
			name: "glyph runs concatenated",
			runs: lpdf.TextHorizontal{{S: "P"}, {S: "C"}, {S: " "}, {S: "1"}},
			want: "PC 1",
		},
		{
			name: "empty row",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinRuns(tt.runs))
		})
	}
}

func TestOpen_KernedRows(t *testing.T) {
	data := pdftest.BuildTJ(
		[]string{
			"(PKG.A) 30 (1) -400 (LOT/J7) -400 (3.00) -400 (PC) -400 (10) -400 (LB/5) -400 (KG)",
			glyphRow("PKG.B2", "LOT/J8", "12.50", "PC", "100", "LB/45", "KG"),
		},
	)

	doc, err := Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer doc.Close()

	text, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Equal(t, "PKG.A1 LOT/J7 3.00 PC 10 LB/5 KG\nPKG.B2 LOT/J8 12.50 PC 100 LB/45 KG", text)

	rs, err := extract.Extract(doc)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "A1", rs.Records[0].PackageBundle)
	assert.Equal(t, "B2", rs.Records[1].PackageBundle)
	assert.Equal(t, 45, rs.Records[1].NetWeightKg)
}

// glyphRow draws every glyph with its own TJ string and separates words
// with a kerning gap.
func glyphRow(words ...string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		glyphs := make([]string, 0, len(w))
		for _, r := range w {
			glyphs = append(glyphs, "("+string(r)+")")
		}
		parts = append(parts, strings.Join(glyphs, " "))
	}
	return strings.Join(parts, " -400 ")
}

func glyph(s string, x, w float64) lpdf.Text {
	return lpdf.Text{S: s, X: x, Y: 700, W: w, FontSize: 10}
}

func TestJoinGlyphs(t *testing.T) {
	tests := []struct {
		name string
		row  lpdf.TextHorizontal
		want string
	}{
		{
			name: "touching glyphs form one word",
			row:  lpdf.TextHorizontal{glyph("A", 50, 6.67), glyph("1", 56.67, 5.56)},
			want: "A1",
		},
		{
			name: "tight kerning stays inside the word",
			row:  lpdf.TextHorizontal{glyph("A", 50, 6.67), glyph("1", 56.37, 5.56)},
			want: "A1",
		},
		{
			name: "gap wider than a fifth of the font size splits words",
			row:  lpdf.TextHorizontal{glyph("A", 50, 6.67), glyph("1", 60.67, 5.56)},
			want: "A 1",
		},
		{
			name: "gap below the threshold joins",
			row:  lpdf.TextHorizontal{glyph("A", 50, 6.67), glyph("1", 58.5, 5.56)},
			want: "A1",
		},
		{
			name: "drawn space is not doubled",
			row:  lpdf.TextHorizontal{glyph("A", 50, 6.67), glyph(" ", 56.67, 2.78), glyph("1", 70, 5.56)},
			want: "A 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinGlyphs(tt.row))
		})
	}
}

func TestGroupRows(t *testing.T) {
	glyphs := []lpdf.Text{
		{S: "B", X: 60, Y: 686, W: 6, FontSize: 10},
		{S: "2", X: 50, Y: 700, W: 5, FontSize: 10},
		{S: "1", X: 50, Y: 686.5, W: 5, FontSize: 10},
		{S: "A", X: 44, Y: 701, W: 6, FontSize: 10},
	}

	rows := groupRows(glyphs)
	require.Len(t, rows, 2)
	assert.Equal(t, "A2", joinGlyphs(rows[0]))
	assert.Equal(t, "1 B", joinGlyphs(rows[1]))
}

func TestHasMetrics(t *testing.T) {
	assert.True(t, hasMetrics([]lpdf.Text{{S: "A", W: 6}, {S: " "}}))
	assert.False(t, hasMetrics([]lpdf.Text{{S: "A", W: 6}, {S: "B"}}))
	assert.Len(t, visibleGlyphs([]lpdf.Text{{S: "A"}, {S: "\n"}, {S: ""}, {S: " "}}), 2)
}
