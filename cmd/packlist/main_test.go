package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/packlist/internal/export"
	"github.com/a3tai/packlist/internal/pdf/pdftest"
)

const wantCSV = "pkg_bundle,Lot/Job Num,Qty Ship,UOM,Net Weight (LB),Net Weight (KG)\n" +
	"A1,J7,3.00,PC,10,5\n"

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func goodPDF() []byte {
	return pdftest.Build([]string{"PACKING LIST", "PKG.A1 LOT/J7 3.00 PC 10 LB/5 KG"})
}

func TestRun_ConvertsFilesAndDirectories(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "converted")
	single := writeFile(t, filepath.Join(in, "single.pdf"), goodPDF())
	writeFile(t, filepath.Join(in, "batch", "a.pdf"), goodPDF())
	writeFile(t, filepath.Join(in, "batch", "nested", "b.pdf"), goodPDF())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--out", out, "--jobs", "2", single, filepath.Join(in, "batch")}, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	for _, name := range []string{"single.csv", "a.csv", "b.csv"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Equal(t, wantCSV, string(data))
	}
	assert.Contains(t, stderr.String(), "converted 3 of 3 document(s), 0 without data, 0 failed")
}

func TestRun_FailuresDoNotStopBatch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	good := writeFile(t, filepath.Join(in, "good.pdf"), goodPDF())
	empty := writeFile(t, filepath.Join(in, "empty.pdf"), pdftest.Build([]string{"no shipment lines"}))
	broken := writeFile(t, filepath.Join(in, "broken.pdf"), []byte("not a pdf"))
	missing := filepath.Join(in, "missing.pdf")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--out", out, "--json", good, empty, broken, missing}, &stdout, &stderr)
	assert.Equal(t, exitFailed, code)

	var results []FileResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &results))
	require.Len(t, results, 4)

	assert.Empty(t, results[0].Error)
	assert.Equal(t, 1, results[0].Records)
	assert.Equal(t, filepath.Join(out, "good.csv"), results[0].Output)

	assert.True(t, results[1].NoData)
	assert.NotEmpty(t, results[2].Error)
	assert.Contains(t, results[3].Error, "does not exist")

	assert.Contains(t, stderr.String(), "converted 1 of 4 document(s), 1 without data, 2 failed")
	_, err := os.Stat(filepath.Join(out, "empty.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_XLSX(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	path := writeFile(t, filepath.Join(in, "load.pdf"), goodPDF())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-o", out, "-f", "xlsx", path}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "ok    "+path)

	f, err := excelize.OpenFile(filepath.Join(out, "load.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Packing List")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A1", "J7", "3.00", "PC", "10", "5"}, rows[1])
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no inputs", args: nil},
		{name: "bad format", args: []string{"--format", "pdf", "a.pdf"}},
		{name: "bad jobs", args: []string{"--jobs", "0", "a.pdf"}},
		{name: "unknown flag", args: []string{"--nope", "a.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitUsage, run(context.Background(), tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "USAGE:")
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--format")
}

func TestOutputNames(t *testing.T) {
	names := outputNames([]string{"a/x.pdf", "b/x.pdf", "c/y.PDF", "d/x.pdf"}, "out", export.FormatCSV)
	assert.Equal(t, []string{
		filepath.Join("out", "x.csv"),
		filepath.Join("out", "x_2.csv"),
		filepath.Join("out", "y.csv"),
		filepath.Join("out", "x_3.csv"),
	}, names)
}

func TestOutputNames_SkipsNamesAlreadyTaken(t *testing.T) {
	names := outputNames([]string{"a/list.pdf", "b/list.pdf", "c/list_2.pdf", "d/LIST.pdf"}, "out", export.FormatCSV)
	assert.Equal(t, []string{
		filepath.Join("out", "list.csv"),
		filepath.Join("out", "list_2.csv"),
		filepath.Join("out", "list_2_2.csv"),
		filepath.Join("out", "LIST_3.csv"),
	}, names)

	seen := make(map[string]bool)
	for _, n := range names {
		key := strings.ToLower(n)
		assert.False(t, seen[key], "duplicate output %s", n)
		seen[key] = true
	}
}
