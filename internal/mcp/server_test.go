package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/packlist/internal/config"
	"github.com/a3tai/packlist/internal/convert"
	"github.com/a3tai/packlist/internal/pdf/pdftest"
	"github.com/a3tai/packlist/internal/registry"
)

const wantCSV = "pkg_bundle,Lot/Job Num,Qty Ship,UOM,Net Weight (LB),Net Weight (KG)\n" +
	"A1,J7,3.00,PC,10,5\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeStdio
	cfg.PDFDirectory = dir
	cfg.MaxFileSize = 1024 * 1024

	svc, err := convert.NewService(registry.NewMemoryStore(), cfg.MaxFileSize, convert.WithLogger(logger))
	require.NoError(t, err)

	s, err := NewServer(cfg, svc, logger)
	require.NoError(t, err)
	return s, dir
}

func writePDF(t *testing.T, dir, name string, pages ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pdftest.Build(pages...), 0o644))
	return path
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func TestNewServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := convert.NewService(registry.NewMemoryStore(), 1024)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()

	tests := []struct {
		name    string
		cfg     *config.Config
		svc     *convert.Service
		wantErr bool
	}{
		{name: "valid", cfg: cfg, svc: svc},
		{name: "nil config", cfg: nil, svc: svc, wantErr: true},
		{name: "nil service", cfg: cfg, svc: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServer(tt.cfg, tt.svc, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s.mcpServer)
			assert.Equal(t, tt.cfg.PDFDirectory, s.paths.Directory())
		})
	}
}

func TestServer_HandleExtract(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	writePDF(t, dir, "load.pdf", []string{"PACKING LIST", "PKG.A1 LOT/J7 3.00 PC 10 LB/5 KG"})
	writePDF(t, dir, "blank.pdf", []string{"Nothing here"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	t.Run("stored", func(t *testing.T) {
		result, err := s.handleExtract(ctx, callTool(map[string]interface{}{"path": "load.pdf"}))
		require.NoError(t, err)
		require.False(t, result.IsError, extractTextFromResult(result))

		text := extractTextFromResult(result)
		assert.Contains(t, text, "Extracted 1 record(s)")
		assert.Contains(t, text, "File ID: ")
		assert.True(t, strings.HasSuffix(text, wantCSV))

		list, err := s.handleList(ctx, callTool(nil))
		require.NoError(t, err)
		assert.Contains(t, extractTextFromResult(list), "_load.csv")
	})

	t.Run("not stored", func(t *testing.T) {
		result, err := s.handleExtract(ctx, callTool(map[string]interface{}{
			"path":  filepath.Join(dir, "load.pdf"),
			"store": false,
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.NotContains(t, extractTextFromResult(result), "File ID")
		assert.True(t, strings.HasSuffix(extractTextFromResult(result), wantCSV))
	})

	errorCases := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing path", args: map[string]interface{}{}, want: "path"},
		{name: "outside directory", args: map[string]interface{}{"path": "/etc/passwd"}, want: "outside"},
		{name: "traversal", args: map[string]interface{}{"path": "../secret.pdf"}, want: "outside"},
		{name: "no data", args: map[string]interface{}{"path": "blank.pdf"}, want: "No valid data extracted"},
		{name: "not a pdf", args: map[string]interface{}{"path": "notes.txt"}, want: "PDF files only"},
		{name: "missing file", args: map[string]interface{}{"path": "nope.pdf"}, want: "does not exist"},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleExtract(ctx, callTool(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.want)
		})
	}
}

func TestServer_HandleValidate(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	writePDF(t, dir, "ok.pdf", []string{"hello"}, []string{"world"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.pdf"), []byte("not a pdf"), 0o644))

	result, err := s.handleValidate(ctx, callTool(map[string]interface{}{"path": "ok.pdf"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "is valid and readable (2 page(s))")

	result, err = s.handleValidate(ctx, callTool(map[string]interface{}{"path": "bad.pdf"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "PDF validation failed")

	result, err = s.handleValidate(ctx, callTool(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_HandleFind(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleFind(ctx, callTool(nil))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "No PDF files found")

	writePDF(t, dir, "alcoa_march.pdf", []string{"x"})
	writePDF(t, dir, "other.pdf", []string{"x"})

	result, err = s.handleFind(ctx, callTool(map[string]interface{}{"query": "alcoa"}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Found 1 PDF file(s)")
	assert.Contains(t, text, "alcoa_march.pdf")
	assert.NotContains(t, text, "other.pdf")
}

func TestServer_GetAndDelete(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()
	path := writePDF(t, dir, "load.pdf", []string{"PKG.A1 LOT/J7 3.00 PC 10 LB/5 KG"})

	res, err := s.svc.ConvertFile(ctx, path)
	require.NoError(t, err)

	result, err := s.handleGet(ctx, callTool(map[string]interface{}{"id": res.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, res.Filename+"\n\n"+wantCSV, extractTextFromResult(result))

	result, err = s.handleDelete(ctx, callTool(map[string]interface{}{"id": res.ID}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = s.handleDelete(ctx, callTool(map[string]interface{}{"id": res.ID}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleGet(ctx, callTool(map[string]interface{}{"id": res.ID}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "not found")

	result, err = s.handleList(ctx, callTool(nil))
	require.NoError(t, err)
	assert.Equal(t, "No stored files", extractTextFromResult(result))
}

func TestServer_HandleInfo(t *testing.T) {
	s, dir := newTestServer(t)

	result, err := s.handleInfo(context.Background(), callTool(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)

	assert.Contains(t, text, "packlist v1.0.0")
	assert.Contains(t, text, "Directory: "+dir)
	assert.Contains(t, text, "Max File Size: 1 MB")
	for _, tool := range []string{"packlist_extract", "packlist_get", "packlist_info"} {
		assert.Contains(t, text, "• "+tool+": ")
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"get":    s.handleGet,
		"delete": s.handleDelete,
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := h(ctx, callTool(map[string]interface{}{"id": 42}))
			require.NoError(t, err)
			assert.True(t, result.IsError)

			result, err = h(ctx, callTool(map[string]interface{}{"id": "../../etc"}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Serve(ctx, strings.NewReader(""), io.Discard), context.Canceled)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel = context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, pr, io.Discard) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
