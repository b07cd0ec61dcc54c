package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/packlist/internal/config"
	"github.com/a3tai/packlist/internal/convert"
	"github.com/a3tai/packlist/internal/descriptions"
	"github.com/a3tai/packlist/internal/export"
	"github.com/a3tai/packlist/internal/extract"
	"github.com/a3tai/packlist/internal/pdf"
	"github.com/a3tai/packlist/internal/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       *convert.Service
	paths     *security.PathValidator
	validator *pdf.Validator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance. File paths given to the
// tools are confined to cfg.PDFDirectory.
func NewServer(cfg *config.Config, svc *convert.Service, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("conversion service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		paths:     paths,
		validator: pdf.NewValidator(svc.MaxFileSize()),
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolExtract,
		mcp.WithDescription(descriptions.ExtractDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF, absolute or relative to the configured directory"),
		),
		mcp.WithBoolean("store",
			mcp.Description("Keep the CSV so it can be fetched later with packlist_get (default true)"),
		),
	), s.handleExtract)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolValidate,
		mcp.WithDescription(descriptions.ValidateDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF, absolute or relative to the configured directory"),
		),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolFind,
		mcp.WithDescription(descriptions.FindDescription),
		mcp.WithString("query",
			mcp.Description("Optional words that must all appear in the file name"),
		),
	), s.handleFind)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolList,
		mcp.WithDescription(descriptions.ListDescription),
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolGet,
		mcp.WithDescription(descriptions.GetDescription),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("File id returned by packlist_extract or packlist_list"),
		),
	), s.handleGet)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolDelete,
		mcp.WithDescription(descriptions.DeleteDescription),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("File id to delete"),
		),
	), s.handleDelete)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolInfo,
		mcp.WithDescription(descriptions.InfoDescription),
	), s.handleInfo)
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.paths.ResolvePath(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	store := true
	if v, ok := request.GetArguments()["store"].(bool); ok {
		store = v
	}

	if !store {
		rs, err := s.svc.ExtractFile(ctx, resolved)
		if err != nil {
			return mcp.NewToolResultError(toolError(err)), nil
		}
		data, err := export.CSV(rs)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text := fmt.Sprintf("Extracted %d record(s) from %s (%d page(s))\n\n", rs.Len(), resolved, rs.PagesScanned)
		return mcp.NewToolResultText(text + string(data)), nil
	}

	res, err := s.svc.ConvertFile(ctx, resolved)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}

	text := fmt.Sprintf("Extracted %d record(s) from %s (%d page(s))\n", res.Records, resolved, res.Pages)
	text += fmt.Sprintf("File ID: %s\n", res.ID)
	text += fmt.Sprintf("Filename: %s\n\n", res.Filename)
	text += string(res.CSV)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleValidate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.paths.ResolvePath(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.validator.ValidateFile(resolved)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.Valid {
		return mcp.NewToolResultText(fmt.Sprintf("PDF file %s is valid and readable (%d page(s))", result.Path, result.Pages)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)), nil
}

func (s *Server) handleFind(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, _ := request.GetArguments()["query"].(string)

	files, err := pdf.FindPDFs(s.paths.Directory(), query, s.svc.MaxFileSize())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(files) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", s.paths.Directory())
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}

	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n\n", len(files), s.paths.Directory())
	for i, f := range files {
		text += fmt.Sprintf("%d. %s (%d bytes, modified %s)\n", i+1, f.Path, f.Size, f.ModifiedTime.Format("2006-01-02 15:04:05"))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(entries) == 0 {
		return mcp.NewToolResultText("No stored files"), nil
	}

	text := fmt.Sprintf("%d stored file(s):\n", len(entries))
	for _, e := range entries {
		text += fmt.Sprintf("%s  %s\n", e.ID, e.Filename)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, filename, err := s.svc.Render(ctx, id, export.FormatCSV)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", filename, data)), nil
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	removed, err := s.svc.Delete(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	if !removed {
		return mcp.NewToolResultError(fmt.Sprintf("file %s not found", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", id)), nil
}

func (s *Server) handleInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("%s v%s\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Directory: %s\n", s.paths.Directory())
	text += fmt.Sprintf("Store: %s\n", s.config.Store)
	text += fmt.Sprintf("Max File Size: %d MB\n", s.svc.MaxFileSize()/(1024*1024))

	text += "\nAvailable Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		if i := strings.IndexByte(desc, '\n'); i > 0 {
			desc = desc[:i]
		}
		text += fmt.Sprintf("• %s: %s\n", name, desc)
	}
	return mcp.NewToolResultText(text), nil
}

// toolError renders pipeline errors the way a tool caller should see them
func toolError(err error) string {
	switch {
	case errors.Is(err, extract.ErrNoData):
		return "No valid data extracted"
	case errors.Is(err, convert.ErrUnsupportedType):
		return "PDF files only"
	default:
		return err.Error()
	}
}

// Run serves MCP over the process's standard input and output until ctx
// is done or stdin is closed.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.Debug("starting MCP server on stdio", "directory", s.paths.Directory())

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
