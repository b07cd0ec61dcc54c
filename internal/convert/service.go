// Package convert runs uploaded packing lists through validation,
// extraction, serialization and storage. Every front-end calls it the same
// way.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a3tai/packlist/internal/export"
	"github.com/a3tai/packlist/internal/extract"
	"github.com/a3tai/packlist/internal/pdf"
	"github.com/a3tai/packlist/internal/registry"
)

// ErrUnsupportedType is returned for uploads whose name is not a .pdf
var ErrUnsupportedType = errors.New("PDF files only")

// Upload is one document handed to the service
type Upload struct {
	Name string
	Data []byte
}

// Result describes a stored conversion
type Result struct {
	ID         string `json:"file_id"`
	Filename   string `json:"filename"`
	Records    int    `json:"records"`
	Pages      int    `json:"pages"`
	EmptyPages int    `json:"empty_pages"`
	CSV        []byte `json:"-"`
}

// Service orchestrates the conversion pipeline
type Service struct {
	validator  *pdf.Validator
	store      registry.Store
	logger     *slog.Logger
	keepSource bool
	renders    *lruCache[[]byte]
	now        func() time.Time
}

// DefaultRenderCacheSize is the number of rendered workbooks kept in memory
const DefaultRenderCacheSize = 32

// Option customizes a Service
type Option func(*Service)

// WithLogger sets the logger; nil keeps slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeepSource stores the original PDF next to its CSV
func WithKeepSource(keep bool) Option {
	return func(s *Service) { s.keepSource = keep }
}

// WithRenderCache sets how many rendered workbooks are cached
func WithRenderCache(size int) Option {
	return func(s *Service) { s.renders = newLRUCache[[]byte](size) }
}

// NewService creates a service. store may be nil for callers that only use
// Extract.
func NewService(store registry.Store, maxFileSize int64, opts ...Option) (*Service, error) {
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("maxFileSize must be greater than 0")
	}

	s := &Service{
		validator: pdf.NewValidator(maxFileSize),
		store:     store,
		logger:    slog.Default(),
		renders:   newLRUCache[[]byte](DefaultRenderCacheSize),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Extract validates the upload and returns its shipment records without
// storing anything.
func (s *Service) Extract(ctx context.Context, up Upload) (*extract.RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(up.Name), ".pdf") {
		return nil, ErrUnsupportedType
	}

	if _, err := s.validator.ValidateBytes(up.Data); err != nil {
		return nil, err
	}

	doc, err := pdf.Open(bytes.NewReader(up.Data), int64(len(up.Data)))
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	rs, err := extract.Extract(doc)
	if errors.Is(err, extract.ErrNoData) {
		s.logger.Warn("no valid data found", "file", filepath.Base(up.Name), "pages", doc.NumPages())
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return rs, nil
}

// Convert extracts, serializes and stores the upload under a new id
func (s *Service) Convert(ctx context.Context, up Upload) (*Result, error) {
	if s.store == nil {
		return nil, errors.New("convert: no registry configured")
	}

	start := s.now()
	rs, err := s.Extract(ctx, up)
	if err != nil {
		return nil, err
	}

	data, err := export.CSV(rs)
	if err != nil {
		return nil, fmt.Errorf("serialize csv: %w", err)
	}

	id := registry.NewID()
	a := &registry.Artifact{
		ID:         id,
		Filename:   registry.Filename(id, up.Name),
		SourceName: filepath.Base(up.Name),
		CSV:        data,
		Records:    rs.Len(),
		CreatedAt:  s.now(),
	}
	if s.keepSource {
		a.Source = up.Data
	}

	if err := s.store.Put(ctx, a); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	s.logger.Info("csv saved",
		"file_id", id,
		"filename", a.Filename,
		"records", rs.Len(),
		"pages", rs.PagesScanned,
		"duration", s.now().Sub(start))

	return &Result{
		ID:         id,
		Filename:   a.Filename,
		Records:    rs.Len(),
		Pages:      rs.PagesScanned,
		EmptyPages: rs.EmptyPages,
		CSV:        data,
	}, nil
}

// ConvertFile reads a PDF from disk and converts it
func (s *Service) ConvertFile(ctx context.Context, path string) (*Result, error) {
	up, err := ReadUpload(path, s.validator.MaxFileSize())
	if err != nil {
		return nil, err
	}
	return s.Convert(ctx, up)
}

// ExtractFile reads a PDF from disk and extracts it
func (s *Service) ExtractFile(ctx context.Context, path string) (*extract.RecordSet, error) {
	up, err := ReadUpload(path, s.validator.MaxFileSize())
	if err != nil {
		return nil, err
	}
	return s.Extract(ctx, up)
}

// Render returns a stored artifact in the requested format and the file
// name to serve it under.
func (s *Service) Render(ctx context.Context, id string, format export.Format) ([]byte, string, error) {
	if s.store == nil {
		return nil, "", errors.New("convert: no registry configured")
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case export.FormatCSV:
		return a.CSV, a.Filename, nil
	case export.FormatXLSX:
		if data, ok := s.renders.Get(a.ID); ok {
			return data, format.Filename(a.Filename), nil
		}
		rs, err := export.ReadCSV(bytes.NewReader(a.CSV))
		if err != nil {
			return nil, "", fmt.Errorf("stored csv %s: %w", a.Filename, err)
		}
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, rs); err != nil {
			return nil, "", err
		}
		s.renders.Put(a.ID, buf.Bytes())
		return buf.Bytes(), format.Filename(a.Filename), nil
	default:
		return nil, "", fmt.Errorf("unsupported format: %q", format)
	}
}

// List returns the stored artifacts, newest first
func (s *Service) List(ctx context.Context) ([]registry.Entry, error) {
	if s.store == nil {
		return nil, errors.New("convert: no registry configured")
	}
	return s.store.List(ctx)
}

// Delete removes a stored artifact
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if s.store == nil {
		return false, errors.New("convert: no registry configured")
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.renders.Remove(id)
	if removed {
		s.logger.Info("artifact deleted", "file_id", id)
	}
	return removed, nil
}

// CacheStats reports the workbook render cache
func (s *Service) CacheStats() CacheStats {
	return s.renders.Stats()
}

// MaxFileSize returns the upload size limit in bytes
func (s *Service) MaxFileSize() int64 {
	return s.validator.MaxFileSize()
}

// ReadUpload loads a file from disk as an Upload, checking the size limit
// before reading.
func ReadUpload(path string, maxFileSize int64) (Upload, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Upload{}, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return Upload{}, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if info.Size() > maxFileSize {
		return Upload{}, fmt.Errorf("%w: %d bytes (max: %d bytes)", pdf.ErrTooLarge, info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}
