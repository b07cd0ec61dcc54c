// Package web serves the packing-list converter over HTTP: an upload page,
// a list of extracted files and a small JSON API.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/packlist/internal/convert"
)

//go:embed templates/*.html
var templateFS embed.FS

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// Server holds the HTTP handlers
type Server struct {
	svc    *convert.Service
	logger *slog.Logger
	pages  *template.Template
	title  string
}

// Option customizes a Server
type Option func(*Server)

// WithLogger sets the request and error logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTitle sets the page title shown by the HTML pages
func WithTitle(title string) Option {
	return func(s *Server) {
		if title != "" {
			s.title = title
		}
	}
}

// NewServer creates the HTTP front-end for svc
func NewServer(svc *convert.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: slog.Default(),
		pages:  template.Must(template.ParseFS(templateFS, "templates/*.html")),
		title:  "Packing List Converter",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the complete handler with middleware applied
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the routes on r
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/", s.handleUploadPage)
	r.Get("/alcoa", s.handleUploadPage)
	r.Get("/extracted", s.handleExtractedPage)
	r.Get("/healthz", s.handleHealth)

	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/upload/alcoa", s.handleUpload)
	r.Get("/api/list-files", s.handleList)
	r.Delete("/api/delete/{id}", s.handleDelete)

	r.Get("/download/{id}", s.handleDownload)
}

// NewHTTPServer wraps handler in an http.Server with the timeouts used in
// production.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// requestLogger logs one line per request through slog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
