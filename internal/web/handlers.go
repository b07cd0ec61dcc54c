package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/a3tai/packlist/internal/convert"
	"github.com/a3tai/packlist/internal/export"
	"github.com/a3tai/packlist/internal/registry"
)

type pageData struct {
	Title       string
	UploadURL   string
	MaxFileSize int64
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	CSV      string `json:"csv"` // download URL
	Preview  string `json:"preview"`
	Records  int    `json:"records"`
}

type listResponse struct {
	Files []registry.Entry `json:"files"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	uploadURL := "/api/upload"
	if r.URL.Path == "/alcoa" {
		uploadURL = "/api/upload/alcoa"
	}
	s.render(w, "index.html", pageData{
		Title:       s.title,
		UploadURL:   uploadURL,
		MaxFileSize: s.svc.MaxFileSize(),
	})
}

func (s *Server) handleExtractedPage(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "extracted.html", pageData{Title: s.title})
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page", "page", name, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// handleUpload converts the multipart "file" field.
// POST /api/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.svc.MaxFileSize()+multipartOverhead)

	up, err := readUpload(r, s.svc.MaxFileSize())
	if err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, errNoFilename):
			writeError(w, http.StatusBadRequest, msgNoFile)
		case errors.As(err, &maxBytes):
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	res, err := s.svc.Convert(r.Context(), up)
	if err != nil {
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("conversion failed", "file", up.Name, "error", err)
		}
		writeError(w, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		FileID:   res.ID,
		Filename: res.Filename,
		CSV:      "/download/" + res.ID,
		Preview:  string(res.CSV),
		Records:  res.Records,
	})
}

var errNoFilename = errors.New("empty file name")

// readUpload pulls the "file" part out of a multipart request
func readUpload(r *http.Request, maxFileSize int64) (convert.Upload, error) {
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return convert.Upload{}, http.ErrMissingFile
		}
		return convert.Upload{}, err
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return convert.Upload{}, err
	}
	defer f.Close()

	if hdr.Filename == "" {
		return convert.Upload{}, errNoFilename
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return convert.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return convert.Upload{Name: hdr.Filename, Data: data}, nil
}

// handleList returns every stored file, newest first.
// GET /api/list-files
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.List(r.Context())
	if err != nil {
		s.logger.Error("list files", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []registry.Entry{}
	}
	writeJSON(w, http.StatusOK, listResponse{Files: entries})
}

// handleDelete removes a stored file.
// DELETE /api/delete/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		code, msg := statusFor(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: removed})
}

// handleDownload serves a stored file as an attachment.
// GET /download/{id}?format=csv|xlsx
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, filename, err := s.svc.Render(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		code, msg := statusFor(err)
		if errors.Is(err, registry.ErrInvalidID) {
			code, msg = http.StatusNotFound, msgNotFound
		}
		if code >= http.StatusInternalServerError {
			s.logger.Error("download failed", "error", err)
		}
		writeError(w, code, msg)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
