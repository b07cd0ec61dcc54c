package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/a3tai/packlist/internal/convert"
	"github.com/a3tai/packlist/internal/extract"
	"github.com/a3tai/packlist/internal/pdf"
	"github.com/a3tai/packlist/internal/registry"
)

// Messages returned to the browser
const (
	msgNoFile   = "No file provided"
	msgPDFOnly  = "PDF files only"
	msgNoData   = "No valid data extracted"
	msgNotFound = "Not found"
	msgTooLarge = "File too large"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Success: false, Error: msg})
}

// statusFor maps a pipeline error to the status code and message shown to
// the client.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	var invariant *extract.InvariantError

	switch {
	case errors.Is(err, convert.ErrUnsupportedType):
		return http.StatusBadRequest, msgPDFOnly
	case errors.Is(err, pdf.ErrEmpty):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, pdf.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, extract.ErrNoData):
		return http.StatusUnprocessableEntity, msgNoData
	case errors.Is(err, pdf.ErrMalformedDocument):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &invariant):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, registry.ErrInvalidID):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
