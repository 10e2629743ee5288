package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KaramelBytes/rfm-cli/internal/analysis"
	"github.com/KaramelBytes/rfm-cli/internal/parser"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

const defaultUploadName = "upload.csv"

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// analyze accepts a multipart upload (field "file") or a raw CSV body and
// responds with the JSON report. Query parameters: as_of, buckets, sheet,
// and filename for raw bodies.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	asOf := analysis.WallClock(s.now())
	if v := q.Get("as_of"); v != "" {
		t, err := analysis.ParseAsOf(v)
		if err != nil {
			s.metrics.ObserveFailure("invalid_input")
			s.writeError(w, r, http.StatusBadRequest, "invalid_as_of", err.Error())
			return
		}
		asOf = t
	}
	opt := analysis.Options{AsOf: asOf, Buckets: s.config.Buckets, PreviewRows: s.config.PreviewRows}
	if v := q.Get("buckets"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.metrics.ObserveFailure("invalid_input")
			s.writeError(w, r, http.StatusBadRequest, "invalid_buckets", fmt.Sprintf("buckets must be a positive integer, got %q", v))
			return
		}
		opt.Buckets = n
	}
	popt := s.config.Parse
	if v := q.Get("sheet"); v != "" {
		popt.SheetName = v
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.ObserveFailure("too_large")
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "upload_too_large",
				fmt.Sprintf("upload exceeds %d bytes", s.config.MaxUploadBytes))
			return
		}
		s.metrics.ObserveFailure("invalid_input")
		s.writeError(w, r, http.StatusBadRequest, "read_failed", err.Error())
		return
	}
	name, data, err := uploadedFile(r, body)
	if err != nil {
		s.metrics.ObserveFailure("invalid_input")
		s.writeError(w, r, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	if name == "" {
		name = q.Get("filename")
	}
	if name == "" {
		name = defaultUploadName
	}

	txns, err := parser.LoadBytes(name, data, popt)
	if err != nil {
		s.metrics.ObserveFailure("invalid_input")
		s.writeError(w, r, http.StatusBadRequest, loadErrorCode(err), err.Error())
		return
	}
	if err := r.Context().Err(); err != nil {
		s.metrics.ObserveFailure("error")
		s.writeError(w, r, http.StatusServiceUnavailable, "timeout", "request deadline exceeded")
		return
	}
	rep, err := analysis.Score(txns, opt)
	if err != nil {
		s.metrics.ObserveFailure("error")
		s.writeError(w, r, http.StatusInternalServerError, "scoring_failed", err.Error())
		return
	}
	rep.Name = name
	s.metrics.ObserveReport(rep, time.Since(start))
	for _, warn := range rep.Warnings {
		s.log.Warn().Str("request_id", RequestID(r.Context())).Str("report_id", rep.ID).Msg(warn)
	}
	s.writeJSON(w, http.StatusOK, rep)
}

// uploadedFile extracts the "file" part of a multipart body, or returns the
// raw body as is.
func uploadedFile(r *http.Request, body []byte) (string, []byte, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return "", body, nil
	}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, errors.New(`multipart body has no "file" field`)
		}
		if err != nil {
			return "", nil, fmt.Errorf("read multipart: %w", err)
		}
		if part.FormName() != "file" {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return "", nil, fmt.Errorf("read file part: %w", err)
		}
		return filepath.Base(part.FileName()), data, nil
	}
}

func loadErrorCode(err error) string {
	switch {
	case errors.Is(err, parser.ErrMissingColumn):
		return "missing_column"
	case errors.Is(err, parser.ErrParse):
		return "parse_error"
	case errors.Is(err, parser.ErrUnsupported):
		return "unsupported_format"
	default:
		return "invalid_input"
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = "unknown"
	}
	s.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}
