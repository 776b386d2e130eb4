package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/juridoc/juridoc/document"
	"github.com/juridoc/juridoc/ops"
	"github.com/juridoc/juridoc/services/extract_service"
	"github.com/juridoc/juridoc/session"
)

type UploadResponse struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
	Clauses  string `json:"clauses"`
	Warning  string `json:"warning,omitempty"`
}

// UploadHandler accepts a multipart document upload, extracts its text,
// and returns the summary plus highlighted clauses.
type UploadHandler struct {
	logger    *slog.Logger
	extractor *extract_service.DocumentExtractor
	ops       *ops.Service
	sessions  *session.Store
	dataDir   string
	maxBytes  int64
}

func NewUploadHandler(logger *slog.Logger, extractor *extract_service.DocumentExtractor, opsService *ops.Service, sessions *session.Store, dataDir string, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		logger:    logger,
		extractor: extractor,
		ops:       opsService,
		sessions:  sessions,
		dataDir:   dataDir,
		maxBytes:  maxBytes,
	}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received file upload request")

	sess := bindSession(w, r, h.sessions)

	// Oversized uploads are rejected before extraction, no partial
	// processing. The slack covers multipart framing overhead.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, fmt.Sprintf("File exceeds the %d byte upload limit", h.maxBytes), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeJSONError(w, fmt.Sprintf("File exceeds the %d byte upload limit", h.maxBytes), http.StatusRequestEntityTooLarge)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Starting text extraction",
		slog.String("filename", header.Filename),
		slog.String("content_type", header.Header.Get("Content-Type")),
		slog.Int64("size", header.Size))

	extractStart := time.Now()
	doc, err := h.extractor.ExtractBytes(r.Context(), header.Filename, buf.Bytes())
	if err != nil {
		h.logger.Error("Text extraction failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writePipelineError(w, err)
		return
	}

	h.logger.Debug("Text extraction finished",
		slog.String("filename", header.Filename),
		slog.Float64("extraction_seconds", time.Since(extractStart).Seconds()))

	// Keep the raw file so /ask can operate on the latest upload.
	savedPath, err := h.saveUpload(header.Filename, buf.Bytes())
	if err != nil {
		h.logger.Error("Failed to save uploaded file",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to store uploaded file", http.StatusInternalServerError)
		return
	}
	sess.SetLastFile(savedPath)

	docs := document.Set{doc}
	response := UploadResponse{Filename: header.Filename}

	summary, err := h.ops.Summarize(r.Context(), docs)
	switch {
	case errors.Is(err, ops.ErrEmptyResult):
		response.Warning = "The AI returned an empty summary. Try again or check the document content."
	case err != nil:
		writePipelineError(w, err)
		return
	default:
		response.Summary = summary
	}

	clauses, err := h.ops.HighlightClauses(r.Context(), docs)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	response.Clauses = clauses

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to write response",
			slog.String("error", err.Error()))
	}
}

func (h *UploadHandler) saveUpload(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(h.dataDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(h.dataDir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
