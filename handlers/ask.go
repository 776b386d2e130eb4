package handlers

import (
	"encoding/json"
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

type AskResponse struct {
	Answer string `json:"answer"`
}

// AskHandler answers a free-form question against the caller's most
// recently uploaded document, carrying the session's conversation history.
type AskHandler struct {
	logger    *slog.Logger
	extractor *extract_service.DocumentExtractor
	ops       *ops.Service
	sessions  *session.Store
	dataDir   string
}

func NewAskHandler(logger *slog.Logger, extractor *extract_service.DocumentExtractor, opsService *ops.Service, sessions *session.Store, dataDir string) *AskHandler {
	return &AskHandler{
		logger:    logger,
		extractor: extractor,
		ops:       opsService,
		sessions:  sessions,
		dataDir:   dataDir,
	}
}

func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := bindSession(w, r, h.sessions)

	question := r.FormValue("question")
	if question == "" {
		writeJSONError(w, "Form field 'question' is required", http.StatusBadRequest)
		return
	}

	path := sess.LastFile()
	if path == "" {
		// New session: fall back to the most recent upload on disk.
		path = h.latestUpload()
	}
	if path == "" {
		writeJSONError(w, "No file uploaded yet", http.StatusBadRequest)
		return
	}

	doc, err := h.extractor.Extract(r.Context(), path)
	if err != nil {
		h.logger.Error("Failed to re-extract uploaded document",
			slog.String("path", path),
			slog.String("error", err.Error()))
		writePipelineError(w, err)
		return
	}

	answer, err := h.ops.AnswerQuery(r.Context(), sess, document.Set{doc}, question)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(AskResponse{Answer: answer}); err != nil {
		h.logger.Error("Failed to write response",
			slog.String("error", err.Error()))
	}
}

// latestUpload returns the most recently written file in the data
// directory, by modification time.
func (h *AskHandler) latestUpload() string {
	entries, err := os.ReadDir(h.dataDir)
	if err != nil {
		return ""
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = entry.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return ""
	}
	return filepath.Join(h.dataDir, newest)
}
