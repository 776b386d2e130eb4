package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/juridoc/juridoc/ops"
	"github.com/juridoc/juridoc/services/extract_service"
	"github.com/juridoc/juridoc/services/index_service"
	"github.com/juridoc/juridoc/services/llm_service"
	"github.com/juridoc/juridoc/session"
)

// SessionHeader carries the caller's session identity. The upload and ask
// handlers echo it back so a client can keep one conversation going.
// Browser clients that drop custom headers fall back to the session cookie.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "juridoc_session"
)

// bindSession resolves the caller's session from the header or cookie and
// echoes the ID back on both.
func bindSession(w http.ResponseWriter, r *http.Request, sessions *session.Store) *session.Session {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}

	sess := sessions.GetOrCreate(id)
	w.Header().Set(SessionHeader, sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writePipelineError maps a pipeline failure onto a distinct status and
// message, so callers can tell "no text extracted" from "model
// unavailable".
func writePipelineError(w http.ResponseWriter, err error) {
	var extractErr *extract_service.ExtractionError
	var indexErr *index_service.IndexBuildError
	var modelErr *llm_service.ModelInvocationError

	switch {
	case errors.As(err, &extractErr):
		writeJSONError(w, extractErr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &indexErr):
		writeJSONError(w, "Failed to build the document index: "+indexErr.Error(), http.StatusInternalServerError)
	case errors.As(err, &modelErr):
		writeJSONError(w, "The language model is unavailable: "+modelErr.Error(), http.StatusBadGateway)
	case errors.Is(err, ops.ErrNoDocuments):
		writeJSONError(w, "No document available for this operation", http.StatusBadRequest)
	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
