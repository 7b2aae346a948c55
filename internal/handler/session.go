package handler

import (
	"log/slog"
	"net/http"

	"clinsight/internal/domain/models/clinical"
	"clinsight/internal/httputil"
	clinicalSvc "clinsight/internal/service/clinical"
)

// SessionHandler manages consultation session lifecycle and the
// continuous analysis loop's inputs and outputs.
type SessionHandler struct {
	sessions *clinicalSvc.Registry
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *clinicalSvc.Registry, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSession starts a consultation session.
// POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Patient clinical.Patient `json:"patient"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := h.sessions.Create(req.Patient)
	httputil.RespondJSON(w, http.StatusCreated, session)
}

// DeleteSession tears a session down, stopping its analysis timer.
// DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	if err := h.sessions.Delete(id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateTranscript feeds the growing transcript to the analysis loop.
// PUT /api/sessions/{id}/transcript
func (h *SessionHandler) UpdateTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	var req struct {
		Transcript string `json:"transcript"`
		Enabled    *bool  `json:"enabled,omitempty"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled != nil {
		session.Monitor.SetEnabled(*req.Enabled)
	}
	session.Monitor.SetTranscript(req.Transcript)

	httputil.RespondJSON(w, http.StatusOK, session.Monitor.Status())
}

// ListInsights returns the accumulated insights plus loop status.
// GET /api/sessions/{id}/insights
func (h *SessionHandler) ListInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"insights": session.Monitor.Insights(),
		"status":   session.Monitor.Status(),
	})
}

// ClearInsights empties the insight list and the loop's coverage memory.
// DELETE /api/sessions/{id}/insights
func (h *SessionHandler) ClearInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	session.Monitor.Clear()
	w.WriteHeader(http.StatusNoContent)
}
