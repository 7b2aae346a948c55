package handler

import (
	"log/slog"
	"net/http"

	"clinsight/internal/httputil"
	clinicalSvc "clinsight/internal/service/clinical"
)

// AssistantHandler exposes the contextual assistant.
type AssistantHandler struct {
	sessions *clinicalSvc.Registry
	logger   *slog.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(sessions *clinicalSvc.Registry, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Ask answers one question with the session's ambient context.
// POST /api/sessions/{id}/assistant
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
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
		Question string `json:"question"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := session.Ask(r.Context(), req.Question)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// GetHistory returns the rolling conversation log.
// GET /api/sessions/{id}/assistant
func (h *AssistantHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, session.Assistant.History())
}

// ClearHistory empties the conversation log.
// DELETE /api/sessions/{id}/assistant
func (h *AssistantHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	session.Assistant.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}
