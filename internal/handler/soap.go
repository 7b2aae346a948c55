package handler

import (
	"log/slog"
	"net/http"

	"clinsight/internal/httputil"
	clinicalSvc "clinsight/internal/service/clinical"
)

// SOAPHandler exposes the structured document generator.
type SOAPHandler struct {
	sessions *clinicalSvc.Registry
	soap     *clinicalSvc.SOAPService
	logger   *slog.Logger
}

// NewSOAPHandler creates a new SOAP handler
func NewSOAPHandler(sessions *clinicalSvc.Registry, soap *clinicalSvc.SOAPService, logger *slog.Logger) *SOAPHandler {
	return &SOAPHandler{
		sessions: sessions,
		soap:     soap,
		logger:   logger,
	}
}

// Generate converts the session transcript into a validated SOAP note.
// An explicit transcript in the body overrides the session's current one.
// POST /api/sessions/{id}/soap
func (h *SOAPHandler) Generate(w http.ResponseWriter, r *http.Request) {
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
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transcript := req.Transcript
	if transcript == "" {
		transcript = session.Monitor.Transcript()
	}

	note, err := h.soap.Generate(r.Context(), transcript, session.Patient)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, note)
}
