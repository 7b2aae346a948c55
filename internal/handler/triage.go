package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"clinsight/internal/httputil"
	clinicalSvc "clinsight/internal/service/clinical"
)

// maxTriageUpload bounds one multipart triage submission.
const maxTriageUpload = 32 << 20

// TriageHandler exposes the staged triage pipeline.
type TriageHandler struct {
	sessions *clinicalSvc.Registry
	logger   *slog.Logger
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(sessions *clinicalSvc.Registry, logger *slog.Logger) *TriageHandler {
	return &TriageHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RunTriage accepts a multipart upload with "triage" and "exam" file
// fields and starts one pipeline run. Responds 202 with the initial
// status; the UI polls GetTriage for stage and progress.
// POST /api/sessions/{id}/triage
func (h *TriageHandler) RunTriage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxTriageUpload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	triageImages, err := readUploads(r.MultipartForm.File["triage"])
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	examImages, err := readUploads(r.MultipartForm.File["exam"])
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(triageImages) == 0 && len(examImages) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "at least one triage or exam image is required")
		return
	}

	if session.Triage.Running() {
		httputil.RespondError(w, http.StatusConflict, "triage pipeline already running")
		return
	}

	// The run outlives this request; the handler context dies with it.
	go func() {
		if err := session.Triage.Run(context.Background(), triageImages, examImages); err != nil {
			h.logger.Error("triage run failed", "session_id", id, "error", err)
		}
	}()

	httputil.RespondJSON(w, http.StatusAccepted, session.Triage.Status())
}

// GetTriage returns the pipeline's stage, progress and last analysis.
// GET /api/sessions/{id}/triage
func (h *TriageHandler) GetTriage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "session ID")
	if !ok {
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, session.Triage.Status())
}

// readUploads drains every file in one multipart field.
func readUploads(headers []*multipart.FileHeader) ([]clinicalSvc.Upload, error) {
	uploads := make([]clinicalSvc.Upload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, clinicalSvc.Upload{
			Data:     data,
			Filename: header.Filename,
		})
	}
	return uploads, nil
}
