package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/httpkit"
	"slidecast/internal/render"
)

// GetStatus reports a job's current state. Terminal payloads are stable:
// polling after completion returns the identical document every time.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	job, ok := h.registry.Get(videoID)
	if !ok {
		httpkit.WriteErr(w, http.StatusNotFound, "Job not found", map[string]any{"id": videoID})
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, statusPayload(job))
}

// statusPayload builds the status document. Fields are status-specific:
// url and size appear only on complete, error only on error. Callers must
// branch on status, never on field presence.
func statusPayload(job render.Job) map[string]any {
	body := map[string]any{
		"id":         job.ID,
		"status":     string(job.Status),
		"created_at": job.CreatedAt.Format(time.RFC3339),
	}
	if job.Caption != "" {
		body["caption"] = job.Caption
	}

	switch job.Status {
	case render.StatusComplete:
		body["url"] = job.URL
		body["size_bytes"] = job.SizeBytes
		body["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		body["processing_time_seconds"] = job.ProcessingTime.Seconds()
	case render.StatusError:
		body["error"] = job.Error
		body["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		body["processing_time_seconds"] = job.ProcessingTime.Seconds()
	}
	return body
}
