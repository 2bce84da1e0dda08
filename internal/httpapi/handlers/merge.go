package handlers

import (
	"net/http"

	"slidecast/internal/httpkit"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/render"
)

// MergeRequest is the submit-render payload: base64-encoded inputs plus an
// optional caption overlay.
type MergeRequest struct {
	Image   string `json:"image"`
	Audio   string `json:"audio"`
	Caption string `json:"caption,omitempty"`
}

// PostMerge accepts a render submission. Validation is synchronous; the
// render itself runs in the background and the response carries the poll
// URL, so the caller never blocks on encode duration.
func (h *Handler) PostMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MergeRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	job, err := h.orch.Submit(ctx, render.MergeRequest{
		Image:   req.Image,
		Audio:   req.Audio,
		Caption: req.Caption,
	})
	if err != nil {
		httpkit.WriteErr(w, errors.GetHTTPStatus(err), errMessage(err), nil)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     string(job.Status),
		"video_id":   job.ID,
		"check_url":  h.orch.ArtifactURL(job.ID),
		"status_url": h.orch.StatusURL(job.ID),
	})
}

// errMessage extracts the human-readable message without the internal
// op/code prefix chain.
func errMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
