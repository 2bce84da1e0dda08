package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/httpkit"
)

// GetVideo serves a finished artifact. http.ServeFile handles byte-range
// requests, so players can seek and preload without downloading the whole
// container.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fileName")

	// Only flat mp4 names minted by this service are ever valid.
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".mp4") {
		httpkit.WriteErr(w, http.StatusNotFound, "Video not found", map[string]any{"file": name})
		return
	}

	path := filepath.Join(h.workspace.OutputDir(), name)
	if _, err := os.Stat(path); err != nil {
		httpkit.WriteErr(w, http.StatusNotFound, "Video not found", map[string]any{"file": name})
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}
