package handlers

import (
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"slidecast/internal/httpkit"
)

// Health is a liveness indicator. With ?deep=true it also verifies the
// pieces a render actually needs: a writable data directory and a
// resolvable encoder binary.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"service": "slidecast-api",
		"version": Version,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck()
		health["checks"] = checks

		for _, check := range checks {
			if checkMap, ok := check.(map[string]any); ok {
				if checkMap["status"] != "ok" {
					health["status"] = "degraded"
					h.log.FromContext(r.Context()).Warn("health check degraded", "checks", checks)
					break
				}
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck() map[string]any {
	checks := make(map[string]any)
	checks["data_dir"] = h.checkDataDir()
	checks["encoder"] = h.checkEncoder()
	checks["registry"] = map[string]any{
		"status": "ok",
		"jobs":   h.registry.Len(),
	}
	return checks
}

func (h *Handler) checkDataDir() map[string]any {
	result := map[string]any{"status": "ok"}

	probe := filepath.Join(h.workspace.Root(), ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
		return result
	}
	_ = os.Remove(probe)
	return result
}

func (h *Handler) checkEncoder() map[string]any {
	result := map[string]any{"status": "ok", "binary": h.ffmpegBin}

	if _, err := exec.LookPath(h.ffmpegBin); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	return result
}
