// Package httpapi assembles the HTTP surface of the render service.
package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"slidecast/internal/httpapi/handlers"
	"slidecast/internal/httpkit"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/middleware"
	"slidecast/internal/render"
)

type Deps struct {
	Orchestrator *render.Orchestrator
	Registry     *render.Registry
	Workspace    *render.Manager
	FFmpegBin    string
	Log          *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{"*"})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length", "Content-Range"},
	}))

	h := handlers.New(handlers.Deps{
		Orchestrator: d.Orchestrator,
		Registry:     d.Registry,
		Workspace:    d.Workspace,
		FFmpegBin:    d.FFmpegBin,
		Log:          log,
	})

	// ---- HEALTH ----
	r.Get("/", h.Health)

	// ---- RENDER JOBS ----
	r.Route("/api", func(r chi.Router) {
		// Intake holds the caller only for validation and job creation.
		r.With(middleware.Timeout(30 * time.Second)).Post("/merge", h.PostMerge)
		r.Get("/status/{videoID}", h.GetStatus)
	})

	// ---- ARTIFACTS ----
	r.Get("/videos/{fileName}", h.GetVideo)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
