package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"slidecast/internal/httpapi"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/pkg/shutdown"
	"slidecast/internal/render"
	"slidecast/internal/render/encoder"
)

func main() {
	// Optional .env for local development; the environment always wins.
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "slidecast-api",
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting slidecast API", "version", "0.1.0")

	// Runtime configuration, environment-driven
	httpPort := getEnv("HTTP_PORT", "8080")
	publicBaseURL := getEnv("PUBLIC_BASE_URL", "")
	dataDir := getEnv("DATA_DIR", "./data")
	ffmpegBin := getEnv("FFMPEG_BIN", "ffmpeg")
	encodeTimeout := durationEnv(log, "ENCODE_TIMEOUT", 5*time.Minute)
	minInputBytes := int64Env(log, "MIN_INPUT_BYTES", 1024)
	minArtifactBytes := int64Env(log, "MIN_ARTIFACT_BYTES", 100*1024)
	retention := durationEnv(log, "RETENTION_WINDOW", time.Hour)
	janitorInterval := durationEnv(log, "JANITOR_INTERVAL", 5*time.Minute)
	maxJobs := int(int64Env(log, "MAX_JOBS", 100))

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Data directory must exist before anything touches it
	workspace := render.NewManager(dataDir)
	if err := workspace.EnsureDirs(); err != nil {
		log.LogFatal("failed to prepare data directory", err, "dir", dataDir)
	}

	// One instance per data directory: two processes running competing
	// janitors over the same artifact tree would race deletions.
	lock := flock.New(filepath.Join(workspace.Root(), "slidecast.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.LogFatal("failed to acquire data directory lock", err)
	}
	if !locked {
		log.LogFatal("another slidecast instance already owns this data directory", nil, "dir", dataDir)
	}
	shutdownMgr.Register("data-dir-lock", func(ctx context.Context) error {
		return lock.Unlock()
	})

	// Render engine
	registry := render.NewRegistry()
	enc := encoder.NewFFmpeg(encodeTimeout, encoder.WithBinary(ffmpegBin))
	orch := render.NewOrchestrator(render.Config{
		PublicBaseURL:    publicBaseURL,
		MinInputBytes:    minInputBytes,
		MinArtifactBytes: minArtifactBytes,
		MaxJobs:          maxJobs,
	}, registry, workspace, enc, log)

	shutdownMgr.Register("render-orchestrator", func(ctx context.Context) error {
		return orch.Drain(ctx)
	})

	// Background artifact reclamation
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	janitor := render.NewJanitor(registry, workspace, retention, janitorInterval, maxJobs, log)
	go janitor.Run(janitorCtx)
	shutdownMgr.RegisterSimple("janitor", janitorCancel)

	router := httpapi.NewRouter(httpapi.Deps{
		Orchestrator: orch,
		Registry:     registry,
		Workspace:    workspace,
		FFmpegBin:    ffmpegBin,
		Log:          log,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}

// getEnv reads an environment variable, falling back to def when unset.
func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// durationEnv parses an environment variable as a duration or exits.
func durationEnv(log *logger.Logger, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.LogFatal("invalid duration environment variable", err, "key", key, "value", v)
	}
	return d
}

// int64Env parses an environment variable as an integer or exits.
func int64Env(log *logger.Logger, key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.LogFatal("invalid integer environment variable", err, "key", key, "value", v)
	}
	return n
}
