package handlers

import (
	"slidecast/internal/pkg/logger"
	"slidecast/internal/render"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

type Deps struct {
	Orchestrator *render.Orchestrator
	Registry     *render.Registry
	Workspace    *render.Manager
	FFmpegBin    string
	Log          *logger.Logger
}

type Handler struct {
	orch      *render.Orchestrator
	registry  *render.Registry
	workspace *render.Manager
	ffmpegBin string
	log       *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		orch:      d.Orchestrator,
		registry:  d.Registry,
		workspace: d.Workspace,
		ffmpegBin: d.FFmpegBin,
		log:       log.WithComponent("httpapi"),
	}
}
