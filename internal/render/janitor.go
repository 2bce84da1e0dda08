package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidecast/internal/pkg/logger"
)

// Janitor periodically reclaims stale job records and their backing files.
// It owns the only deletion path for completed artifacts; the orchestrator
// never deletes a successful output itself.
type Janitor struct {
	registry  *Registry
	workspace *Manager
	retention time.Duration
	interval  time.Duration
	maxJobs   int
	log       *logger.Logger
}

// NewJanitor creates a janitor sweeping on the given interval with the
// given retention window.
func NewJanitor(registry *Registry, workspace *Manager, retention, interval time.Duration, maxJobs int, log *logger.Logger) *Janitor {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Janitor{
		registry:  registry,
		workspace: workspace,
		retention: retention,
		interval:  interval,
		maxJobs:   maxJobs,
		log:       log.WithComponent("janitor"),
	}
}

// Run sweeps on a fixed interval until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) {
	j.log.Info("janitor started",
		"retention", j.retention.String(),
		"interval", j.interval.String(),
		"max_jobs", j.maxJobs,
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep performs one reclamation pass: expired records, capacity overflow,
// then orphaned artifacts with no registry entry.
func (j *Janitor) Sweep() {
	expired := j.registry.EvictOlderThan(j.retention)
	for _, job := range expired {
		j.removeArtifact(job.ID)
	}

	over := j.registry.EvictOverCapacity(j.maxJobs)
	for _, job := range over {
		j.removeArtifact(job.ID)
	}

	orphans := j.sweepOrphans()

	if len(expired)+len(over)+orphans > 0 {
		j.log.Info("sweep completed",
			"expired", len(expired),
			"over_capacity", len(over),
			"orphans", orphans,
			"retained", j.registry.Len(),
		)
	}
}

// sweepOrphans removes artifact files that have no registry entry and are
// older than the retention window by mtime. Registry-based age tracking is
// lost on restart, so mtime is the fallback that keeps pre-restart files
// from living forever.
func (j *Janitor) sweepOrphans() int {
	entries, err := os.ReadDir(j.workspace.OutputDir())
	if err != nil {
		j.log.Warn("orphan sweep failed to read output dir", "error", err.Error())
		return 0
	}

	cutoff := time.Now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".mp4") {
			continue
		}

		jobID := strings.TrimSuffix(name, ".mp4")
		if _, ok := j.registry.Get(jobID); ok {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if err := removeFile(filepath.Join(j.workspace.OutputDir(), name)); err != nil {
			j.log.Warn("failed to remove orphaned artifact", "file", name, "error", err.Error())
			continue
		}
		removed++
	}
	return removed
}

func (j *Janitor) removeArtifact(jobID string) {
	path := j.workspace.OutputPath(jobID)
	if err := removeFile(path); err != nil {
		j.log.Warn("failed to remove artifact", "job_id", jobID, "error", err.Error())
	}
}

// removeFile deletes a file, treating absence as success.
func removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return err
}
