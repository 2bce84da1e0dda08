package render

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/render/encoder"
)

// maxErrorLen bounds the failure message stored on a job so verbose encoder
// diagnostics never bloat status responses.
const maxErrorLen = 500

// Config holds the orchestrator's tunables.
type Config struct {
	// PublicBaseURL is prepended to artifact URLs; empty means relative URLs.
	PublicBaseURL string
	// MinInputBytes is the decoded-size floor for each input payload.
	MinInputBytes int64
	// MinArtifactBytes is the minimum-viable-artifact threshold.
	MinArtifactBytes int64
	// MaxJobs caps retained registry entries; oldest are evicted first.
	MaxJobs int
}

// MergeRequest is a validated submission: base64 payloads plus an optional
// caption.
type MergeRequest struct {
	Image   string
	Audio   string
	Caption string
}

// Orchestrator drives a job from intake to its terminal state. The request
// handler only runs Submit, which validates and registers the job; all
// heavy work happens in one managed goroutine per job, and that goroutine
// owns the job's terminal-state write exclusively.
type Orchestrator struct {
	cfg       Config
	registry  *Registry
	workspace *Manager
	encoder   encoder.Encoder
	log       *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator wires the render pipeline together.
func NewOrchestrator(cfg Config, registry *Registry, workspace *Manager, enc encoder.Encoder, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewDefault()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		workspace: workspace,
		encoder:   enc,
		log:       log.WithComponent("orchestrator"),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Submit validates a merge request, registers the job, and schedules the
// render in the background. It returns immediately; the caller never blocks
// on encode duration. Validation failures surface synchronously and no job
// is created for them.
func (o *Orchestrator) Submit(ctx context.Context, req MergeRequest) (Job, error) {
	if err := o.validate(req); err != nil {
		return Job{}, err
	}

	job := Job{
		ID:        uuid.NewString(),
		Status:    StatusProcessing,
		Caption:   strings.TrimSpace(req.Caption),
		CreatedAt: time.Now().UTC(),
	}
	if err := o.registry.Create(job); err != nil {
		return Job{}, err
	}

	// Bound memory before the new job's work starts. Only the records are
	// dropped here; completed artifacts stay on disk until the janitor
	// reclaims them.
	if evicted := o.registry.EvictOverCapacity(o.cfg.MaxJobs); len(evicted) > 0 {
		o.log.FromContext(ctx).Info("evicted jobs over capacity", "count", len(evicted))
	}

	o.wg.Add(1)
	go o.process(job.ID, req)

	o.log.FromContext(ctx).WithJobID(job.ID).Info("job accepted",
		"caption_len", len(job.Caption),
	)
	return job, nil
}

// validate enforces presence and a plausible decoded-size floor. Decoding
// itself happens in the background task; here the floor is estimated from
// the base64 length so the caller is only held for a cheap check.
func (o *Orchestrator) validate(req MergeRequest) error {
	if strings.TrimSpace(req.Image) == "" {
		return errors.ValidationField("image", "Missing image data")
	}
	if strings.TrimSpace(req.Audio) == "" {
		return errors.ValidationField("audio", "Missing audio data")
	}
	if EstimateDecodedLen(req.Image) < o.cfg.MinInputBytes {
		return errors.ValidationField("image", "image payload too small to be a valid image")
	}
	if EstimateDecodedLen(req.Audio) < o.cfg.MinInputBytes {
		return errors.ValidationField("audio", "audio payload too small to be a valid audio clip")
	}
	return nil
}

// process runs one job to a terminal state. Scratch inputs are released on
// every exit path; the output artifact survives only a fully validated
// success.
func (o *Orchestrator) process(jobID string, req MergeRequest) {
	defer o.wg.Done()

	log := o.log.WithJobID(jobID)
	ctx := logger.ContextWithJobID(o.baseCtx, jobID)
	start := time.Now()

	ws, err := o.workspace.Materialize(jobID, req.Image, req.Audio)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	defer ws.CleanupInputs()

	log.Debug("inputs materialized",
		"image", ws.ImagePath,
		"audio", ws.AudioPath,
	)

	err = o.encoder.Encode(ctx, encoder.Spec{
		ImagePath:  ws.ImagePath,
		AudioPath:  ws.AudioPath,
		OutputPath: ws.OutputPath,
		Caption:    req.Caption,
	})
	if err != nil {
		ws.RemoveOutput()
		o.fail(jobID, err)
		return
	}

	size, err := ValidateArtifact(ws.OutputPath, o.cfg.MinArtifactBytes)
	if err != nil {
		ws.RemoveOutput()
		o.fail(jobID, err)
		return
	}

	job, ok := o.registry.Complete(jobID, size, o.ArtifactURL(jobID))
	if !ok {
		// Evicted while encoding; the record is gone, so the artifact is
		// unreachable and must not linger.
		ws.RemoveOutput()
		log.Warn("job record gone before completion, artifact discarded")
		return
	}

	log.Info("job completed",
		"size_bytes", job.SizeBytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// fail records a terminal error on the job. Background failures are never
// thrown back to an HTTP caller; they become poll-able job state.
func (o *Orchestrator) fail(jobID string, cause error) {
	log := o.log.WithJobID(jobID)

	msg := o.sanitizeError(cause)
	if _, ok := o.registry.Fail(jobID, msg); !ok {
		log.Warn("job record gone before failure could be recorded")
		return
	}

	var rErr *errors.Error
	if errors.As(cause, &rErr) {
		log.Error("job failed",
			"code", string(rErr.Code),
			"op", rErr.Op,
			"message", rErr.Message,
		)
	} else {
		log.Error("job failed", "error", cause.Error())
	}
}

// sanitizeError strips filesystem layout from a failure message and bounds
// its length before it becomes visible on the status endpoint.
func (o *Orchestrator) sanitizeError(err error) string {
	msg := err.Error()
	msg = strings.ReplaceAll(msg, o.workspace.Root(), "")
	if len(msg) > maxErrorLen {
		// Back up to a rune boundary so the cut never leaves invalid UTF-8.
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}

// ArtifactURL returns the externally visible URL for a job's artifact.
func (o *Orchestrator) ArtifactURL(jobID string) string {
	return strings.TrimSuffix(o.cfg.PublicBaseURL, "/") + "/videos/" + jobID + ".mp4"
}

// StatusURL returns the poll URL for a job.
func (o *Orchestrator) StatusURL(jobID string) string {
	return strings.TrimSuffix(o.cfg.PublicBaseURL, "/") + "/api/status/" + jobID
}

// Drain waits for in-flight jobs to reach a terminal state, bounded by
// ctx. When ctx expires the remaining encodes are aborted and recorded as
// failures before Drain returns.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Abort in-flight encodes; their goroutines record the failure.
		o.cancel()
		<-done
		return ctx.Err()
	}
}
