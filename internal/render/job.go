// Package render implements the asynchronous render-job engine: job
// lifecycle tracking, scratch workspace management, encoder supervision,
// artifact validation, and background cleanup.
package render

import "time"

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Job is one render request's lifecycle record, keyed by a unique id.
// The id doubles as the artifact filename stem.
type Job struct {
	ID        string
	Status    Status
	Caption   string
	CreatedAt time.Time

	// Set only on terminal transition.
	CompletedAt    time.Time
	ProcessingTime time.Duration

	// Set only on complete.
	SizeBytes int64
	URL       string

	// Set only on error.
	Error string
}
