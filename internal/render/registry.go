package render

import (
	"sort"
	"sync"
	"time"

	"slidecast/internal/pkg/errors"
)

// Registry is the in-memory job table. It is the only structure mutated by
// more than one actor (orchestrator goroutines and the janitor), so every
// access goes through its mutex. Callers always receive copies; the map
// never escapes.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create inserts a new job record. A job is created exactly once; a
// duplicate id is an internal error.
func (r *Registry) Create(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return errors.Internalf("job already exists: %s", job.ID)
	}
	j := job
	r.jobs[job.ID] = &j
	return nil
}

// Get returns a copy of the job with the given id.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Complete marks a job complete with its artifact size and URL. Terminal
// states are sticky: completing an already-terminal job is a no-op.
func (r *Registry) Complete(id string, sizeBytes int64, url string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.Status.Terminal() {
		return Job{}, false
	}
	now := time.Now().UTC()
	j.Status = StatusComplete
	j.CompletedAt = now
	j.ProcessingTime = now.Sub(j.CreatedAt)
	j.SizeBytes = sizeBytes
	j.URL = url
	return *j, true
}

// Fail marks a job failed with a human-readable message. Terminal states
// are sticky: failing an already-terminal job is a no-op.
func (r *Registry) Fail(id string, msg string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.Status.Terminal() {
		return Job{}, false
	}
	now := time.Now().UTC()
	j.Status = StatusError
	j.CompletedAt = now
	j.ProcessingTime = now.Sub(j.CreatedAt)
	j.Error = msg
	return *j, true
}

// Delete removes a job record. Used by the janitor only.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Len returns the number of retained job records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// EvictOlderThan removes every job whose createdAt is older than maxAge
// and returns the removed records so the caller can reclaim their files.
func (r *Registry) EvictOlderThan(maxAge time.Duration) []Job {
	cutoff := time.Now().UTC().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Job
	for id, j := range r.jobs {
		if j.CreatedAt.Before(cutoff) {
			evicted = append(evicted, *j)
			delete(r.jobs, id)
		}
	}
	return evicted
}

// EvictOverCapacity removes the oldest jobs (by createdAt) until at most
// max records remain, returning the removed records. It bounds memory
// under sustained load.
func (r *Registry) EvictOverCapacity(max int) []Job {
	if max <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	over := len(r.jobs) - max
	if over <= 0 {
		return nil
	}

	byAge := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		byAge = append(byAge, j)
	}
	sort.Slice(byAge, func(i, k int) bool {
		return byAge[i].CreatedAt.Before(byAge[k].CreatedAt)
	})

	evicted := make([]Job, 0, over)
	for _, j := range byAge[:over] {
		evicted = append(evicted, *j)
		delete(r.jobs, j.ID)
	}
	return evicted
}
