package render

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newJob(id string, createdAt time.Time) Job {
	return Job{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: createdAt,
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	now := time.Now().UTC()

	if err := r.Create(newJob("j1", now)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	job, ok := r.Get("j1")
	if !ok {
		t.Fatal("expected job to be retrievable immediately after create")
	}
	if job.Status != StatusProcessing {
		t.Errorf("expected status processing, got %s", job.Status)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing id to return false")
	}
}

func TestRegistryCreateDuplicate(t *testing.T) {
	r := NewRegistry()
	now := time.Now().UTC()

	if err := r.Create(newJob("j1", now)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := r.Create(newJob("j1", now)); err == nil {
		t.Error("expected duplicate create to fail")
	}
}

func TestRegistryComplete(t *testing.T) {
	r := NewRegistry()
	created := time.Now().UTC().Add(-2 * time.Second)
	if err := r.Create(newJob("j1", created)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	job, ok := r.Complete("j1", 204800, "/videos/j1.mp4")
	if !ok {
		t.Fatal("expected complete to succeed")
	}
	if job.Status != StatusComplete {
		t.Errorf("expected status complete, got %s", job.Status)
	}
	if job.SizeBytes != 204800 {
		t.Errorf("expected size 204800, got %d", job.SizeBytes)
	}
	if job.URL != "/videos/j1.mp4" {
		t.Errorf("expected url to be set, got %q", job.URL)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected completedAt to be set")
	}
	if job.ProcessingTime <= 0 {
		t.Errorf("expected positive processing time, got %s", job.ProcessingTime)
	}
}

func TestRegistryFail(t *testing.T) {
	r := NewRegistry()
	if err := r.Create(newJob("j1", time.Now().UTC())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	job, ok := r.Fail("j1", "encoder exited with code 1")
	if !ok {
		t.Fatal("expected fail to succeed")
	}
	if job.Status != StatusError {
		t.Errorf("expected status error, got %s", job.Status)
	}
	if job.Error != "encoder exited with code 1" {
		t.Errorf("unexpected error message: %q", job.Error)
	}
	if job.URL != "" || job.SizeBytes != 0 {
		t.Error("expected no url/size on failed job")
	}
}

func TestRegistryTerminalStatesAreSticky(t *testing.T) {
	r := NewRegistry()
	if err := r.Create(newJob("j1", time.Now().UTC())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, ok := r.Complete("j1", 1024, "/videos/j1.mp4"); !ok {
		t.Fatal("expected first terminal transition to succeed")
	}

	// No job re-enters a different terminal state
	if _, ok := r.Fail("j1", "late failure"); ok {
		t.Error("expected fail after complete to be rejected")
	}
	if _, ok := r.Complete("j1", 9999, "/videos/other.mp4"); ok {
		t.Error("expected second complete to be rejected")
	}

	// Repeated reads return the identical terminal record
	first, _ := r.Get("j1")
	second, _ := r.Get("j1")
	if first != second {
		t.Error("expected identical payload on repeated reads after terminal state")
	}
	if first.SizeBytes != 1024 {
		t.Errorf("expected original size to survive, got %d", first.SizeBytes)
	}
}

func TestRegistryEvictOlderThan(t *testing.T) {
	r := NewRegistry()
	now := time.Now().UTC()

	if err := r.Create(newJob("old", now.Add(-2*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(newJob("fresh", now)); err != nil {
		t.Fatal(err)
	}

	evicted := r.EvictOlderThan(time.Hour)
	if len(evicted) != 1 || evicted[0].ID != "old" {
		t.Fatalf("expected only 'old' to be evicted, got %v", evicted)
	}

	if _, ok := r.Get("old"); ok {
		t.Error("expected evicted job to be gone")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Error("expected fresh job to survive")
	}
}

func TestRegistryEvictOverCapacity(t *testing.T) {
	r := NewRegistry()
	base := time.Now().UTC().Add(-time.Minute)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("j%d", i)
		if err := r.Create(newJob(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	evicted := r.EvictOverCapacity(3)
	if len(evicted) != 2 {
		t.Fatalf("expected 2 evictions, got %d", len(evicted))
	}

	// Oldest first
	if evicted[0].ID != "j0" || evicted[1].ID != "j1" {
		t.Errorf("expected oldest-first eviction, got %s, %s", evicted[0].ID, evicted[1].ID)
	}

	if r.Len() != 3 {
		t.Errorf("expected registry size capped at 3, got %d", r.Len())
	}

	// Under capacity is a no-op
	if evicted := r.EvictOverCapacity(10); evicted != nil {
		t.Errorf("expected no eviction under capacity, got %v", evicted)
	}
	// Zero cap is ignored rather than draining the registry
	if evicted := r.EvictOverCapacity(0); evicted != nil {
		t.Errorf("expected zero cap to be ignored, got %v", evicted)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("j%d", i)
			if err := r.Create(newJob(id, time.Now().UTC())); err != nil {
				t.Errorf("create %s failed: %v", id, err)
				return
			}
			if i%2 == 0 {
				r.Complete(id, 1024, "/videos/"+id+".mp4")
			} else {
				r.Fail(id, "boom")
			}
			r.Get(id)
		}(i)
	}

	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("expected 50 jobs, got %d", r.Len())
	}
}
