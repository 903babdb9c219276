package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

func newRun(project, document string, status analysis.RunStatus, finished time.Time) *analysis.SharedState {
	s := analysis.NewSharedState(analysis.MustRunID(project, document), "text", finished.Add(-time.Minute))
	s.Status = status
	s.FinishedAt = finished
	return s
}

func TestMemoryStateStore_BeginRejectsActiveRun(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	id := analysis.MustRunID("acme", "rfp-1")

	if err := store.Begin(id, newRun("acme", "rfp-1", analysis.RunRunning, time.Time{})); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := store.Begin(id, newRun("acme", "rfp-1", analysis.RunPending, time.Time{}))
	if !errors.Is(err, analysis.ErrRunActive) || !errors.Is(err, analysis.ErrValidation) {
		t.Errorf("err = %v, want ErrRunActive and ErrValidation", err)
	}
}

func TestMemoryStateStore_BeginReplacesTerminalRun(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	id := analysis.MustRunID("acme", "rfp-1")

	_ = store.Begin(id, newRun("acme", "rfp-1", analysis.RunFailed, time.Now()))
	if err := store.Begin(id, newRun("acme", "rfp-1", analysis.RunPending, time.Time{})); err != nil {
		t.Fatalf("Begin after terminal: %v", err)
	}
	got, _ := store.Get(id)
	if got.Status != analysis.RunPending {
		t.Errorf("Status = %s, want pending", got.Status)
	}
}

func TestMemoryStateStore_GetReturnsSnapshot(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	id := analysis.MustRunID("acme", "rfp-1")
	_ = store.Put(id, newRun("acme", "rfp-1", analysis.RunRunning, time.Time{}))

	snap, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	snap.Warnings = append(snap.Warnings, "mutated")
	snap.ExecutionLog = append(snap.ExecutionLog, analysis.LogEntry{Stage: analysis.StageRFPAnalyzer})

	again, _ := store.Get(id)
	if len(again.Warnings) != 0 || len(again.ExecutionLog) != 0 {
		t.Error("Mutating a snapshot must not affect stored state")
	}
}

func TestMemoryStateStore_UpdateAndNotFound(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	id := analysis.MustRunID("acme", "rfp-1")

	err := store.Update(id, func(*analysis.SharedState) {})
	if !errors.Is(err, analysis.ErrRunNotFound) {
		t.Errorf("Update err = %v, want ErrRunNotFound", err)
	}
	if _, err := store.Get(id); !errors.Is(err, analysis.ErrRunNotFound) {
		t.Errorf("Get err = %v, want ErrRunNotFound", err)
	}

	_ = store.Put(id, newRun("acme", "rfp-1", analysis.RunRunning, time.Time{}))
	if err := store.Update(id, func(s *analysis.SharedState) { s.Summary = "updated" }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := store.Get(id)
	if got.Summary != "updated" {
		t.Errorf("Summary = %q, want updated", got.Summary)
	}

	store.Remove(id)
	if _, err := store.Get(id); !errors.Is(err, analysis.ErrRunNotFound) {
		t.Errorf("Get after Remove err = %v, want ErrRunNotFound", err)
	}
}

func TestMemoryStateStore_List(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	_ = store.Put(analysis.MustRunID("globex", "a"), newRun("globex", "a", analysis.RunRunning, time.Time{}))
	_ = store.Put(analysis.MustRunID("acme", "b"), newRun("acme", "b", analysis.RunRunning, time.Time{}))

	ids := store.List()
	if len(ids) != 2 || ids[0].String() != "acme_b" || ids[1].String() != "globex_a" {
		t.Errorf("List = %v", ids)
	}
}

func TestMemoryStateStore_EvictsOnlyExpiredTerminalRuns(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_ = store.Put(analysis.MustRunID("acme", "old"), newRun("acme", "old", analysis.RunSucceeded, now.Add(-2*time.Hour)))
	_ = store.Put(analysis.MustRunID("acme", "recent"), newRun("acme", "recent", analysis.RunFailed, now.Add(-10*time.Minute)))
	_ = store.Put(analysis.MustRunID("acme", "active"), newRun("acme", "active", analysis.RunRunning, time.Time{}))

	if n := store.Evict(now); n != 1 {
		t.Errorf("Evict = %d, want 1", n)
	}
	if _, err := store.Get(analysis.MustRunID("acme", "old")); !errors.Is(err, analysis.ErrRunNotFound) {
		t.Error("Expired run should be evicted")
	}
	for _, doc := range []string{"recent", "active"} {
		if _, err := store.Get(analysis.MustRunID("acme", doc)); err != nil {
			t.Errorf("%s run should be kept: %v", doc, err)
		}
	}

	// Active runs survive any amount of time.
	store.Evict(now.Add(1000 * time.Hour))
	if _, err := store.Get(analysis.MustRunID("acme", "active")); err != nil {
		t.Errorf("active run evicted: %v", err)
	}
}

func TestMemoryStateStore_ConcurrentRuns(t *testing.T) {
	store := NewMemoryStateStore(time.Hour)
	ids := []analysis.RunID{
		analysis.MustRunID("acme", "a"),
		analysis.MustRunID("acme", "b"),
		analysis.MustRunID("acme", "c"),
	}
	for _, id := range ids {
		_ = store.Begin(id, analysis.NewSharedState(id, "text", time.Now()))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id analysis.RunID) {
				defer wg.Done()
				_ = store.Update(id, func(s *analysis.SharedState) {
					s.Warnings = append(s.Warnings, "w")
				})
				_, _ = store.Get(id)
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		got, _ := store.Get(id)
		if len(got.Warnings) != 50 {
			t.Errorf("%v warnings = %d, want 50", id, len(got.Warnings))
		}
	}
}
