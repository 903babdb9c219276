package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// DefaultRetention is how long terminal runs stay queryable.
const DefaultRetention = 24 * time.Hour

// MemoryStateStore keeps run state in process memory. The map lock is held
// only for lookups; each run has its own lock, so independent runs never
// contend.
type MemoryStateStore struct {
	mu        sync.RWMutex
	entries   map[analysis.RunID]*stateEntry
	retention time.Duration
}

type stateEntry struct {
	mu    sync.Mutex
	state *analysis.SharedState
}

// NewMemoryStateStore creates a store. Non-positive retention means DefaultRetention.
func NewMemoryStateStore(retention time.Duration) *MemoryStateStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryStateStore{
		entries:   make(map[analysis.RunID]*stateEntry),
		retention: retention,
	}
}

// Retention returns how long terminal runs are kept.
func (s *MemoryStateStore) Retention() time.Duration {
	return s.retention
}

// Put stores a copy of state, replacing whatever was held for id.
func (s *MemoryStateStore) Put(id analysis.RunID, state *analysis.SharedState) error {
	if state == nil {
		return fmt.Errorf("put run %s: nil state", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &stateEntry{state: state.Snapshot()}
	return nil
}

// Begin registers state for id unless a non-terminal run already holds it.
func (s *MemoryStateStore) Begin(id analysis.RunID, state *analysis.SharedState) error {
	if state == nil {
		return fmt.Errorf("begin run %s: nil state", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[id]; ok {
		existing.mu.Lock()
		status := existing.state.Status
		existing.mu.Unlock()
		if !status.IsTerminal() {
			return &analysis.ValidationError{
				Field:  "run_id",
				Reason: fmt.Sprintf("run %s is still %s", id, status),
				Err:    analysis.ErrRunActive,
			}
		}
	}
	s.entries[id] = &stateEntry{state: state.Snapshot()}
	return nil
}

// Get returns a snapshot of the run.
func (s *MemoryStateStore) Get(id analysis.RunID) (*analysis.SharedState, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.Snapshot(), nil
}

// Update runs fn against the live state under the run's lock.
func (s *MemoryStateStore) Update(id analysis.RunID, fn func(*analysis.SharedState)) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry.state)
	return nil
}

// Remove drops the run.
func (s *MemoryStateStore) Remove(id analysis.RunID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// List returns the held run ids sorted by their string form.
func (s *MemoryStateStore) List() []analysis.RunID {
	s.mu.RLock()
	ids := make([]analysis.RunID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Evict removes terminal runs that finished at least retention before now.
// Active runs are never evicted. It returns the number of runs removed.
func (s *MemoryStateStore) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		entry.mu.Lock()
		expired := entry.state.Status.IsTerminal() &&
			!entry.state.FinishedAt.IsZero() &&
			now.Sub(entry.state.FinishedAt) >= s.retention
		entry.mu.Unlock()
		if expired {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStateStore) entry(id analysis.RunID) (*stateEntry, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, analysis.ErrRunNotFound)
	}
	return entry, nil
}
