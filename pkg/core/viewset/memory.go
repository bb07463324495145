package viewset

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps view sets in process memory.
// Useful for tests and dry runs where nothing should outlive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	seq     map[string]int
	next    int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), seq: make(map[string]int)}
}

// Begin implements Store.
func (s *MemoryStore) Begin(ctx context.Context, name string) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{store: s}, nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].Name] < s.seq[out[j].Name] })
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[name]; !ok {
		return ErrNotFound
	}
	delete(s.records, name)
	delete(s.seq, name)
	return nil
}

// Close does nothing.
func (s *MemoryStore) Close() error { return nil }

// Len returns the number of persisted sets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ Store = (*MemoryStore)(nil)

type memoryTx struct {
	store   *MemoryStore
	pending []Record
	done    bool
}

func (t *memoryTx) Save(ctx context.Context, rec Record) error {
	if t.done {
		return ErrTxDone
	}
	t.pending = append(t.pending, rec)
	return nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(t.pending))
	for _, r := range t.pending {
		if _, ok := s.records[r.Name]; ok || seen[r.Name] {
			return ErrConflict
		}
		seen[r.Name] = true
	}
	for _, r := range t.pending {
		s.next++
		s.records[r.Name] = r
		s.seq[r.Name] = s.next
	}
	t.done = true
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	t.done = true
	t.pending = nil
	return nil
}
