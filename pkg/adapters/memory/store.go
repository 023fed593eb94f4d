package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/cartography/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunRecord),
	}
}

// Save keeps a deep copy of the record.
func (s *Store) Save(ctx context.Context, record *domain.RunRecord) error {
	copied := record.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[record.RunID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (s *Store) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return record.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns archived runs ordered by start time.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*domain.RunRecord, 0, len(s.data))
	for _, r := range s.data {
		records = append(records, r)
	}
	slices.SortFunc(records, compareRecords)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.RunID
	}
	return ids, nil
}

func compareRecords(a, b *domain.RunRecord) int {
	if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
		return c
	}
	if a.RunID < b.RunID {
		return -1
	}
	if a.RunID > b.RunID {
		return 1
	}
	return 0
}
