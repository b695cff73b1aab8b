package store

import (
	"context"
	"sync"
)

// MemoryJobStore is a goroutine-safe JobStore backed by a map.
// Records are stored encoded so callers never share mutable state with it.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

var _ JobStore = (*MemoryJobStore)(nil)

// NewMemoryJobStore creates an empty MemoryJobStore.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string][]byte)}
}

func (s *MemoryJobStore) SaveJob(_ context.Context, rec *JobRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[rec.ID] = data
	return nil
}

func (s *MemoryJobStore) GetJob(_ context.Context, id string) (*JobRecord, error) {
	s.mu.RLock()
	data, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return decodeRecord(data)
}

func (s *MemoryJobStore) ListJobs(_ context.Context, filter JobFilter) ([]*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*JobRecord
	for _, data := range s.jobs {
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		if filter.match(rec) {
			out = append(out, rec)
		}
	}
	return sortAndLimit(out, filter.Limit), nil
}

func (s *MemoryJobStore) Close() error { return nil }
