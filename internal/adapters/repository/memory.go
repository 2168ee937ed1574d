package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/metrics"
)

// MemoryStore keeps records in a map guarded by a RWMutex, remembering the
// order in which persons were first saved.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.PersonVerificationRecord
	order   []string
	closed  bool
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]model.PersonVerificationRecord),
	}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity > 0 {
		s.records = make(map[string]model.PersonVerificationRecord, cfg.capacity)
		s.order = make([]string, 0, cfg.capacity)
	}
	return s
}

// Save inserts or replaces a record.
func (s *MemoryStore) Save(_ context.Context, rec model.PersonVerificationRecord) error { //nolint:gocritic // hugeParam: records are values
	if rec.PersonID == "" {
		return ErrEmptyPerson
	}
	start := time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if _, ok := s.records[rec.PersonID]; !ok {
		s.order = append(s.order, rec.PersonID)
	}
	s.records[rec.PersonID] = rec
	n := len(s.records)
	s.mu.Unlock()

	metrics.UpdateStoreRecords(n)
	metrics.RecordStoreSaveLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

// Get returns the record for a person.
func (s *MemoryStore) Get(_ context.Context, personID string) (model.PersonVerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[personID]
	if !ok {
		return model.PersonVerificationRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all records in first-saved order.
func (s *MemoryStore) List(_ context.Context) ([]model.PersonVerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PersonVerificationRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close marks the store closed; stored records stay readable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
