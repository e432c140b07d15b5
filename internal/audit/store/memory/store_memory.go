package memory

import (
	"context"
	"sync"
	"time"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit"
)

// InMemoryStore is an append-only audit store for tests and local runs.
// It assigns timestamps at append time, mirroring the server-clock semantics
// of the Postgres store.
type InMemoryStore struct {
	mu       sync.RWMutex
	records  []audit.Record
	failWith error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// FailWith makes every subsequent Append return err. Tests use this to
// simulate a store rejecting writes.
func (s *InMemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *InMemoryStore) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.records) - limit
	if limit <= 0 || start < 0 {
		start = 0
	}
	out := make([]audit.Record, 0, len(s.records)-start)
	// Newest first, matching the Postgres ORDER BY timestamp DESC.
	for i := len(s.records) - 1; i >= start; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *InMemoryStore) ListByDocument(_ context.Context, collection audit.Collection, documentID string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.Collection == collection && r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len reports how many records have been appended.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
