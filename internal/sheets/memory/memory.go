package memory

import (
	"context"
	"fmt"
	"sync"

	"dops/internal/core"
)

type row struct {
	entry   core.LedgerEntry
	version int64
}

// Store is an in-memory bookkeeping sheet used in tests and when no
// spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	rows  map[int64]row
	order []int64
}

func New() *Store {
	return &Store{rows: make(map[int64]row)}
}

func (s *Store) UpsertEntry(_ context.Context, e core.LedgerEntry, version int64) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.rows[e.ID] = row{entry: e, version: version}
	return fmt.Sprintf("mem:%d", e.ID), nil
}

func (s *Store) RemoveEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return nil
	}
	delete(s.rows, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Entries returns the stored entries in insertion order.
func (s *Store) Entries() []core.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id].entry)
	}
	return out
}

// Version returns the synced version for an entry, 0 when absent.
func (s *Store) Version(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].version
}
