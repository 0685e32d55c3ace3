package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/susimind/pkg/susimind/internalerr"
	"github.com/cognicore/susimind/pkg/susimind/store"
)

// Store is an in-memory implementation of store.LogStore for tests and
// ephemeral engines.
type Store struct {
	mu   sync.RWMutex
	logs map[string][][]byte // oldest first
}

var _ store.LogStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{logs: make(map[string][][]byte)}
}

// Close implements store.LogStore.
func (s *Store) Close() error { return nil }

// Append implements store.LogStore.
func (s *Store) Append(ctx context.Context, client string, record []byte) error {
	if !json.Valid(record) {
		return fmt.Errorf("%w: record is not JSON", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[client] = append(s.logs[client], copyBytes(record))
	return nil
}

// Tail implements store.LogStore.
func (s *Store) Tail(ctx context.Context, client string, n int) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[client]
	if n <= 0 || n > len(log) {
		n = len(log)
	}
	out := make([][]byte, 0, n)
	for i := len(log) - 1; i >= len(log)-n; i-- {
		out = append(out, copyBytes(log[i]))
	}
	return out, nil
}

// Clients implements store.LogStore.
func (s *Store) Clients(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.logs))
	for c := range s.logs {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Rewrite implements store.LogStore.
func (s *Store) Rewrite(ctx context.Context, client string, records [][]byte) error {
	cp := make([][]byte, len(records))
	for i, r := range records {
		cp[i] = copyBytes(r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[client] = cp
	return nil
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
