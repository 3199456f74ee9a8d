// Package memory implements an in-process mapping destination, used as
// the default export backend and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mappa/internal/core"
	"mappa/internal/export"
)

type Store struct {
	mu    sync.Mutex
	items []core.MappedRow
}

// Ensure interface conformance
var _ export.MappingWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic reference.
func (s *Store) Append(_ context.Context, row core.MappedRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, row)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Rows returns everything written so far.
func (s *Store) Rows() []core.MappedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MappedRow, len(s.items))
	copy(out, s.items)
	return out
}
