// Package rows holds the in-memory working set for the active source
// file. The store serves reads without touching the database; durable
// state lives in internal/storage and the two are kept in step by the
// mapping service.
package rows

import (
	"sync"

	"mappa/internal/core"
)

// Store is the thread-safe row set of the single active file. Row
// indexes are positions in the slice, so lookups and category updates
// stay O(1); the mapped counter is maintained incrementally and never
// decreases while a file is active.
type Store struct {
	mu          sync.RWMutex
	sourceFile  string
	headers     []string
	rows        []core.Row
	mappedCount int
}

// NewStore returns an empty store with no active file.
func NewStore() *Store {
	return &Store{}
}

// Replace installs a snapshot as the active file, discarding any
// previous working set.
func (s *Store) Replace(snap core.Snapshot) {
	rows := make([]core.Row, len(snap.Rows))
	copy(rows, snap.Rows)
	mapped := 0
	for i := range rows {
		rows[i].SourceFile = snap.SourceFile
		if rows[i].Mapped {
			mapped++
		}
	}
	s.mu.Lock()
	s.sourceFile = snap.SourceFile
	s.headers = append([]string(nil), snap.Headers...)
	s.rows = rows
	s.mappedCount = mapped
	s.mu.Unlock()
}

// Clear drops the active file.
func (s *Store) Clear() {
	s.mu.Lock()
	s.sourceFile = ""
	s.headers = nil
	s.rows = nil
	s.mappedCount = 0
	s.mu.Unlock()
}

// HasFile reports whether a file is active.
func (s *Store) HasFile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceFile != ""
}

// SourceFile returns the active file name, empty when none.
func (s *Store) SourceFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceFile
}

// Headers returns the active file's column headers in order.
func (s *Store) Headers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.headers...)
}

// Get returns the row at the given index.
func (s *Store) Get(index int) (core.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sourceFile == "" {
		return core.Row{}, core.ErrFileNotFound
	}
	if index < 0 || index >= len(s.rows) {
		return core.Row{}, core.ErrRowNotFound
	}
	return s.rows[index], nil
}

// SetCategory assigns a category to a row and returns the updated row
// together with the new mapped count. Re-mapping an already mapped row
// replaces the category and leaves the counter untouched.
func (s *Store) SetCategory(index int, category string) (core.Row, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sourceFile == "" {
		return core.Row{}, 0, core.ErrFileNotFound
	}
	if index < 0 || index >= len(s.rows) {
		return core.Row{}, 0, core.ErrRowNotFound
	}
	if !s.rows[index].Mapped {
		s.mappedCount++
	}
	name := category
	s.rows[index].Category = &name
	s.rows[index].Mapped = true
	return s.rows[index], s.mappedCount, nil
}

// List returns a copy of every row in index order.
func (s *Store) List() []core.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Unmapped returns the indexes of rows without a category, ascending.
func (s *Store) Unmapped() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for i := range s.rows {
		if !s.rows[i].Mapped {
			out = append(out, i)
		}
	}
	return out
}

// MappedCount returns the number of mapped rows.
func (s *Store) MappedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mappedCount
}

// Progress returns a consistent snapshot of the active file. The row
// slice is copied under the read lock, so a concurrent SetCategory can
// never produce a snapshot where the counter and the rows disagree.
func (s *Store) Progress() (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sourceFile == "" {
		return core.Snapshot{}, core.ErrFileNotFound
	}
	rows := make([]core.Row, len(s.rows))
	copy(rows, s.rows)
	return core.Snapshot{
		SourceFile:  s.sourceFile,
		Headers:     append([]string(nil), s.headers...),
		Rows:        rows,
		TotalRows:   len(rows),
		MappedCount: s.mappedCount,
	}, nil
}
