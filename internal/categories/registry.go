// Package categories keeps the canonical category registry: an ordered,
// case-sensitive list of unique names with fuzzy-match protection against
// near-duplicate spellings.
package categories

import (
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"mappa/internal/core"
)

// SimilarityThreshold is the minimum normalized similarity at which a
// candidate is treated as a probable misspelling of an existing name.
const SimilarityThreshold = 0.7

// Defaults returns the seed categories for a fresh installation.
func Defaults() []string {
	return []string{
		"Food & Dining",
		"Groceries",
		"Transportation",
		"Shopping",
		"Clothing",
		"Bills & Utilities",
		"Entertainment",
		"Travel",
		"Healthcare",
		"Education",
		"Personal Care",
		"Gifts & Donations",
		"Business",
		"Income",
		"Other",
	}
}

// Registry is a thread-safe ordered set of category names. Names keep
// their insertion order and exact spelling; lookups that need leniency
// go through Canonical.
type Registry struct {
	mu    sync.RWMutex
	names []string
}

// NewRegistry builds a registry from the given names, dropping blanks
// and exact duplicates while keeping first-seen order.
func NewRegistry(names ...string) *Registry {
	r := &Registry{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || r.has(n) {
			continue
		}
		r.names = append(r.names, n)
	}
	return r
}

// List returns the names in registry order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Contains reports whether the exact name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(name)
}

func (r *Registry) has(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// Replace swaps the whole registry content, used when loading persisted
// names at startup.
func (r *Registry) Replace(names []string) {
	fresh := NewRegistry(names...)
	r.mu.Lock()
	r.names = fresh.names
	r.mu.Unlock()
}

// Canonical resolves a free-form name to its registered spelling. Exact
// matches win, then case-insensitive matches, then the closest fuzzy
// match at or above the similarity threshold.
func (r *Registry) Canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.has(name) {
		return name, true
	}
	for _, n := range r.names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	if best, score := r.closest(name); score >= SimilarityThreshold {
		return best, true
	}
	return "", false
}

// Add registers a candidate name. Exact duplicates are reported as
// already present without error. A candidate close to an existing name
// is rejected with a CorrectionPendingError until the caller confirms;
// confirmed candidates are appended with their exact spelling.
func (r *Registry) Add(candidate string, confirm bool) (core.AddCategoryResult, error) {
	name := strings.TrimSpace(candidate)
	if name == "" {
		return core.AddCategoryResult{}, core.ErrInvalidCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.has(name) {
		return core.AddCategoryResult{Name: name, Added: false, Categories: r.snapshot()}, nil
	}
	if !confirm {
		if best, score := r.closest(name); score >= SimilarityThreshold {
			return core.AddCategoryResult{}, &core.CorrectionPendingError{Candidate: name, Suggestion: best}
		}
	}
	r.names = append(r.names, name)
	return core.AddCategoryResult{Name: name, Added: true, Categories: r.snapshot()}, nil
}

func (r *Registry) snapshot() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// closest returns the most similar registered name and its score.
// Callers must hold at least the read lock.
func (r *Registry) closest(name string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, n := range r.names {
		score := Similarity(name, n)
		if score > bestScore {
			best, bestScore = n, score
		}
	}
	return best, bestScore
}

// Similarity scores two names in [0,1] using Levenshtein distance over
// their lowercased rune forms. 1 means equal ignoring case.
func Similarity(a, b string) float64 {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 1
	}
	maxLen := len([]rune(la))
	if n := len([]rune(lb)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(la, lb)
	return 1 - float64(dist)/float64(maxLen)
}
