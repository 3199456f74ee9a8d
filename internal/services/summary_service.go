package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"mappa/internal/cache"
	"mappa/internal/core"
	"mappa/internal/storage"
)

const (
	summaryCacheSize = 4
	summaryCacheTTL  = 30 * time.Second
)

// SummaryService aggregates mapped rows across all stored files. Results are
// cached briefly; every write bumps the version so the next read recomputes
// instead of serving a stale table.
type SummaryService struct {
	storage *storage.SQLiteRepository
	cache   *cache.LRUCache[core.Summary]
	version atomic.Int64
}

func NewSummaryService(repo *storage.SQLiteRepository) *SummaryService {
	return &SummaryService{
		storage: repo,
		cache:   cache.NewLRUCache[core.Summary](summaryCacheSize, summaryCacheTTL),
	}
}

// Summarize returns per-category monthly totals over all mapped rows.
func (s *SummaryService) Summarize(ctx context.Context) (core.Summary, error) {
	key := fmt.Sprintf("summary@%d", s.version.Load())
	if sum, ok := s.cache.Get(key); ok {
		return sum, nil
	}

	mapped, err := s.storage.LoadAllMappedRows(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load mapped rows: %w", err)
	}
	sum := core.BuildSummary(mapped)
	s.cache.Set(key, sum)
	return sum, nil
}

// Invalidate marks cached summaries stale. Called after every mutation that
// can change totals.
func (s *SummaryService) Invalidate() {
	s.version.Add(1)
}
