package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mappa/internal/amqp"
	"mappa/internal/categories"
	"mappa/internal/core"
	"mappa/internal/rows"
	"mappa/internal/storage"
	"mappa/internal/suggest"
)

// MappingService orchestrates row mapping across the in-memory working set,
// SQLite and AMQP. Every mutation funnels through the service and runs under
// a single writer lock; reads go straight to the row store and stay
// concurrent.
type MappingService struct {
	store      *rows.Store
	registry   *categories.Registry
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	suggester  suggest.Suggester
	summaries  *SummaryService

	mu sync.Mutex
}

func NewMappingService(store *rows.Store, registry *categories.Registry, repo *storage.SQLiteRepository, amqpClient *amqp.Client, suggester suggest.Suggester, summaries *SummaryService) *MappingService {
	return &MappingService{
		store:      store,
		registry:   registry,
		storage:    repo,
		amqpClient: amqpClient,
		suggester:  suggester,
		summaries:  summaries,
	}
}

// EnsureCategories loads the persisted category list into the registry,
// seeding and persisting the defaults on first run.
func (s *MappingService) EnsureCategories(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.storage.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	if len(names) == 0 {
		names = categories.Defaults()
		if err := s.storage.SaveCategories(ctx, names); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		slog.InfoContext(ctx, "Seeded default categories", "count", len(names))
	}
	s.registry.Replace(names)
	return nil
}

// Resume loads the active snapshot into the row store, if one exists.
func (s *MappingService) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok, err := s.storage.LoadActiveSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load active snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	s.store.Replace(snap)
	slog.InfoContext(ctx, "Resumed active snapshot",
		"source_file", snap.SourceFile,
		"total_rows", snap.TotalRows,
		"mapped_count", snap.MappedCount)
	return nil
}

// Upload persists a freshly parsed snapshot and makes it the active file.
// When the same file was uploaded before, assignments are carried over per
// row index, but only where the stored row data is identical, so a changed
// file never resurrects stale categories.
func (s *MappingService) Upload(ctx context.Context, snap core.Snapshot) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.storage.LoadSnapshot(ctx, snap.SourceFile)
	switch {
	case err == nil:
		restored := mergeMappings(&snap, stored)
		if restored > 0 {
			slog.InfoContext(ctx, "Restored mappings from previous session",
				"source_file", snap.SourceFile, "restored", restored)
		}
	case errors.Is(err, core.ErrFileNotFound):
		// First upload of this file.
	default:
		return core.Snapshot{}, fmt.Errorf("load stored snapshot: %w", err)
	}

	if err := s.storage.SaveSnapshot(ctx, snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	s.store.Replace(snap)
	s.invalidateSummaries()

	slog.InfoContext(ctx, "File uploaded",
		"source_file", snap.SourceFile,
		"total_rows", snap.TotalRows,
		"mapped_count", snap.MappedCount)
	return snap, nil
}

// mergeMappings copies assignments from stored onto fresh for every index
// whose original data is unchanged. Returns the number of restored mappings.
func mergeMappings(fresh *core.Snapshot, stored core.Snapshot) int {
	restored := 0
	for i := range fresh.Rows {
		if i >= len(stored.Rows) {
			break
		}
		prev := stored.Rows[i]
		if prev.Category == nil || !prev.Data.Equal(fresh.Rows[i].Data) {
			continue
		}
		fresh.Rows[i] = fresh.Rows[i].WithCategory(*prev.Category)
		restored++
	}
	fresh.MappedCount = restored
	return restored
}

// Progress returns a consistent copy of the active snapshot. When nothing
// was ever uploaded it returns an empty snapshot, not an error.
func (s *MappingService) Progress() (core.Snapshot, error) {
	snap, err := s.store.Progress()
	if errors.Is(err, core.ErrFileNotFound) {
		return core.Snapshot{Rows: []core.Row{}}, nil
	}
	return snap, err
}

// Row returns a copy of one row from the active snapshot.
func (s *MappingService) Row(index int) (core.Row, error) {
	return s.store.Get(index)
}

// Unmapped returns the indices of unmapped rows in ascending order.
func (s *MappingService) Unmapped() []int {
	return s.store.Unmapped()
}

// HasFile reports whether a snapshot is loaded.
func (s *MappingService) HasFile() bool {
	return s.store.HasFile()
}

// MapRow assigns a registered category to a row. The SQLite update commits
// before the call returns; only then does the in-memory row flip, so an
// acknowledged mapping survives a crash. The mapped counter adjusts only on
// the unmapped to mapped transition.
func (s *MappingService) MapRow(ctx context.Context, index int, category string) (core.MapResult, error) {
	name := strings.TrimSpace(category)
	if name == "" {
		return core.MapResult{}, core.ErrInvalidCategory
	}
	if !s.registry.Contains(name) {
		return core.MapResult{}, fmt.Errorf("category %q: %w", name, core.ErrUnknownCategory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Get(index); err != nil {
		return core.MapResult{}, err
	}
	sourceFile := s.store.SourceFile()

	// Durable write first, then in-memory visibility.
	if err := s.storage.UpdateRowCategory(ctx, sourceFile, index, name); err != nil {
		return core.MapResult{}, fmt.Errorf("persist mapping: %w", err)
	}
	row, mapped, err := s.store.SetCategory(index, name)
	if err != nil {
		return core.MapResult{}, err
	}
	s.invalidateSummaries()

	if err := s.publishRowMapped(ctx, sourceFile, index, name); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mapped event",
			"source_file", sourceFile, "row_index", index, "error", err)
		// Don't fail the request - the mapping is saved locally
	}

	return core.MapResult{Row: row, MappedCount: mapped}, nil
}

// SuggestRow asks the configured suggester for a category for one row. The
// suggester is called exactly once per invocation; retrying is the caller's
// decision.
func (s *MappingService) SuggestRow(ctx context.Context, index int) (string, error) {
	row, err := s.store.Get(index)
	if err != nil {
		return "", err
	}
	if s.suggester == nil {
		return "", fmt.Errorf("no suggester configured: %w", core.ErrSuggestionUnavailable)
	}
	return s.suggester.Suggest(ctx, row, s.registry.List())
}

// Categories returns the registered category names in registry order.
func (s *MappingService) Categories() []string {
	return s.registry.List()
}

// CanonicalCategory resolves a loosely spelled name to its registered form.
func (s *MappingService) CanonicalCategory(name string) (string, bool) {
	return s.registry.Canonical(name)
}

// AddCategory registers a category and persists the updated list. confirm
// bypasses the near-duplicate check.
func (s *MappingService) AddCategory(ctx context.Context, name string, confirm bool) (core.AddCategoryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.registry.List()
	res, err := s.registry.Add(name, confirm)
	if err != nil {
		return res, err
	}
	if res.Added {
		if err := s.storage.SaveCategories(ctx, res.Categories); err != nil {
			s.registry.Replace(prior)
			return core.AddCategoryResult{}, fmt.Errorf("persist categories: %w", err)
		}
		slog.InfoContext(ctx, "Category added", "category", res.Name)
	}
	return res, nil
}

// ResetFile deletes a file's rows from persistence. When the active file is
// reset the row store is cleared as well; other files stay untouched.
func (s *MappingService) ResetFile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.DeleteFile(ctx, name); err != nil {
		return err
	}
	if s.store.SourceFile() == name {
		s.store.Clear()
	}
	s.invalidateSummaries()

	slog.InfoContext(ctx, "File reset", "source_file", name)
	return nil
}

// ListFiles returns the stored files, most recently uploaded first.
func (s *MappingService) ListFiles(ctx context.Context) ([]storage.FileInfo, error) {
	return s.storage.ListFiles(ctx)
}

func (s *MappingService) publishRowMapped(ctx context.Context, sourceFile string, index int, category string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping mapped event")
		return nil
	}

	return s.amqpClient.PublishRowMapped(ctx, sourceFile, index, category)
}

func (s *MappingService) invalidateSummaries() {
	if s.summaries != nil {
		s.summaries.Invalidate()
	}
}

// Close closes both storage and AMQP connections
func (s *MappingService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close mapping service: %v", errs)
	}

	return nil
}
