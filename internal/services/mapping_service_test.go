package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"mappa/internal/categories"
	"mappa/internal/core"
	"mappa/internal/ingest"
	"mappa/internal/rows"
	"mappa/internal/storage"
	"mappa/internal/suggest"
)

type stubSuggester struct {
	suggest func(row core.Row) (string, error)
}

func (s *stubSuggester) Suggest(_ context.Context, row core.Row, _ []string) (string, error) {
	return s.suggest(row)
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "mappa.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newMappingService(t *testing.T, repo *storage.SQLiteRepository, suggester suggest.Suggester) *MappingService {
	t.Helper()

	svc := NewMappingService(rows.NewStore(), categories.NewRegistry(), repo, nil, suggester, NewSummaryService(repo))
	if err := svc.EnsureCategories(context.Background()); err != nil {
		t.Fatalf("ensure categories: %v", err)
	}
	return svc
}

func uploadCSV(t *testing.T, svc *MappingService, name, data string) core.Snapshot {
	t.Helper()

	parsed, err := ingest.ReadCSV(name, strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	snap, err := svc.Upload(context.Background(), parsed)
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return snap
}

const bankCSV = `Date,Description,Amount
2024-01-05,Market,5
2024-01-20,Cafe,10
2024-02-01,Bus,3
`

func TestUploadAndProgress(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	snap := uploadCSV(t, svc, "bank.csv", bankCSV)
	if snap.TotalRows != 3 || snap.MappedCount != 0 {
		t.Fatalf("expected 3 rows, 0 mapped, got %d/%d", snap.TotalRows, snap.MappedCount)
	}

	progress, err := svc.Progress()
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.SourceFile != "bank.csv" {
		t.Errorf("expected source file %q, got %q", "bank.csv", progress.SourceFile)
	}
	if len(progress.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(progress.Rows))
	}
	for i, row := range progress.Rows {
		if row.Index != i {
			t.Errorf("row %d carries index %d", i, row.Index)
		}
		if row.Mapped || row.Category != nil {
			t.Errorf("row %d should start unmapped", i)
		}
	}
	if got, _ := progress.Rows[1].Data.Get("Description"); got != "Cafe" {
		t.Errorf("expected row 1 description %q, got %q", "Cafe", got)
	}
}

func TestProgressWithoutUpload(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	progress, err := svc.Progress()
	if err != nil {
		t.Fatalf("expected empty progress, got error: %v", err)
	}
	if progress.TotalRows != 0 || progress.MappedCount != 0 || len(progress.Rows) != 0 {
		t.Errorf("expected zero counts, got %+v", progress)
	}
}

func TestMapRowValidation(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	if _, err := svc.MapRow(context.Background(), 0, "Groceries"); !errors.Is(err, core.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound before upload, got %v", err)
	}

	uploadCSV(t, svc, "bank.csv", bankCSV)

	cases := []struct {
		index    int
		category string
		want     error
	}{
		{0, "", core.ErrInvalidCategory},
		{0, "   ", core.ErrInvalidCategory},
		{0, "Lunar Credits", core.ErrUnknownCategory},
		{0, "groceries", core.ErrUnknownCategory}, // registry is case-sensitive
		{7, "Groceries", core.ErrRowNotFound},
		{-1, "Groceries", core.ErrRowNotFound},
	}
	for i, c := range cases {
		if _, err := svc.MapRow(context.Background(), c.index, c.category); !errors.Is(err, c.want) {
			t.Errorf("case %d expected %v, got %v", i, c.want, err)
		}
	}
}

func TestMapRowCounter(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)
	uploadCSV(t, svc, "bank.csv", bankCSV)

	res, err := svc.MapRow(context.Background(), 0, "Groceries")
	if err != nil {
		t.Fatalf("map row 0: %v", err)
	}
	if !res.Row.Mapped || res.Row.Category == nil || *res.Row.Category != "Groceries" {
		t.Fatalf("expected row mapped to Groceries, got %+v", res.Row)
	}
	if res.MappedCount != 1 {
		t.Errorf("expected count 1, got %d", res.MappedCount)
	}

	if res, err = svc.MapRow(context.Background(), 2, "Transportation"); err != nil || res.MappedCount != 2 {
		t.Fatalf("expected count 2, got %d (%v)", res.MappedCount, err)
	}

	// Remapping an already mapped row replaces the category, not the count.
	res, err = svc.MapRow(context.Background(), 0, "Food & Dining")
	if err != nil {
		t.Fatalf("remap row 0: %v", err)
	}
	if *res.Row.Category != "Food & Dining" {
		t.Errorf("expected remapped category, got %q", *res.Row.Category)
	}
	if res.MappedCount != 2 {
		t.Errorf("expected count to stay 2, got %d", res.MappedCount)
	}
}

func TestMapRowSurvivesRestart(t *testing.T) {
	repo := newTestRepo(t)

	svc := newMappingService(t, repo, nil)
	uploadCSV(t, svc, "bank.csv", bankCSV)
	if _, err := svc.MapRow(context.Background(), 1, "Food & Dining"); err != nil {
		t.Fatalf("map row: %v", err)
	}

	// A fresh service over the same database stands in for a restart.
	restarted := newMappingService(t, repo, nil)
	if err := restarted.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}

	progress, err := restarted.Progress()
	if err != nil {
		t.Fatalf("progress after resume: %v", err)
	}
	if progress.SourceFile != "bank.csv" || progress.MappedCount != 1 {
		t.Fatalf("expected resumed bank.csv with 1 mapped, got %q/%d", progress.SourceFile, progress.MappedCount)
	}
	row, err := restarted.Row(1)
	if err != nil {
		t.Fatalf("row after resume: %v", err)
	}
	if row.Category == nil || *row.Category != "Food & Dining" {
		t.Errorf("expected mapping to survive restart, got %+v", row)
	}
}

func TestUploadResumesIdenticalRows(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	uploadCSV(t, svc, "bank.csv", bankCSV)
	for _, idx := range []int{0, 2} {
		if _, err := svc.MapRow(context.Background(), idx, "Groceries"); err != nil {
			t.Fatalf("map row %d: %v", idx, err)
		}
	}

	// Same bytes again: both assignments come back.
	snap := uploadCSV(t, svc, "bank.csv", bankCSV)
	if snap.MappedCount != 2 {
		t.Fatalf("expected 2 restored mappings, got %d", snap.MappedCount)
	}

	// Row 2 changed, row 0 identical: only row 0 keeps its category.
	changed := strings.Replace(bankCSV, "2024-02-01,Bus,3", "2024-02-01,Train,4", 1)
	snap = uploadCSV(t, svc, "bank.csv", changed)
	if snap.MappedCount != 1 {
		t.Fatalf("expected 1 restored mapping, got %d", snap.MappedCount)
	}
	if row, _ := svc.Row(0); row.Category == nil || *row.Category != "Groceries" {
		t.Errorf("expected unchanged row 0 to stay mapped, got %+v", row)
	}
	if row, _ := svc.Row(2); row.Mapped {
		t.Errorf("expected changed row 2 to arrive unmapped, got %+v", row)
	}
}

func TestUploadEmptySnapshot(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	snap, err := svc.Upload(context.Background(), core.Snapshot{SourceFile: "empty.csv", Rows: []core.Row{}})
	if err != nil {
		t.Fatalf("upload empty snapshot: %v", err)
	}
	if snap.TotalRows != 0 || snap.MappedCount != 0 {
		t.Errorf("expected zero counts, got %+v", snap)
	}
	progress, err := svc.Progress()
	if err != nil || progress.SourceFile != "empty.csv" {
		t.Errorf("expected empty.csv active, got %q (%v)", progress.SourceFile, err)
	}
}

func TestResetFile(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	uploadCSV(t, svc, "a.csv", bankCSV)
	if _, err := svc.MapRow(context.Background(), 0, "Groceries"); err != nil {
		t.Fatalf("map a.csv row: %v", err)
	}
	uploadCSV(t, svc, "b.csv", bankCSV)
	if _, err := svc.MapRow(context.Background(), 1, "Groceries"); err != nil {
		t.Fatalf("map b.csv row: %v", err)
	}

	// Resetting an inactive file leaves the active one alone.
	if err := svc.ResetFile(context.Background(), "a.csv"); err != nil {
		t.Fatalf("reset a.csv: %v", err)
	}
	progress, err := svc.Progress()
	if err != nil || progress.SourceFile != "b.csv" || progress.MappedCount != 1 {
		t.Fatalf("expected b.csv untouched, got %q/%d (%v)", progress.SourceFile, progress.MappedCount, err)
	}
	files, err := svc.ListFiles(context.Background())
	if err != nil || len(files) != 1 || files[0].Name != "b.csv" {
		t.Fatalf("expected only b.csv stored, got %+v (%v)", files, err)
	}

	// Resetting the active file clears the working set.
	if err := svc.ResetFile(context.Background(), "b.csv"); err != nil {
		t.Fatalf("reset b.csv: %v", err)
	}
	if svc.HasFile() {
		t.Error("expected row store to be cleared")
	}

	if err := svc.ResetFile(context.Background(), "missing.csv"); !errors.Is(err, core.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestAddCategory(t *testing.T) {
	repo := newTestRepo(t)
	svc := newMappingService(t, repo, nil)

	res, err := svc.AddCategory(context.Background(), "Rent", false)
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if !res.Added || res.Categories[len(res.Categories)-1] != "Rent" {
		t.Fatalf("expected Rent appended, got %+v", res)
	}

	// Exact duplicate is a no-op success.
	res, err = svc.AddCategory(context.Background(), "Rent", false)
	if err != nil || res.Added {
		t.Fatalf("expected exists result, got %+v (%v)", res, err)
	}

	// Near-duplicates need confirmation.
	_, err = svc.AddCategory(context.Background(), "Grocries", false)
	var pending *core.CorrectionPendingError
	if !errors.As(err, &pending) || !errors.Is(err, core.ErrCorrectionPending) {
		t.Fatalf("expected correction pending, got %v", err)
	}
	if pending.Suggestion != "Groceries" {
		t.Errorf("expected suggestion %q, got %q", "Groceries", pending.Suggestion)
	}

	res, err = svc.AddCategory(context.Background(), "Grocries", true)
	if err != nil || !res.Added {
		t.Fatalf("expected confirmed add, got %+v (%v)", res, err)
	}

	if _, err := svc.AddCategory(context.Background(), "  ", false); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}

	// Custom categories survive a restart.
	restarted := newMappingService(t, repo, nil)
	list := restarted.Categories()
	for _, want := range []string{"Rent", "Grocries"} {
		found := false
		for _, name := range list {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q in restored categories %v", want, list)
		}
	}
}

func TestMapRowWithAddedCategory(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)
	uploadCSV(t, svc, "bank.csv", bankCSV)

	if _, err := svc.AddCategory(context.Background(), "Rent", false); err != nil {
		t.Fatalf("add category: %v", err)
	}
	res, err := svc.MapRow(context.Background(), 0, "Rent")
	if err != nil {
		t.Fatalf("map with added category: %v", err)
	}
	if *res.Row.Category != "Rent" {
		t.Errorf("expected Rent, got %q", *res.Row.Category)
	}
}
