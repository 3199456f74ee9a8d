package rows

import (
	"errors"
	"sync"
	"testing"

	"mappa/internal/core"
)

func testSnapshot(file string, n int) core.Snapshot {
	snap := core.Snapshot{
		SourceFile: file,
		Headers:    []string{"Date", "Description", "Amount"},
		TotalRows:  n,
	}
	for i := 0; i < n; i++ {
		snap.Rows = append(snap.Rows, core.NewRow(i, core.NewRowData(
			core.Field{Name: "Date", Value: "2024-01-01"},
			core.Field{Name: "Description", Value: "item"},
			core.Field{Name: "Amount", Value: "1.00"},
		)))
	}
	return snap
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	if s.HasFile() {
		t.Fatalf("expected no active file")
	}
	if _, err := s.Get(0); !errors.Is(err, core.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if _, _, err := s.SetCategory(0, "Food"); !errors.Is(err, core.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if _, err := s.Progress(); !errors.Is(err, core.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestStoreReplaceAndGet(t *testing.T) {
	s := NewStore()
	s.Replace(testSnapshot("bank.csv", 3))

	if !s.HasFile() || s.SourceFile() != "bank.csv" {
		t.Fatalf("expected bank.csv active")
	}
	row, err := s.Get(1)
	if err != nil {
		t.Fatalf("expected row, got %v", err)
	}
	if row.Index != 1 || row.Mapped || row.SourceFile != "bank.csv" {
		t.Fatalf("unexpected row %+v", row)
	}
	if _, err := s.Get(3); !errors.Is(err, core.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if _, err := s.Get(-1); !errors.Is(err, core.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestStoreSetCategory(t *testing.T) {
	s := NewStore()
	s.Replace(testSnapshot("bank.csv", 3))

	row, count, err := s.SetCategory(0, "Food")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !row.Mapped || row.Category == nil || *row.Category != "Food" {
		t.Fatalf("unexpected row %+v", row)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// Re-mapping replaces the category without growing the counter.
	row, count, err = s.SetCategory(0, "Travel")
	if err != nil {
		t.Fatalf("remap: %v", err)
	}
	if *row.Category != "Travel" || count != 1 {
		t.Fatalf("expected Travel/1, got %v/%d", *row.Category, count)
	}

	if _, _, err := s.SetCategory(9, "Food"); !errors.Is(err, core.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestStoreUnmapped(t *testing.T) {
	s := NewStore()
	s.Replace(testSnapshot("bank.csv", 5))
	if _, _, err := s.SetCategory(1, "Food"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, _, err := s.SetCategory(3, "Food"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got := s.Unmapped()
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStoreProgressConsistency(t *testing.T) {
	s := NewStore()
	s.Replace(testSnapshot("bank.csv", 50))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, _, err := s.SetCategory(i, "Food"); err != nil {
				t.Errorf("set %d: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		snap, err := s.Progress()
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		mapped := 0
		for _, r := range snap.Rows {
			if r.Mapped {
				mapped++
			}
		}
		if mapped != snap.MappedCount {
			t.Fatalf("torn snapshot: counted %d, reported %d", mapped, snap.MappedCount)
		}
	}
	wg.Wait()

	snap, err := s.Progress()
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if snap.MappedCount != 50 || snap.TotalRows != 50 {
		t.Fatalf("expected 50/50, got %d/%d", snap.MappedCount, snap.TotalRows)
	}
}

func TestStoreReplacePreservesMappedRows(t *testing.T) {
	s := NewStore()
	snap := testSnapshot("bank.csv", 2)
	snap.Rows[1] = snap.Rows[1].WithCategory("Food")
	s.Replace(snap)

	if s.MappedCount() != 1 {
		t.Fatalf("expected counter rebuilt from rows, got %d", s.MappedCount())
	}
	row, err := s.Get(1)
	if err != nil || !row.Mapped {
		t.Fatalf("expected mapped row, got %+v err=%v", row, err)
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.Replace(testSnapshot("bank.csv", 2))
	s.Clear()
	if s.HasFile() || s.MappedCount() != 0 {
		t.Fatalf("expected empty store")
	}
}
