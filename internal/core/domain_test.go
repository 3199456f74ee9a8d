package core

import (
	"errors"
	"testing"
)

func TestRowValidate(t *testing.T) {
	food := "Food"
	empty := ""
	cases := []struct {
		r  Row
		ok bool
	}{
		{Row{Index: 0, Mapped: false}, true},
		{Row{Index: 3, Category: &food, Mapped: true}, true},
		{Row{Index: -1}, false},
		{Row{Index: 0, Category: &food, Mapped: false}, false}, // flag out of sync
		{Row{Index: 0, Mapped: true}, false},
		{Row{Index: 0, Category: &empty, Mapped: true}, false},
	}
	for i, tc := range cases {
		err := tc.r.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestWithCategory(t *testing.T) {
	r := NewRow(5, NewRowData(Field{"Description", "coffee"}))
	if r.Mapped || r.Category != nil {
		t.Fatalf("new row should be unmapped")
	}
	mapped := r.WithCategory("Food")
	if !mapped.Mapped || mapped.Category == nil || *mapped.Category != "Food" {
		t.Fatalf("expected mapped copy, got %+v", mapped)
	}
	if r.Mapped {
		t.Fatalf("original row mutated")
	}
}

func TestCorrectionPendingErrorIs(t *testing.T) {
	err := &CorrectionPendingError{Candidate: "Fod", Suggestion: "Food"}
	if !errors.Is(err, ErrCorrectionPending) {
		t.Fatalf("expected errors.Is match")
	}
	if errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("unexpected match against other sentinel")
	}
	var pending *CorrectionPendingError
	if !errors.As(err, &pending) || pending.Suggestion != "Food" {
		t.Fatalf("expected errors.As to recover suggestion")
	}
}

func TestRowExport(t *testing.T) {
	r := NewRow(2, NewRowData(
		Field{"Date", "2024-01-15"},
		Field{"Description", "grocery run"},
		Field{"Amount", "42.10"},
	)).WithCategory("Groceries")
	r.SourceFile = "jan.csv"

	m := r.Export()
	if m.SourceFile != "jan.csv" || m.RowIndex != 2 || m.Category != "Groceries" {
		t.Fatalf("unexpected export %+v", m)
	}
	if m.Description != "grocery run" {
		t.Fatalf("expected description, got %q", m.Description)
	}
	if m.Date == nil || m.Date.Format("2006-01-02") != "2024-01-15" {
		t.Fatalf("expected derived date, got %v", m.Date)
	}
	if m.Amount == nil || m.Amount.String() != "42.1" {
		t.Fatalf("expected derived amount, got %v", m.Amount)
	}

	bare := NewRow(0, NewRowData(Field{"Note", "no numbers here"})).Export()
	if bare.Date != nil || bare.Amount != nil {
		t.Fatalf("expected nil derived fields, got %+v", bare)
	}
}
