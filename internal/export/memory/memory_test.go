package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mappa/internal/core"
)

func TestAppend(t *testing.T) {
	s := New()

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("42.10")
	ref, err := s.Append(context.Background(), core.MappedRow{
		SourceFile:  "bank.csv",
		RowIndex:    2,
		Description: "grocery run",
		Category:    "Groceries",
		Date:        &date,
		Amount:      &amount,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("expected mem:1, got %q", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].Category != "Groceries" || rows[0].RowIndex != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if _, err := s.Append(context.Background(), core.MappedRow{SourceFile: "bank.csv", RowIndex: 3, Category: "Other"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(s.Rows()) != 2 {
		t.Fatalf("expected 2 rows")
	}
}
