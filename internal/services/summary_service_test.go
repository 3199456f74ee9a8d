package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSummarizeMonthlyTotals(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)
	uploadCSV(t, svc, "bank.csv", bankCSV)

	for idx := 0; idx < 3; idx++ {
		if _, err := svc.MapRow(context.Background(), idx, "Groceries"); err != nil {
			t.Fatalf("map row %d: %v", idx, err)
		}
	}

	sum, err := svc.summaries.Summarize(context.Background())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	groceries, ok := sum.Categories["Groceries"]
	if !ok {
		t.Fatalf("expected Groceries in summary, got %v", sum.Categories)
	}
	if got := groceries["2024-01"]; !got.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected 2024-01 total 15, got %s", got)
	}
	if got := groceries["2024-02"]; !got.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 2024-02 total 3, got %s", got)
	}
	if len(sum.Months) != 2 || sum.Months[0] != "2024-01" || sum.Months[1] != "2024-02" {
		t.Errorf("expected ascending months, got %v", sum.Months)
	}
	if sum.TotalMapped != 3 || sum.Skipped != 0 {
		t.Errorf("expected 3 mapped and 0 skipped, got %d/%d", sum.TotalMapped, sum.Skipped)
	}
}

func TestSummarizeCountsUnparseableRows(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)
	uploadCSV(t, svc, "bank.csv", "Date,Description,Amount\n2024-01-05,Market,5\nsoon,Cafe,unknown\n")

	for idx := 0; idx < 2; idx++ {
		if _, err := svc.MapRow(context.Background(), idx, "Groceries"); err != nil {
			t.Fatalf("map row %d: %v", idx, err)
		}
	}

	sum, err := svc.summaries.Summarize(context.Background())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.TotalMapped != 2 {
		t.Errorf("expected both rows counted, got %d", sum.TotalMapped)
	}
	if sum.Skipped != 1 {
		t.Errorf("expected 1 skipped row, got %d", sum.Skipped)
	}
	if got := sum.Categories["Groceries"]["2024-01"]; !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected only the parseable row in the table, got %s", got)
	}
}

func TestSummarizeSpansFiles(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)

	uploadCSV(t, svc, "january.csv", "Date,Description,Amount\n2024-01-05,Market,5\n")
	if _, err := svc.MapRow(context.Background(), 0, "Groceries"); err != nil {
		t.Fatalf("map january row: %v", err)
	}

	uploadCSV(t, svc, "february.csv", "Date,Description,Amount\n2024-02-01,Market,7\n")
	if _, err := svc.MapRow(context.Background(), 0, "Groceries"); err != nil {
		t.Fatalf("map february row: %v", err)
	}

	sum, err := svc.summaries.Summarize(context.Background())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.TotalMapped != 2 {
		t.Errorf("expected rows from both files, got %d", sum.TotalMapped)
	}
	if got := sum.Categories["Groceries"]["2024-02"]; !got.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected february total 7, got %s", got)
	}
}

func TestSummarizeSeesNewMappings(t *testing.T) {
	svc := newMappingService(t, newTestRepo(t), nil)
	uploadCSV(t, svc, "bank.csv", bankCSV)

	if _, err := svc.MapRow(context.Background(), 0, "Groceries"); err != nil {
		t.Fatalf("map row 0: %v", err)
	}
	sum, err := svc.summaries.Summarize(context.Background())
	if err != nil || sum.TotalMapped != 1 {
		t.Fatalf("expected 1 mapped, got %d (%v)", sum.TotalMapped, err)
	}

	// A second read after another write must not serve the cached table.
	if _, err := svc.MapRow(context.Background(), 1, "Food & Dining"); err != nil {
		t.Fatalf("map row 1: %v", err)
	}
	sum, err = svc.summaries.Summarize(context.Background())
	if err != nil {
		t.Fatalf("summarize after write: %v", err)
	}
	if sum.TotalMapped != 2 {
		t.Errorf("expected the new mapping visible, got %d", sum.TotalMapped)
	}
	if _, ok := sum.Categories["Food & Dining"]; !ok {
		t.Errorf("expected Food & Dining in summary, got %v", sum.Categories)
	}
}
