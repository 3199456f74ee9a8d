package keyword

import (
	"context"
	"errors"
	"testing"

	"mappa/internal/core"
)

func rowWithDescription(desc string) core.Row {
	return core.NewRow(0, core.NewRowData(
		core.Field{Name: "Date", Value: "2024-01-05"},
		core.Field{Name: "Description", Value: desc},
		core.Field{Name: "Amount", Value: "10.00"},
	))
}

func TestSuggestMatchesKeywords(t *testing.T) {
	categories := []string{"Food & Dining", "Groceries", "Transportation", "Other"}
	cases := []struct {
		desc string
		want string
	}{
		{"WHOLE FOODS SUPERMARKET 123", "Groceries"},
		{"Cafe Milano", "Food & Dining"},
		{"UBER *TRIP", "Transportation"},
		{"something unrecognizable", "Other"},
	}
	s := New()
	for _, tc := range cases {
		got, err := s.Suggest(context.Background(), rowWithDescription(tc.desc), categories)
		if err != nil {
			t.Fatalf("%q: %v", tc.desc, err)
		}
		if got != tc.want {
			t.Fatalf("%q expected %s, got %s", tc.desc, tc.want, got)
		}
	}
}

func TestSuggestRespectsRegistrySpelling(t *testing.T) {
	s := New()
	got, err := s.Suggest(context.Background(), rowWithDescription("uber ride"), []string{"transportation"})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got != "transportation" {
		t.Fatalf("expected registry spelling, got %q", got)
	}
}

func TestSuggestSkipsUnregisteredRules(t *testing.T) {
	// Groceries keywords match, but the registry has no Groceries.
	s := New()
	got, err := s.Suggest(context.Background(), rowWithDescription("supermarket"), []string{"Other"})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got != "Other" {
		t.Fatalf("expected Other fallback, got %q", got)
	}
}

func TestSuggestFallsBackToFirstCategory(t *testing.T) {
	s := New()
	got, err := s.Suggest(context.Background(), rowWithDescription("zzz"), []string{"Alpha", "Beta"})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if got != "Alpha" {
		t.Fatalf("expected Alpha, got %q", got)
	}
}

func TestSuggestNoCategories(t *testing.T) {
	s := New()
	if _, err := s.Suggest(context.Background(), rowWithDescription("coffee"), nil); !errors.Is(err, core.ErrSuggestionUnavailable) {
		t.Fatalf("expected ErrSuggestionUnavailable, got %v", err)
	}
}
