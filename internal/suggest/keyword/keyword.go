// Package keyword implements a deterministic suggestion backend that
// matches transaction descriptions against a fixed keyword table. It
// needs no external service and is the default backend.
package keyword

import (
	"context"
	"strings"

	"mappa/internal/core"
	"mappa/internal/suggest"
)

type rule struct {
	category string
	keywords []string
}

// The table is ordered: earlier rules win. Categories must exist in the
// registry for a rule to fire, so a trimmed-down registry silently
// narrows the table.
var rules = []rule{
	{"Groceries", []string{"grocery", "groceries", "supermarket", "market", "aldi", "lidl", "tesco", "walmart", "costco"}},
	{"Food & Dining", []string{"restaurant", "cafe", "coffee", "pizza", "burger", "diner", "bakery", "bar ", "pub "}},
	{"Transportation", []string{"uber", "lyft", "taxi", "fuel", "gas station", "parking", "transit", "metro", "railway", "train"}},
	{"Travel", []string{"airline", "flight", "hotel", "airbnb", "booking.com", "hostel"}},
	{"Bills & Utilities", []string{"electric", "electricity", "water", "internet", "phone", "utility", "insurance", "rent"}},
	{"Entertainment", []string{"netflix", "spotify", "cinema", "theater", "steam", "game", "concert"}},
	{"Healthcare", []string{"pharmacy", "doctor", "dental", "hospital", "clinic"}},
	{"Clothing", []string{"clothing", "apparel", "shoes", "h&m", "zara"}},
	{"Education", []string{"tuition", "course", "udemy", "books", "bookstore", "school"}},
	{"Personal Care", []string{"salon", "barber", "spa", "gym", "fitness"}},
	{"Gifts & Donations", []string{"donation", "charity", "gift"}},
	{"Income", []string{"salary", "payroll", "deposit", "refund", "interest"}},
	{"Shopping", []string{"amazon", "ebay", "store", "shop", "mall"}},
}

type Suggester struct{}

// Ensure interface conformance
var _ suggest.Suggester = (*Suggester)(nil)

func New() *Suggester {
	return &Suggester{}
}

// Suggest scans the row's description for known keywords. Rows that
// match nothing fall back to "Other" when the registry has it, else to
// the first registered category.
func (s *Suggester) Suggest(ctx context.Context, row core.Row, categories []string) (string, error) {
	if len(categories) == 0 {
		return "", core.ErrSuggestionUnavailable
	}

	haystack := strings.ToLower(core.Description(row.Data))
	for _, r := range rules {
		canonical, ok := find(categories, r.category)
		if !ok {
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(haystack, kw) {
				return canonical, nil
			}
		}
	}

	if other, ok := find(categories, "Other"); ok {
		return other, nil
	}
	return categories[0], nil
}

func find(categories []string, name string) (string, bool) {
	for _, c := range categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}
