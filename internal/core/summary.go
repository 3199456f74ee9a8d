package core

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryTable holds per-category monthly totals. Marshaling orders
// categories case-insensitively and writes totals as plain JSON numbers.
type CategoryTable map[string]map[string]decimal.Decimal

// Summary is the monthly overview across every mapped row. Rows whose
// cells yield no date or no amount are counted in Skipped and excluded
// from the table.
type Summary struct {
	Categories  CategoryTable `json:"categories"`
	Months      []string      `json:"months"`
	TotalMapped int           `json:"total_mapped"`
	Skipped     int           `json:"skipped"`
}

// BuildSummary aggregates mapped rows into per-category monthly totals.
// The input is expected to contain mapped rows only.
func BuildSummary(rows []Row) Summary {
	s := Summary{
		Categories: CategoryTable{},
		Months:     []string{},
	}
	months := map[string]bool{}
	for _, r := range rows {
		if r.Category == nil {
			continue
		}
		s.TotalMapped++
		date, okDate := ExtractDate(r.Data)
		amount, okAmount := ExtractAmount(r.Data)
		if !okDate || !okAmount {
			s.Skipped++
			continue
		}
		month := MonthKey(date)
		months[month] = true
		byMonth, ok := s.Categories[*r.Category]
		if !ok {
			byMonth = map[string]decimal.Decimal{}
			s.Categories[*r.Category] = byMonth
		}
		byMonth[month] = byMonth[month].Add(amount)
	}
	for m := range months {
		s.Months = append(s.Months, m)
	}
	sort.Strings(s.Months)
	return s
}

// Total sums every cell of the table.
func (t CategoryTable) Total() decimal.Decimal {
	var total decimal.Decimal
	for _, byMonth := range t {
		for _, amount := range byMonth {
			total = total.Add(amount)
		}
	}
	return total
}

func (t CategoryTable) MarshalJSON() ([]byte, error) {
	cats := make([]string, 0, len(t))
	for c := range t {
		cats = append(cats, c)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		li, lj := strings.ToLower(cats[i]), strings.ToLower(cats[j])
		if li != lj {
			return li < lj
		}
		return cats[i] < cats[j]
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range cats {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		byMonth := t[cat]
		months := make([]string, 0, len(byMonth))
		for m := range byMonth {
			months = append(months, m)
		}
		sort.Strings(months)

		buf.WriteByte('{')
		for j, m := range months {
			if j > 0 {
				buf.WriteByte(',')
			}
			mk, err := json.Marshal(m)
			if err != nil {
				return nil, err
			}
			buf.Write(mk)
			buf.WriteByte(':')
			buf.WriteString(byMonth[m].String())
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
