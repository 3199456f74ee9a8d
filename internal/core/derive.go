// Package core holds the row and category domain: ingested rows with
// their original cells, the values derived from those cells, and the
// errors shared across the service layer.
package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountTokens = []string{"amount", "debit", "credit", "value", "charge"}

// IsDateColumn reports whether a header names a date column.
func IsDateColumn(header string) bool {
	return strings.Contains(strings.ToLower(header), "date")
}

// IsAmountColumn reports whether a header names a monetary column.
func IsAmountColumn(header string) bool {
	lower := strings.ToLower(header)
	for _, tok := range amountTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Columns classifies a header set. A header is a description column when
// it is non-empty and neither a date nor an amount column.
type Columns struct {
	Date        []string
	Amount      []string
	Description []string
}

// DetectColumns classifies headers preserving their order.
func DetectColumns(headers []string) Columns {
	var c Columns
	for _, h := range headers {
		switch {
		case IsDateColumn(h):
			c.Date = append(c.Date, h)
		case IsAmountColumn(h):
			c.Amount = append(c.Amount, h)
		case strings.TrimSpace(h) != "":
			c.Description = append(c.Description, h)
		}
	}
	return c
}

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

// Bank exports are loose about padding and separator, so every layout
// uses the non-padded reference forms. Day-first variants come after
// their month-first twins, matching how ambiguous values are resolved.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"2006/1/2",
	"1-2-2006",
	"2-1-2006",
	"1/2/06",
	"2/1/06",
	"1-2-06",
	"2-1-06",
}

// ParseDate interprets a single cell as a calendar date.
//
// Examples:
//
//	"2024-01-15"      -> 2024-01-15
//	"15/01/2024"      -> 2024-01-15
//	"Jan 3rd, 2024"   -> no (ordinal stripped, layout still unknown)
//	"03/04/24"        -> 2024-03-04
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ExtractDate finds the first parseable date in the row, scanning date
// columns in their original order.
func ExtractDate(data RowData) (time.Time, bool) {
	for _, f := range data.Fields() {
		if !IsDateColumn(f.Name) {
			continue
		}
		if t, ok := ParseDate(f.Value); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount interprets a single cell as a signed amount. The column
// header decides the sign convention: credit columns are negated, debit
// columns are forced positive.
//
// Examples:
//
//	"(12.50)"  -> -12.50
//	"$1,204.9" -> 1204.9
//	"3.00" under header "Credit" -> -3.00
func ParseAmount(value, header string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Decimal{}, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, sym := range []string{",", "$", "£", "€"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = nonNumeric.ReplaceAllString(s, "")
	switch s {
	case "", "-", ".", "-.":
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	lower := strings.ToLower(header)
	if strings.Contains(lower, "credit") && !strings.Contains(lower, "debit") {
		d = d.Abs().Neg()
	} else if strings.Contains(lower, "debit") && d.IsNegative() {
		d = d.Abs()
	}
	return d, true
}

// ExtractAmount finds the first parseable amount in the row. Columns
// with a monetary header are tried first; when the row has none, every
// column is a candidate.
func ExtractAmount(data RowData) (decimal.Decimal, bool) {
	fields := data.Fields()
	candidates := fields[:0:0]
	for _, f := range fields {
		if IsAmountColumn(f.Name) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		candidates = fields
	}
	for _, f := range candidates {
		if d, ok := ParseAmount(f.Value, f.Name); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

// Description returns the first non-empty description cell, or the first
// non-empty cell of any kind when the row has no description columns.
func Description(data RowData) string {
	var fallback string
	for _, f := range data.Fields() {
		v := strings.TrimSpace(f.Value)
		if v == "" {
			continue
		}
		if !IsDateColumn(f.Name) && !IsAmountColumn(f.Name) {
			return v
		}
		if fallback == "" {
			fallback = v
		}
	}
	return fallback
}

// IsComplete reports whether both a date and an amount can be derived
// from the row. Incomplete rows stay mappable but are skipped by the
// monthly summary.
func IsComplete(data RowData) bool {
	if _, ok := ExtractDate(data); !ok {
		return false
	}
	_, ok := ExtractAmount(data)
	return ok
}

// MonthKey formats the month bucket used by summaries.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
