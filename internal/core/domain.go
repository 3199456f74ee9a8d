package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Row is a single record ingested from a source file. Index is the
	// 0-based position of the record in the file and never changes once
	// assigned. Data holds the original cell values exactly as read.
	Row struct {
		Index      int     `json:"row_index"`
		Data       RowData `json:"original_data"`
		Category   *string `json:"category"`
		Mapped     bool    `json:"mapped"`
		SourceFile string  `json:"source_file,omitempty"`
	}

	// Snapshot is the durable state of one uploaded file: every row plus
	// the derived progress counters.
	Snapshot struct {
		SourceFile  string   `json:"source_file"`
		Headers     []string `json:"headers,omitempty"`
		Rows        []Row    `json:"rows"`
		TotalRows   int      `json:"total_rows"`
		MappedCount int      `json:"mapped_count"`
	}

	// MapResult is returned after a row has been assigned a category and
	// the assignment persisted.
	MapResult struct {
		Row         Row `json:"row"`
		MappedCount int `json:"mapped_count"`
	}

	// AddCategoryResult reports what happened to a submitted category name.
	AddCategoryResult struct {
		Name       string   `json:"name"`
		Added      bool     `json:"added"`
		Categories []string `json:"categories"`
	}

	// RowError records a single row failure during a bulk run.
	RowError struct {
		RowIndex int    `json:"row_index"`
		Message  string `json:"message"`
	}

	// AutoMapReport is the outcome of one auto-mapping run. MappedCount
	// counts rows actually mapped by the run; rows that failed are listed
	// in Errors and left untouched.
	AutoMapReport struct {
		RunID       string     `json:"run_id"`
		MappedCount int        `json:"mapped_count"`
		Errors      []RowError `json:"errors"`
	}

	// MappedRow is the export view of a categorized row with its derived
	// fields. Date and Amount are nil when the original cells could not
	// be interpreted.
	MappedRow struct {
		SourceFile  string
		RowIndex    int
		Description string
		Category    string
		Date        *time.Time
		Amount      *decimal.Decimal
	}
)

var (
	ErrInvalidCategory       = errors.New("invalid category")
	ErrUnknownCategory       = errors.New("unknown category")
	ErrRowNotFound           = errors.New("row not found")
	ErrFileNotFound          = errors.New("file not found")
	ErrSuggestionUnavailable = errors.New("suggestion unavailable")
	ErrCorrectionPending     = errors.New("correction pending")
)

// CorrectionPendingError is returned when a submitted category name is
// close to an existing one and the caller has not confirmed the new
// spelling. It matches ErrCorrectionPending via errors.Is.
type CorrectionPendingError struct {
	Candidate  string
	Suggestion string
}

func (e *CorrectionPendingError) Error() string {
	return fmt.Sprintf("category %q looks like %q: confirm to add anyway", e.Candidate, e.Suggestion)
}

func (e *CorrectionPendingError) Is(target error) bool {
	return target == ErrCorrectionPending
}

// Validate checks the internal consistency of a row.
func (r Row) Validate() error {
	if r.Index < 0 {
		return fmt.Errorf("negative row index %d", r.Index)
	}
	if r.Mapped != (r.Category != nil) {
		return fmt.Errorf("row %d: mapped flag does not match category", r.Index)
	}
	if r.Category != nil && *r.Category == "" {
		return fmt.Errorf("row %d: %w", r.Index, ErrInvalidCategory)
	}
	return nil
}

// NewRow builds an unmapped row.
func NewRow(index int, data RowData) Row {
	return Row{Index: index, Data: data}
}

// WithCategory returns a copy of the row with the category assigned.
func (r Row) WithCategory(name string) Row {
	r.Category = &name
	r.Mapped = true
	return r
}

// Export derives the flat view used by downstream writers.
func (r Row) Export() MappedRow {
	m := MappedRow{
		SourceFile:  r.SourceFile,
		RowIndex:    r.Index,
		Description: Description(r.Data),
	}
	if r.Category != nil {
		m.Category = *r.Category
	}
	if d, ok := ExtractDate(r.Data); ok {
		m.Date = &d
	}
	if a, ok := ExtractAmount(r.Data); ok {
		m.Amount = &a
	}
	return m
}
