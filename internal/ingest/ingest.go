// Package ingest parses uploaded source files into row snapshots. The
// first record is the header row; every following record becomes one
// addressable row with its cells kept verbatim in column order.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"mappa/internal/core"
)

var (
	ErrEmptyFile       = errors.New("file has no data rows")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ReadSnapshot parses the named upload, dispatching on its extension.
// Supported types are .csv and .xlsx.
func ReadSnapshot(name string, r io.Reader) (core.Snapshot, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(name, r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(name, r)
	default:
		return core.Snapshot{}, fmt.Errorf("%s: %w", name, ErrUnsupportedType)
	}
}

// ReadCSV parses a CSV upload. Records may have ragged lengths: short
// rows are padded with empty cells, extra cells beyond the header are
// dropped.
func ReadCSV(name string, r io.Reader) (core.Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("parse csv %s: %w", name, err)
	}
	return fromRecords(name, records)
}

// ReadXLSX parses the first sheet of an Excel upload.
func ReadXLSX(name string, r io.Reader) (core.Snapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("open xlsx %s: %w", name, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read sheet %s of %s: %w", sheet, name, err)
	}
	return fromRecords(name, records)
}

func fromRecords(name string, records [][]string) (core.Snapshot, error) {
	if len(records) < 2 {
		return core.Snapshot{}, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}

	headers := records[0]
	snap := core.Snapshot{
		SourceFile: name,
		Headers:    append([]string(nil), headers...),
	}

	for i, record := range records[1:] {
		var data core.RowData
		for col, header := range headers {
			value := ""
			if col < len(record) {
				value = record[col]
			}
			data.Set(header, value)
		}
		snap.Rows = append(snap.Rows, core.NewRow(i, data))
	}
	snap.TotalRows = len(snap.Rows)
	return snap, nil
}
