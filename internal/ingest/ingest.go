// Package ingest decodes uploaded delivery-monitoring exports into a
// generic row-oriented table with named columns. No schema is enforced
// here; column semantics are the resolver's problem.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a decoded upload: one header row plus zero or more data rows.
// Rows are padded to the header width so positional access is safe.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Decode parses an uploaded spreadsheet. CSV files are detected by
// extension; everything else goes through the xlsx reader.
func Decode(filename string, data []byte) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var records [][]string
	var err error
	if ext == ".csv" {
		records, err = decodeCSV(data)
	} else {
		records, err = decodeXLSX(data)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: headers, Rows: rows}, nil
}

func decodeCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	// Monitoring exports are frequently ragged; pad rather than reject.
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func decodeXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Sample returns the first data row, or nil for a header-only table. The
// column resolver uses it to recognise ratio-shaped cells.
func (t *Table) Sample() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// Preview returns up to n head rows for the raw-data display.
func (t *Table) Preview(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// Cell returns the trimmed cell at idx, or "" when idx is out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
