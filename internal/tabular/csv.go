// Package tabular reads and writes expense data in CSV and XLSX form.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"spendlog/internal/core"
)

// DefaultCategory is assigned to imported rows with no category column
// or an empty category cell.
const DefaultCategory = "Misc"

// columns is the exported header, also the set of headers recognized on import.
var columns = []string{"Title", "Amount", "Category", "Date"}

// Row is one imported expense line before it is attached to an owner.
type Row struct {
	Title    string
	Amount   core.Money
	Category string
	Date     core.Date
}

// RowError reports the first unusable line of an import. Line numbers are
// 1-based and count the header.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// WriteCSV writes the expenses with a fixed header. Amounts are plain
// decimals and dates are "YYYY-MM-DD", so a file round-trips through ReadCSV.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range expenses {
		record := []string{e.Title, e.Amount.String(), e.Category, e.Date.String()}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses an uploaded file into rows. Columns are matched by header
// name, case-insensitively, in any order. A missing Title is kept empty, a
// missing Category becomes DefaultCategory and a missing date means today.
// The Amount column is required. The first bad line aborts the whole read
// with a RowError, nothing is returned from a partially valid file.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	amountCol, ok := idx["amount"]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", "Amount")
	}
	titleCol, hasTitle := idx["title"]
	categoryCol, hasCategory := idx["category"]
	dateCol, hasDate := idx["date"]

	field := func(record []string, col int) string {
		if col < len(record) {
			return strings.TrimSpace(record[col])
		}
		return ""
	}

	var rows []Row
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}

		var row Row

		cents, err := core.ParseDecimalToCents(field(record, amountCol))
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("amount: %w", err)}
		}
		row.Amount = core.Money{Cents: cents}

		if hasTitle {
			row.Title = field(record, titleCol)
		}

		row.Category = DefaultCategory
		if hasCategory {
			if c := field(record, categoryCol); c != "" {
				row.Category = c
			}
		}

		row.Date = core.Today()
		if hasDate {
			if raw := field(record, dateCol); raw != "" {
				d, err := core.ParseDate(raw)
				if err != nil {
					return nil, &RowError{Line: line, Err: fmt.Errorf("date %q: %w", raw, err)}
				}
				row.Date = d
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}
