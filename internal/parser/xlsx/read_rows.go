// Package xlsx reads tabular data out of .xlsx workbooks.
//
// The first non-empty row of the selected sheet is the header; every later
// row is data. Reading is best-effort in the same spirit as the rest of the
// loader: short rows are padded, fully empty rows are skipped, cell text is
// space-trimmed. Typing is left to the schema package.
package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet selects a worksheet by name or zero-based index. Name takes
// precedence when both are set; the zero value selects the first sheet.
type Sheet struct {
	Name  string
	Index int
}

// SheetArg interprets a CLI sheet argument: an integer selects by zero-based
// index, anything else selects by name. Empty selects the first sheet.
func SheetArg(s string) Sheet {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sheet{}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Sheet{Index: n}
	}
	return Sheet{Name: s}
}

func (s Sheet) String() string {
	if s.Name != "" {
		return s.Name
	}
	return strconv.Itoa(s.Index)
}

// ReadSheet opens the workbook at path and returns the selected sheet's
// header row and data rows.
//
// Errors:
//   - The file not opening as a workbook (corrupt, wrong format, missing).
//   - The requested sheet name/index not existing.
//
// An empty sheet (no header row) returns empty headers and no rows, not an
// error; the caller decides whether an empty load is worth reporting.
func ReadSheet(path string, sheet Sheet) (headers []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	name, err := resolveSheet(f, sheet)
	if err != nil {
		return nil, nil, err
	}

	iter, err := f.Rows(name)
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %s: %w", name, err)
	}
	defer iter.Close()

	first := true
	for iter.Next() {
		cells, err := iter.Columns()
		if err != nil {
			return headers, rows, fmt.Errorf("sheet %s: read row: %w", name, err)
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if emptyRow(cells) {
			continue
		}

		if first {
			headers = cells
			first = false
			continue
		}

		// Pad short rows so row[i] always aligns with headers[i].
		if len(cells) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, cells)
			cells = padded
		}
		rows = append(rows, cells)
	}
	if err := iter.Error(); err != nil {
		return headers, rows, fmt.Errorf("sheet %s: %w", name, err)
	}

	return headers, rows, nil
}

func resolveSheet(f *excelize.File, sheet Sheet) (string, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	if sheet.Name != "" {
		for _, n := range names {
			if n == sheet.Name {
				return n, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found", sheet.Name)
	}

	if sheet.Index < 0 || sheet.Index >= len(names) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d)", sheet.Index, len(names))
	}
	return names[sheet.Index], nil
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
