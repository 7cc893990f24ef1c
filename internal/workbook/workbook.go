// Package workbook reads and writes tabular xlsx workbooks via excelize.
// Sheets are exposed as ordered row maps keyed by the header row, mirroring
// how the browser side consumes them: columns are derived dynamically from
// the first row of each sheet, and an empty sheet is a valid, distinct state
// rather than an error.
package workbook

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// SampleRows is the number of leading rows kept as a structural sample in
// scan summaries.
const SampleRows = 3

// Sheet is one parsed worksheet. Columns come from the header row; Rows hold
// the data rows keyed by column name. Cells beyond the header width are
// dropped, short rows are padded with empty strings.
type Sheet struct {
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"-"`
}

// RowCount returns the number of data rows.
func (s *Sheet) RowCount() int { return len(s.Rows) }

// Empty reports whether the sheet has no data rows.
func (s *Sheet) Empty() bool { return len(s.Rows) == 0 }

// Sample returns up to n leading data rows.
func (s *Sheet) Sample(n int) []map[string]string {
	if n > len(s.Rows) {
		n = len(s.Rows)
	}

	return s.Rows[:n]
}

// Workbook is a fully parsed xlsx file.
type Workbook struct {
	Filename string    `json:"filename"`
	Sheets   []*Sheet  `json:"sheets"`
	ParsedAt time.Time `json:"parsedAt"`
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}

	return names
}

// Sheet returns the named sheet, or nil when absent.
func (w *Workbook) Sheet(name string) *Sheet {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s
		}
	}

	return nil
}

// FirstSheet returns the first sheet, or nil for a sheetless workbook.
func (w *Workbook) FirstSheet() *Sheet {
	if len(w.Sheets) == 0 {
		return nil
	}

	return w.Sheets[0]
}

// Read parses the workbook at path.
func Read(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %q: %w", path, err)
	}
	defer f.Close()

	return parse(f, path)
}

// ReadFrom parses a workbook from r. filename is recorded for reporting only.
func ReadFrom(r io.Reader, filename string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %q: %w", filename, err)
	}
	defer f.Close()

	return parse(f, filename)
}

func parse(f *excelize.File, filename string) (*Workbook, error) {
	wb := &Workbook{Filename: filename, ParsedAt: time.Now()}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q of %q: %w", name, filename, err)
		}

		wb.Sheets = append(wb.Sheets, buildSheet(name, rows))
	}

	return wb, nil
}

// buildSheet converts raw cell rows into a header-keyed sheet. A sheet
// without a header row has neither columns nor data.
func buildSheet(name string, raw [][]string) *Sheet {
	sheet := &Sheet{Name: name}
	if len(raw) == 0 {
		return sheet
	}

	sheet.Columns = raw[0]

	for _, cells := range raw[1:] {
		row := make(map[string]string, len(sheet.Columns))

		for i, col := range sheet.Columns {
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}

		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet
}

// Write renders columns and rows to a single-sheet workbook at path,
// overwriting any existing file.
func Write(path, sheetName string, columns []string, rows []map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"

	if sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return fmt.Errorf("naming sheet %q: %w", sheetName, err)
		}
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}

	if err := setRow(f, sheetName, 1, header); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]any, len(columns))
		for j, col := range columns {
			cells[j] = row[col]
		}

		if err := setRow(f, sheetName, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %q: %w", path, err)
	}

	return nil
}

func setRow(f *excelize.File, sheet string, n int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", n, err)
	}

	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", n, err)
	}

	return nil
}
