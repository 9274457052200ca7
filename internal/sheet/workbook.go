// Package sheet provides the xlsx-backed collaborators for a run: the
// parameter store, the tabular data source, and the run-log appender. All
// three read from and write to a single workbook file via excelize.
package sheet

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/evanrobinson2/olisync/internal/logging"
	"github.com/evanrobinson2/olisync/internal/params"
)

// Workbook addresses one xlsx file. The file is opened per call; runs are
// single threaded so there is no contention on the workbook.
type Workbook struct {
	path       string
	paramSheet string
	logSheet   string
}

// NewWorkbook creates a Workbook over path. paramSheet names the sheet
// holding the JSON parameter column, logSheet the sheet run logs are
// appended to.
func NewWorkbook(path, paramSheet, logSheet string) *Workbook {
	return &Workbook{path: path, paramSheet: paramSheet, logSheet: logSheet}
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	return f, nil
}

// ParameterCells returns the first column of the parameter sheet, top-down.
// Rows with no first cell contribute a blank cell, which the aggregator
// skips.
func (w *Workbook) ParameterCells(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(w.paramSheet)
	if err != nil {
		return nil, &params.ConfigurationError{
			Reason: fmt.Sprintf("parameter sheet %q not found: %v", w.paramSheet, err),
		}
	}

	cells := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			cells = append(cells, "")
			continue
		}
		cells = append(cells, row[0])
	}
	return cells, nil
}

// HeaderRow returns the cells of the 1-based headerRow of sheet.
func (w *Workbook) HeaderRow(ctx context.Context, sheet string, headerRow int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &params.ConfigurationError{
			Reason: fmt.Sprintf("input sheet %q not found: %v", sheet, err),
		}
	}
	if headerRow < 1 || headerRow > len(rows) {
		return nil, &params.ConfigurationError{
			Reason: fmt.Sprintf("input sheet %q has no row %d", sheet, headerRow),
		}
	}
	return rows[headerRow-1], nil
}

// DataRows returns every row after the 1-based headerRow of sheet. Cell
// values come back as the strings excelize renders; the table builder does
// no coercion on them.
func (w *Workbook) DataRows(ctx context.Context, sheet string, headerRow int) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &params.ConfigurationError{
			Reason: fmt.Sprintf("input sheet %q not found: %v", sheet, err),
		}
	}
	if headerRow >= len(rows) {
		return nil, nil
	}

	out := make([][]any, 0, len(rows)-headerRow)
	for _, row := range rows[headerRow:] {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		out = append(out, cells)
	}
	return out, nil
}

// AppendLog appends timestamped entries to the log sheet, creating the
// sheet on first use.
func (w *Workbook) AppendLog(entries []logging.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(w.logSheet)
	if err != nil {
		return fmt.Errorf("look up log sheet: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(w.logSheet); err != nil {
			return fmt.Errorf("create log sheet: %w", err)
		}
	}

	existing, err := f.GetRows(w.logSheet)
	if err != nil {
		return fmt.Errorf("read log sheet: %w", err)
	}

	row := len(existing) + 1
	for _, entry := range entries {
		tsCell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("address log row %d: %w", row, err)
		}
		msgCell, err := excelize.CoordinatesToCellName(2, row)
		if err != nil {
			return fmt.Errorf("address log row %d: %w", row, err)
		}
		if err := f.SetCellValue(w.logSheet, tsCell, entry.At.Format("2006-01-02 15:04:05")); err != nil {
			return fmt.Errorf("write log timestamp: %w", err)
		}
		if err := f.SetCellValue(w.logSheet, msgCell, entry.Message); err != nil {
			return fmt.Errorf("write log message: %w", err)
		}
		row++
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
