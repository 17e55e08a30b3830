package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
)

// headerScanRows bounds how deep into a sheet the header search looks.
// Workbook exports sometimes stack a title or export banner above the data.
const headerScanRows = 10

// LoadXLSX reads the first sheet of a workbook that carries the expected
// header row. Rows above the header and fully empty rows are skipped.
func (l *Loader) LoadXLSX(path string) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("open workbook %s", path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			l.logger.Warn("Closing workbook",
				slog.String("path", path),
				slog.String("error", cerr.Error()))
		}
	}()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		headerIdx, ok := l.findHeaderRow(rows)
		if !ok {
			continue
		}
		tbl, err := l.tableFromRows(rows, headerIdx)
		if err != nil {
			return nil, err
		}
		l.logger.Info("Loaded input file",
			slog.String("path", path),
			slog.String("sheet", sheet),
			slog.Int("rows", tbl.NumRows()),
			slog.Int("columns", tbl.NumColumns()))
		return tbl, nil
	}

	return nil, apperrors.NewParsingError(
		fmt.Sprintf("no sheet in %s carries the expected header", path), nil)
}

// findHeaderRow scans the top of a sheet for a row naming enough declared
// columns to be the header.
func (l *Loader) findHeaderRow(rows [][]string) (int, bool) {
	need := 2
	if len(l.ruleset.Columns) < need {
		need = len(l.ruleset.Columns)
	}
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		matches := 0
		for _, cell := range rows[i] {
			if l.declared(strings.TrimSpace(cell)) {
				matches++
			}
		}
		if matches >= need {
			return i, true
		}
	}
	return 0, false
}

// tableFromRows builds a table from the sheet rows below the header. Sheet
// cells under an empty header cell are ignored; short rows are padded with
// absent cells.
func (l *Loader) tableFromRows(rows [][]string, headerIdx int) (*dataset.Table, error) {
	var columns []dataset.Column
	var cells []int
	for i, h := range rows[headerIdx] {
		if strings.TrimSpace(h) == "" {
			continue
		}
		columns = append(columns, l.columnFor(h))
		cells = append(cells, i)
	}

	tbl, err := dataset.NewTable(columns)
	if err != nil {
		return nil, apperrors.NewParsingError("workbook header", err)
	}

	for _, r := range rows[headerIdx+1:] {
		row := make(dataset.Row, len(columns))
		empty := true
		for ci, si := range cells {
			raw := ""
			if si < len(r) {
				raw = r[si]
			}
			if strings.TrimSpace(raw) != "" {
				empty = false
			}
			row[ci] = parseCell(raw, columns[ci].Kind)
		}
		if empty {
			continue
		}
		if err := tbl.AppendRow(row); err != nil {
			return nil, apperrors.NewParsingError("workbook row", err)
		}
	}
	return tbl, nil
}
