package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
)

// CSVWriter writes cleaned tables as CSV files.
type CSVWriter struct {
	// bom prefixes output with a UTF-8 byte order mark so spreadsheet
	// tools open the file with the right encoding.
	bom bool
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(bom bool) *CSVWriter {
	return &CSVWriter{bom: bom}
}

// WriteTable writes the table to path, creating parent directories as
// needed. Missing cells render as empty fields.
func (w *CSVWriter) WriteTable(path string, tbl *dataset.Table) error {
	slog.Info("Writing cleaned table",
		slog.String("path", path),
		slog.Int("rows", tbl.NumRows()),
		slog.Int("columns", tbl.NumColumns()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create output directory for %s", path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create output file %s", path), err)
	}
	defer file.Close()

	if w.bom {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write byte order mark to %s", path), err)
		}
	}

	cw := csv.NewWriter(file)
	if err := cw.Write(tbl.ColumnNames()); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write header to %s", path), err)
	}

	record := make([]string, tbl.NumColumns())
	for row := 0; row < tbl.NumRows(); row++ {
		for col := 0; col < tbl.NumColumns(); col++ {
			record[col] = tbl.At(row, col).Render()
		}
		if err := cw.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write row %d to %s", row, path), err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("flush output file %s", path), err)
	}
	return nil
}
