package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medscrub/internal/dataset"
)

// newTestTable builds a table from column declarations and rows.
func newTestTable(t *testing.T, cols []dataset.Column, rows ...dataset.Row) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(cols)
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, tbl.AppendRow(row))
	}
	return tbl
}

// day parses a canonical date into a present date cell.
func day(t *testing.T, s string) dataset.Value {
	t.Helper()
	d, err := time.Parse(dataset.DateLayout, s)
	require.NoError(t, err)
	return dataset.Date(d)
}

// cellAt returns the cell in the named column.
func cellAt(t *testing.T, tbl *dataset.Table, row int, column string) dataset.Value {
	t.Helper()
	idx, ok := tbl.ColumnIndex(column)
	require.True(t, ok, "column %q not in table", column)
	return tbl.At(row, idx)
}

// renderAt returns the output form of the cell in the named column.
func renderAt(t *testing.T, tbl *dataset.Table, row int, column string) string {
	t.Helper()
	return cellAt(t, tbl, row, column).Render()
}

// renderTable flattens the whole table to comparable row strings.
func renderTable(tbl *dataset.Table) []string {
	out := make([]string, 0, tbl.NumRows()+1)
	out = append(out, strings.Join(tbl.ColumnNames(), "|"))
	for row := 0; row < tbl.NumRows(); row++ {
		cells := make([]string, tbl.NumColumns())
		for col := 0; col < tbl.NumColumns(); col++ {
			cells[col] = tbl.At(row, col).Render()
		}
		out = append(out, strings.Join(cells, "|"))
	}
	return out
}
