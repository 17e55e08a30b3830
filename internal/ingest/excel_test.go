package ingest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
)

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestLoadXLSX(t *testing.T) {
	loader := NewLoader(testRuleset(), testLogger())
	path := filepath.Join(t.TempDir(), "admissions.xlsx")

	writeWorkbook(t, path, "Admissions", [][]interface{}{
		{"Name", "Age", "Date of Admission"},
		{"Bobby Jackson", "30", "2024-01-31"},
		{"Solo"},
	})

	tbl, err := loader.LoadXLSX(path)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	require.Equal(t, 3, tbl.NumColumns())

	assert.Equal(t, "Bobby Jackson", tbl.At(0, 0).Render())
	assert.Equal(t, "30", tbl.At(0, 1).Render())
	assert.Equal(t, "2024-01-31", tbl.At(0, 2).Render())

	assert.Equal(t, "Solo", tbl.At(1, 0).Render())
	assert.True(t, tbl.At(1, 1).Missing())
	assert.True(t, tbl.At(1, 2).Missing())
}

func TestLoadXLSXSkipsBannerAboveHeader(t *testing.T) {
	loader := NewLoader(testRuleset(), testLogger())
	path := filepath.Join(t.TempDir(), "export.xlsx")

	writeWorkbook(t, path, "Export", [][]interface{}{
		{"Hospital Admissions Export"},
		{},
		{"Name", "Age"},
		{"Bobby", "30"},
	})

	tbl, err := loader.LoadXLSX(path)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, []string{"Name", "Age"}, tbl.ColumnNames())
	assert.Equal(t, "Bobby", tbl.At(0, 0).Render())
}

func TestLoadXLSXSkipsEmptyRows(t *testing.T) {
	loader := NewLoader(testRuleset(), testLogger())
	path := filepath.Join(t.TempDir(), "gaps.xlsx")

	writeWorkbook(t, path, "Data", [][]interface{}{
		{"Name", "Age"},
		{"Bobby", "30"},
		{"", ""},
		{"Anne", "41"},
	})

	tbl, err := loader.LoadXLSX(path)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "Anne", tbl.At(1, 0).Render())
}

func TestLoadXLSXFindsHeaderOnLaterSheet(t *testing.T) {
	loader := NewLoader(testRuleset(), testLogger())
	path := filepath.Join(t.TempDir(), "multi.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Notes"))
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]interface{}{"internal use only"}))
	_, err := f.NewSheet("Records")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Records", "A1", &[]interface{}{"Name", "Age"}))
	require.NoError(t, f.SetSheetRow("Records", "A2", &[]interface{}{"Bobby", "30"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := loader.LoadXLSX(path)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, "Bobby", tbl.At(0, 0).Render())
}

func TestLoadXLSXNoHeader(t *testing.T) {
	loader := NewLoader(testRuleset(), testLogger())
	path := filepath.Join(t.TempDir(), "junk.xlsx")

	writeWorkbook(t, path, "Junk", [][]interface{}{
		{"foo", "bar"},
		{"1", "2"},
	})

	_, err := loader.LoadXLSX(path)
	requireErrType(t, err, apperrors.ErrTypeParsing)
	assert.Contains(t, err.Error(), "expected header")
}

func TestLoadXLSXTypesCells(t *testing.T) {
	loader := NewLoader(testRuleset(), testLogger())
	path := filepath.Join(t.TempDir(), "typed.xlsx")

	writeWorkbook(t, path, "Typed", [][]interface{}{
		{"Name", "Age"},
		{"Bobby", "not a number"},
	})

	tbl, err := loader.LoadXLSX(path)
	require.NoError(t, err)

	kind, ok := tbl.ColumnKind("Age")
	require.True(t, ok)
	assert.Equal(t, dataset.KindFloat, kind)
	assert.Equal(t, dataset.StateCoerced, tbl.At(0, 1).State())
}
