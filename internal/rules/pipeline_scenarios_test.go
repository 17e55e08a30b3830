package rules

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	"medscrub/internal/pipeline"
)

func hospitalColumns() []dataset.Column {
	return []dataset.Column{
		{Name: "Name", Kind: dataset.KindText},
		{Name: "Age", Kind: dataset.KindFloat},
		{Name: "Gender", Kind: dataset.KindCategory},
		{Name: "Blood Type", Kind: dataset.KindCategory},
		{Name: "Medical Condition", Kind: dataset.KindCategory},
		{Name: "Date of Admission", Kind: dataset.KindDate},
		{Name: "Doctor", Kind: dataset.KindText},
		{Name: "Hospital", Kind: dataset.KindText},
		{Name: "Insurance Provider", Kind: dataset.KindCategory},
		{Name: "Billing Amount", Kind: dataset.KindFloat},
		{Name: "Room Number", Kind: dataset.KindFloat},
		{Name: "Admission Type", Kind: dataset.KindCategory},
		{Name: "Discharge Date", Kind: dataset.KindDate},
		{Name: "Medication", Kind: dataset.KindCategory},
		{Name: "Test Results", Kind: dataset.KindCategory},
	}
}

// hospitalRow builds a valid admission record and applies the overrides. The
// room number keeps otherwise identical records distinct.
func hospitalRow(t *testing.T, room float64, overrides map[string]dataset.Value) dataset.Row {
	t.Helper()
	cells := map[string]dataset.Value{
		"Name":               dataset.Text("Bobby Jackson"),
		"Age":                dataset.Float(30),
		"Gender":             dataset.Category("Male"),
		"Blood Type":         dataset.Category("B-"),
		"Medical Condition":  dataset.Category("Cancer"),
		"Date of Admission":  day(t, "2024-01-31"),
		"Doctor":             dataset.Text("Matthew Smith"),
		"Hospital":           dataset.Text("Sons and Miller"),
		"Insurance Provider": dataset.Category("Blue Cross"),
		"Billing Amount":     dataset.Float(18856.28),
		"Room Number":        dataset.Float(room),
		"Admission Type":     dataset.Category("Urgent"),
		"Discharge Date":     day(t, "2024-02-02"),
		"Medication":         dataset.Category("Paracetamol"),
		"Test Results":       dataset.Category("Normal"),
	}
	for col, v := range overrides {
		if _, ok := cells[col]; !ok {
			t.Fatalf("override names unknown column %q", col)
		}
		cells[col] = v
	}
	cols := hospitalColumns()
	row := make(dataset.Row, len(cols))
	for i, c := range cols {
		row[i] = cells[c.Name]
	}
	return row
}

// messyAdmissions builds 25 records: 20 clean ones with varied rooms,
// genders and charges, four records each carrying one defect, and one exact
// duplicate.
func messyAdmissions(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(hospitalColumns())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		gender := "Male"
		if i >= 15 {
			gender = "Female"
		}
		require.NoError(t, tbl.AppendRow(hospitalRow(t, float64(101+i), map[string]dataset.Value{
			"Gender":         dataset.Category(gender),
			"Billing Amount": dataset.Float(float64(1000 * (i + 1))),
		})))
	}

	badName := hospitalRow(t, 201, map[string]dataset.Value{
		"Name": dataset.Text("jOHN o'BRIEN-smith"),
	})
	require.NoError(t, tbl.AppendRow(badName))
	require.NoError(t, tbl.AppendRow(hospitalRow(t, 202, map[string]dataset.Value{
		"Gender": dataset.Category("NaN"),
	})))
	require.NoError(t, tbl.AppendRow(hospitalRow(t, 203, map[string]dataset.Value{
		"Billing Amount": dataset.Float(-500),
	})))
	require.NoError(t, tbl.AppendRow(hospitalRow(t, 204, map[string]dataset.Value{
		"Date of Admission": day(t, "2024-05-10"),
		"Discharge Date":    day(t, "2024-05-01"),
	})))
	require.NoError(t, tbl.AppendRow(append(dataset.Row(nil), badName...)))

	return tbl
}

// scrubRuleset is the default ruleset without the identifier drop, so names
// survive to the output and a cleaned table can run through again.
func scrubRuleset() *config.Ruleset {
	rs := config.DefaultRuleset()
	rs.Imputation.Drop = nil
	return rs
}

func runPipeline(t *testing.T, tbl *dataset.Table, rs *config.Ruleset, datePolicy string) (*pipeline.Report, error) {
	t.Helper()
	reg := pipeline.NewRegistry()
	require.NoError(t, Register(reg, rs, datePolicy))
	runner := pipeline.NewRunner(reg, slog.Default())
	return runner.Run(context.Background(), tbl, "admissions.csv")
}

func TestPipelineCleansMessyAdmissions(t *testing.T) {
	tbl := messyAdmissions(t)

	report, err := runPipeline(t, tbl, scrubRuleset(), config.DatePolicySwap)
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusCompleted, report.Status)
	assert.Equal(t, 25, report.RowsBefore)
	assert.Equal(t, 24, report.RowsAfter)
	assert.Equal(t, 24, tbl.NumRows())
	assert.Equal(t, 18, tbl.NumColumns(), "three derived columns appended")

	// The duplicate went, everything else stayed in order.
	assert.Equal(t, 1, report.CountFor("dedup", pipeline.ActionRowsRemoved))

	// The badly cased name was repaired in place.
	assert.Equal(t, "John O'Brien-Smith", renderAt(t, tbl, 20, "Name"))
	assert.Equal(t, 1, report.CountFor("text_normalize_name", pipeline.ActionCellsNormalized))

	// The literal "NaN" gender became absent and then took the mode, the
	// configured strategy for Gender.
	assert.Equal(t, "Male", renderAt(t, tbl, 21, "Gender"))
	assert.Equal(t, 1, report.CountFor("categorical_validate_gender", pipeline.ActionCellsInvalidated))
	assert.Equal(t, 1, report.CountFor("impute_missing", pipeline.ActionCellsFilled))

	// The negative charge was reflected, not discarded.
	assert.Equal(t, "500", renderAt(t, tbl, 22, "Billing Amount"))
	assert.Equal(t, 1, report.CountFor("numeric_range_billing_amount", pipeline.ActionCellsReflected))

	// The transposed dates were swapped back and the stay derives from the
	// repaired pair.
	assert.Equal(t, "2024-05-01", renderAt(t, tbl, 23, "Date of Admission"))
	assert.Equal(t, "2024-05-10", renderAt(t, tbl, 23, "Discharge Date"))
	assert.Equal(t, "9", renderAt(t, tbl, 23, "Length_of_Stay"))
	assert.Equal(t, 1, report.CountFor("date_consistency", pipeline.ActionPairsSwapped))

	// Derived features cover every row.
	assert.Equal(t, "2", renderAt(t, tbl, 0, "Length_of_Stay"))
	assert.Equal(t, "Young_Adult", renderAt(t, tbl, 0, "Age_Group"))
	assert.Equal(t, 24, report.CountFor("derive_age_group", pipeline.ActionCellsDerived))

	// Quantile buckets split the observed charges.
	assert.Equal(t, "Low", renderAt(t, tbl, 0, "Billing_Category"), "1000 is in the bottom quartile")
	assert.Equal(t, "Low", renderAt(t, tbl, 22, "Billing_Category"), "the reflected 500 is in the bottom quartile")
	assert.Equal(t, "Very_High", renderAt(t, tbl, 19, "Billing_Category"), "20000 is in the top quartile")
	assert.Equal(t, "Very_High", renderAt(t, tbl, 20, "Billing_Category"))

	// The audit flagged the scenario rooms and the long stay without
	// touching them.
	assert.Equal(t, "204", renderAt(t, tbl, 23, "Room Number"))
	require.Len(t, report.Outliers, 4)
	byColumn := make(map[string]pipeline.OutlierNote, len(report.Outliers))
	for _, note := range report.Outliers {
		byColumn[note.Column] = note
	}
	assert.Equal(t, 4, byColumn["Room Number"].Count, "rooms 201-204 sit far above the 101-120 block")
	assert.Equal(t, 1, byColumn["Length_of_Stay"].Count, "one nine-day stay among two-day stays")
	assert.Zero(t, byColumn["Age"].Count)

	// Nothing is left missing.
	assert.Zero(t, tbl.MissingCells())
	assert.Empty(t, report.RemainingMissing)
}

// changeActions are the report actions that rewrite or remove data. A second
// run over already clean data must record none of them; derivation and audit
// actions recur on every run.
var changeActions = []string{
	pipeline.ActionRowsRemoved,
	pipeline.ActionCellsNormalized,
	pipeline.ActionCellsInvalidated,
	pipeline.ActionCellsSentineled,
	pipeline.ActionCellsReflected,
	pipeline.ActionCellsClamped,
	pipeline.ActionPairsSwapped,
	pipeline.ActionEndDatesNulled,
	pipeline.ActionCellsFilled,
	pipeline.ActionColumnsDropped,
}

func TestPipelineIsIdempotentOnCleanData(t *testing.T) {
	tbl := messyAdmissions(t)
	rs := scrubRuleset()

	_, err := runPipeline(t, tbl, rs, config.DatePolicySwap)
	require.NoError(t, err)
	cleaned := renderTable(tbl)

	report, err := runPipeline(t, tbl, rs, config.DatePolicySwap)
	require.NoError(t, err)

	assert.Equal(t, cleaned, renderTable(tbl), "a second run changes nothing")
	for _, e := range report.Entries {
		assert.NotContains(t, changeActions, e.Action,
			"rule %s recorded %s on clean data", e.RuleID, e.Action)
	}
	assert.Empty(t, report.Strategies)
}

func TestPipelineNullOutEndPolicy(t *testing.T) {
	tbl, err := dataset.NewTable(hospitalColumns())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, tbl.AppendRow(hospitalRow(t, float64(101+i), map[string]dataset.Value{
			"Billing Amount": dataset.Float(float64(1000 * (i + 1))),
		})))
	}
	require.NoError(t, tbl.AppendRow(hospitalRow(t, 204, map[string]dataset.Value{
		"Date of Admission": day(t, "2024-05-10"),
		"Discharge Date":    day(t, "2024-05-01"),
	})))

	report, err := runPipeline(t, tbl, scrubRuleset(), config.DatePolicyNullOutEnd)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-10", renderAt(t, tbl, 3, "Date of Admission"))
	assert.Equal(t, "", renderAt(t, tbl, 3, "Discharge Date"))
	assert.True(t, cellAt(t, tbl, 3, "Length_of_Stay").Missing(), "no stay without a discharge date")

	assert.Equal(t, 1, report.CountFor("date_consistency", pipeline.ActionEndDatesNulled))
	assert.Equal(t, map[string]int{
		"Discharge Date": 1,
		"Length_of_Stay": 1,
	}, report.RemainingMissing)
}

func TestPipelineFailsFastOnMissingColumn(t *testing.T) {
	tbl := newTestTable(t, []dataset.Column{{Name: "Age", Kind: dataset.KindFloat}},
		dataset.Row{dataset.Float(30)},
	)
	before := renderTable(tbl)

	report, err := runPipeline(t, tbl, scrubRuleset(), config.DatePolicySwap)
	require.Error(t, err)

	assert.Equal(t, pipeline.StatusFailed, report.Status)
	assert.Empty(t, report.Entries)
	assert.Equal(t, before, renderTable(tbl), "the table is untouched")
}
