package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportObserve(t *testing.T) {
	rpt := NewReport("run-1", "admissions.csv")

	rpt.Observe("dedup", "", ActionRowsRemoved, 3)
	rpt.ObserveDetail("numeric_range_age", "Age", ActionCellsInvalidated, 2, "outside [0, 120]")

	require.Len(t, rpt.Entries, 2)
	assert.Equal(t, "dedup", rpt.Entries[0].RuleID)
	assert.Equal(t, 3, rpt.Entries[0].Count)
	assert.Equal(t, "Age", rpt.Entries[1].Column)
	assert.Equal(t, "outside [0, 120]", rpt.Entries[1].Detail)
}

func TestReportCountFor(t *testing.T) {
	rpt := NewReport("run-1", "admissions.csv")

	rpt.Observe("numeric_range_billing_amount", "Billing Amount", ActionCellsReflected, 4)
	rpt.Observe("numeric_range_billing_amount", "Billing Amount", ActionCellsClamped, 1)
	rpt.Observe("numeric_range_billing_amount", "Billing Amount", ActionCellsReflected, 2)
	rpt.Observe("numeric_range_age", "Age", ActionCellsInvalidated, 9)

	assert.Equal(t, 6, rpt.CountFor("numeric_range_billing_amount", ActionCellsReflected))
	assert.Equal(t, 1, rpt.CountFor("numeric_range_billing_amount", ActionCellsClamped))
	assert.Equal(t, 0, rpt.CountFor("numeric_range_billing_amount", ActionCellsFilled))
	assert.Len(t, rpt.EntriesFor("numeric_range_billing_amount"), 3)
}

func TestReportCellsSince(t *testing.T) {
	rpt := NewReport("run-1", "admissions.csv")
	rpt.Observe("dedup", "", ActionRowsRemoved, 5)

	mark := rpt.EntryCount()
	assert.Equal(t, int64(0), rpt.CellsSince(mark))

	rpt.Observe("text_normalize_name", "Name", ActionCellsNormalized, 7)
	rpt.Observe("text_normalize_name", "Name", ActionCellsNormalized, 3)

	assert.Equal(t, int64(10), rpt.CellsSince(mark))
}

func TestReportStrategiesAndOutliers(t *testing.T) {
	rpt := NewReport("run-1", "admissions.csv")

	rpt.AddStrategy("Gender", "mode_fill", "filled 12 cells with \"Female\"")
	rpt.AddOutlier("Billing Amount", -5000, 62000, 17)

	require.Len(t, rpt.Strategies, 1)
	assert.Equal(t, "Gender", rpt.Strategies[0].Column)
	assert.Equal(t, "mode_fill", rpt.Strategies[0].Strategy)

	require.Len(t, rpt.Outliers, 1)
	assert.Equal(t, 17, rpt.Outliers[0].Count)
	assert.Equal(t, -5000.0, rpt.Outliers[0].Lower)
}

func TestReportFinishAndFail(t *testing.T) {
	t.Run("finish", func(t *testing.T) {
		rpt := NewReport("run-1", "admissions.csv")
		rpt.Finish()

		assert.Equal(t, StatusCompleted, rpt.Status)
		assert.False(t, rpt.EndTime.IsZero())
		assert.True(t, rpt.Duration() >= 0)
	})

	t.Run("fail", func(t *testing.T) {
		rpt := NewReport("run-1", "admissions.csv")
		rpt.Fail(errors.New("date order still violated after swap"))

		assert.Equal(t, StatusFailed, rpt.Status)
		assert.Contains(t, rpt.Error, "still violated")
	})
}

func TestReportRuleStateLookup(t *testing.T) {
	rpt := NewReport("run-1", "admissions.csv")
	state := NewRuleState("dedup", "Duplicate Removal")
	rpt.AddRuleState(state)

	assert.Same(t, state, rpt.RuleState("dedup"))
	assert.Nil(t, rpt.RuleState("unknown"))
}

func TestRuleStateTransitions(t *testing.T) {
	state := NewRuleState("dedup", "Duplicate Removal")
	assert.Equal(t, RuleStatusPending, state.Status)
	assert.Equal(t, int64(0), int64(state.Duration()))

	state.Start()
	assert.Equal(t, RuleStatusActive, state.Status)
	require.NotNil(t, state.StartTime)

	state.Complete()
	assert.Equal(t, RuleStatusCompleted, state.Status)
	require.NotNil(t, state.EndTime)
	assert.GreaterOrEqual(t, int64(state.Duration()), int64(0))
}

func TestRuleStateFail(t *testing.T) {
	state := NewRuleState("date_consistency", "Date Consistency")
	state.Start()
	state.Fail(errors.New("boom"))

	assert.Equal(t, RuleStatusFailed, state.Status)
	assert.Equal(t, "boom", state.Error)
	require.NotNil(t, state.EndTime)
}
