package rules

import (
	"context"
	"fmt"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// DateConsistencyRule repairs paired date columns where the end date falls
// before the start date. Rows with either side absent are left alone. Two
// repair policies exist:
//
//   - null_out_end discards the untrustworthy end date.
//   - swap exchanges the pair, assuming the values were entered in the wrong
//     fields, and then re-verifies. A violation that survives the swap means
//     the transposition assumption does not hold, which is fatal.
//
// The policy is a run configuration, not a ruleset entry.
type DateConsistencyRule struct {
	pipeline.BaseRule
	start  string
	end    string
	policy string
}

// NewDateConsistencyRule creates the date order repair rule.
func NewDateConsistencyRule(start, end, policy string) *DateConsistencyRule {
	return &DateConsistencyRule{
		BaseRule: pipeline.NewBaseRule("date_consistency", "Repair date order", []string{start, end}),
		start:    start,
		end:      end,
		policy:   policy,
	}
}

// Apply finds rows violating end >= start and repairs them per the policy.
func (r *DateConsistencyRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	startIdx, ok := tbl.ColumnIndex(r.start)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.start)
	}
	endIdx, ok := tbl.ColumnIndex(r.end)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.end)
	}

	rows := r.violations(tbl, startIdx, endIdx)
	if len(rows) == 0 {
		return nil
	}

	if r.policy == config.DatePolicySwap {
		for _, row := range rows {
			start := tbl.At(row, startIdx)
			tbl.Set(row, startIdx, tbl.At(row, endIdx))
			tbl.Set(row, endIdx, start)
		}
		rpt.ObserveDetail(r.ID(), "", pipeline.ActionPairsSwapped, len(rows),
			fmt.Sprintf("swapped %q and %q where end preceded start", r.start, r.end))

		if residual := r.violations(tbl, startIdx, endIdx); len(residual) > 0 {
			return apperrors.NewRepairError(fmt.Sprintf(
				"%d rows still have %q before %q after swap", len(residual), r.end, r.start), nil)
		}
		return nil
	}

	for _, row := range rows {
		cell := tbl.At(row, endIdx)
		tbl.Set(row, endIdx, dataset.Absent(cell.Kind()))
	}
	rpt.ObserveDetail(r.ID(), r.end, pipeline.ActionEndDatesNulled, len(rows), "end date preceded start date")
	return nil
}

// violations returns the rows where both dates are present and end < start.
func (r *DateConsistencyRule) violations(tbl *dataset.Table, startIdx, endIdx int) []int {
	var rows []int
	for row := 0; row < tbl.NumRows(); row++ {
		start, okS := tbl.At(row, startIdx).Day()
		end, okE := tbl.At(row, endIdx).Day()
		if okS && okE && end.Before(start) {
			rows = append(rows, row)
		}
	}
	return rows
}
