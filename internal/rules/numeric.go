package rules

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// Numeric violation policies. PolicyToAbsent in categorical.go is the third.
const (
	PolicyReflectToPositive      = "reflect_to_positive"
	PolicyClampUpperAndNullLower = "clamp_upper_and_null_lower"
)

// NumericRangeRule checks one numeric column against an inclusive valid
// range. Policies run in the configured order and each reports its own
// count: to_absent nulls everything outside the range, reflect_to_positive
// sign-flips negative values so later checks see the corrected value, and
// clamp_upper_and_null_lower caps values above the maximum but nulls values
// below the minimum, treating a huge charge as an extreme to cap and a
// near-zero charge as an entry error to distrust.
type NumericRangeRule struct {
	pipeline.BaseRule
	column   string
	min, max float64
	policies []string
}

// NewNumericRangeRule creates a numeric range rule from its spec.
func NewNumericRangeRule(spec config.NumericRuleSpec) *NumericRangeRule {
	return &NumericRangeRule{
		BaseRule: pipeline.NewBaseRule(
			"numeric_range_"+columnSlug(spec.Column),
			"Range-check "+spec.Column,
			[]string{spec.Column},
		),
		column:   spec.Column,
		min:      spec.Min,
		max:      spec.Max,
		policies: spec.Policies,
	}
}

// Apply runs the configured policies in order over the column.
func (r *NumericRangeRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	idx, ok := tbl.ColumnIndex(r.column)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.column)
	}

	for _, policy := range r.policies {
		switch policy {
		case PolicyReflectToPositive:
			r.reflectNegatives(tbl, rpt, idx)
		case PolicyClampUpperAndNullLower:
			r.clampAndNull(tbl, rpt, idx)
		default:
			r.nullOutOfRange(tbl, rpt, idx)
		}
	}
	return nil
}

func (r *NumericRangeRule) nullOutOfRange(tbl *dataset.Table, rpt *pipeline.Report, idx int) {
	nulled := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		v, ok := cell.Num()
		if !ok || (v >= r.min && v <= r.max) {
			continue
		}
		tbl.Set(row, idx, dataset.Absent(cell.Kind()))
		nulled++
	}
	if nulled > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsInvalidated, nulled,
			fmt.Sprintf("outside [%s, %s]", formatNum(r.min), formatNum(r.max)))
	}
}

func (r *NumericRangeRule) reflectNegatives(tbl *dataset.Table, rpt *pipeline.Report, idx int) {
	reflected := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		v, ok := cell.Num()
		if !ok || v >= 0 {
			continue
		}
		tbl.Set(row, idx, numCell(cell.Kind(), math.Abs(v)))
		reflected++
	}
	if reflected > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsReflected, reflected, "sign-flipped negative values")
	}
}

func (r *NumericRangeRule) clampAndNull(tbl *dataset.Table, rpt *pipeline.Report, idx int) {
	clamped, nulled := 0, 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		v, ok := cell.Num()
		if !ok {
			continue
		}
		switch {
		case v > r.max:
			tbl.Set(row, idx, numCell(cell.Kind(), r.max))
			clamped++
		case v < r.min:
			tbl.Set(row, idx, dataset.Absent(cell.Kind()))
			nulled++
		}
	}
	if clamped > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsClamped, clamped,
			fmt.Sprintf("capped at %s", formatNum(r.max)))
	}
	if nulled > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsInvalidated, nulled,
			fmt.Sprintf("below minimum %s", formatNum(r.min)))
	}
}

// numCell builds a present numeric cell of the given kind.
func numCell(kind dataset.Kind, v float64) dataset.Value {
	if kind == dataset.KindInt {
		return dataset.Int(int64(v))
	}
	return dataset.Float(v)
}

// formatNum renders a number the way it would appear in the output file,
// without exponent notation.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
