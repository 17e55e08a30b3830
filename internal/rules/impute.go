package rules

import (
	"context"
	"fmt"
	"math"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	"medscrub/internal/pipeline"
)

// ImputeRule is the missing-value dispatch. It analyzes the table's missing
// pattern, drops configured identifier columns, and fills every other column
// with absent cells using the strategy its kind and missing fraction call
// for. Every fill records the exact cell count and the value used.
//
// The rule declares no input columns: it adapts to whatever table arrives,
// and a drop target may already be gone when a cleaned table is run again.
type ImputeRule struct {
	pipeline.BaseRule
	spec     config.ImputationSpec
	monetary map[string]bool
}

// NewImputeRule creates the imputation dispatch from the fill spec and the
// declared column schema.
func NewImputeRule(spec config.ImputationSpec, columns []config.ColumnSpec) *ImputeRule {
	return &ImputeRule{
		BaseRule: pipeline.NewBaseRule("impute_missing", "Impute missing values", nil),
		spec:     spec,
		monetary: monetaryColumns(columns),
	}
}

// Apply classifies the table's missing pattern and executes the plan.
func (r *ImputeRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	plan := analyzeMissing(tbl, r.spec, r.monetary)

	for _, col := range plan.drops {
		if err := tbl.DropColumn(col); err != nil {
			return err
		}
		rpt.Observe(r.ID(), col, pipeline.ActionColumnsDropped, 1)
		rpt.AddStrategy(col, StrategyDropColumn, "identifier column removed")
	}
	for _, f := range plan.modeFills {
		r.fillMode(tbl, rpt, f)
	}
	for _, f := range plan.sentinels {
		r.fillSentinel(tbl, rpt, f)
	}
	for _, f := range plan.statistics {
		r.fillStatistic(tbl, rpt, f)
	}
	for _, f := range plan.directional {
		r.fillDirectional(tbl, rpt, f)
	}
	for _, f := range plan.keeps {
		rpt.AddStrategy(f.column, StrategyKeepMissing,
			fmt.Sprintf("%d cells left absent for review", f.missing))
	}
	return nil
}

// fillMode fills absent cells with the most frequent present value. A column
// with no present values is a no-op that reports zero affected.
func (r *ImputeRule) fillMode(tbl *dataset.Table, rpt *pipeline.Report, f columnFill) {
	idx, ok := tbl.ColumnIndex(f.column)
	if !ok {
		return
	}

	var present []string
	for row := 0; row < tbl.NumRows(); row++ {
		if s, ok := tbl.At(row, idx).Str(); ok {
			present = append(present, s)
		}
	}
	mode, count := dataset.Mode(present)
	if count == 0 {
		rpt.Observe(r.ID(), f.column, pipeline.ActionCellsFilled, 0)
		rpt.AddStrategy(f.column, StrategyModeFill, "column has no present values")
		return
	}

	filled := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		if cell.Missing() {
			tbl.Set(row, idx, cell.WithStr(mode))
			filled++
		}
	}
	rpt.ObserveDetail(r.ID(), f.column, pipeline.ActionCellsFilled, filled, fmt.Sprintf("mode %q", mode))
	rpt.AddStrategy(f.column, StrategyModeFill, fmt.Sprintf("filled %d cells with mode %q", filled, mode))
}

// fillSentinel fills absent cells with the configured domain literal.
func (r *ImputeRule) fillSentinel(tbl *dataset.Table, rpt *pipeline.Report, f columnFill) {
	idx, ok := tbl.ColumnIndex(f.column)
	if !ok {
		return
	}

	filled := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		if cell.Missing() {
			tbl.Set(row, idx, cell.WithStr(f.sentinel))
			filled++
		}
	}
	rpt.ObserveDetail(r.ID(), f.column, pipeline.ActionCellsFilled, filled, fmt.Sprintf("sentinel %q", f.sentinel))
	rpt.AddStrategy(f.column, StrategySentinelFill, fmt.Sprintf("filled %d cells with %q", filled, f.sentinel))
}

// fillStatistic fills absent cells with the median or mean of the present
// values. Integer columns take the rounded statistic.
func (r *ImputeRule) fillStatistic(tbl *dataset.Table, rpt *pipeline.Report, f columnFill) {
	idx, ok := tbl.ColumnIndex(f.column)
	if !ok {
		return
	}

	var present []float64
	for row := 0; row < tbl.NumRows(); row++ {
		if v, ok := tbl.At(row, idx).Num(); ok {
			present = append(present, v)
		}
	}

	statName := "mean"
	stat, ok := dataset.Mean(present)
	if f.median {
		statName = "median"
		stat, ok = dataset.Median(present)
	}
	if !ok {
		rpt.Observe(r.ID(), f.column, pipeline.ActionCellsFilled, 0)
		rpt.AddStrategy(f.column, StrategyStatisticFill, "column has no present values")
		return
	}

	kind, _ := tbl.ColumnKind(f.column)
	if kind == dataset.KindInt {
		stat = math.Round(stat)
	}
	fill := numCell(kind, stat)

	filled := 0
	for row := 0; row < tbl.NumRows(); row++ {
		if tbl.At(row, idx).Missing() {
			tbl.Set(row, idx, fill)
			filled++
		}
	}
	rpt.ObserveDetail(r.ID(), f.column, pipeline.ActionCellsFilled, filled,
		fmt.Sprintf("%s %s", statName, formatNum(stat)))
	rpt.AddStrategy(f.column, StrategyStatisticFill,
		fmt.Sprintf("filled %d cells with %s %s", filled, statName, formatNum(stat)))
}

// fillDirectional fills absent cells with the nearest preceding present
// value in row order, then sweeps backward so leading absences take the
// nearest following value.
func (r *ImputeRule) fillDirectional(tbl *dataset.Table, rpt *pipeline.Report, f columnFill) {
	idx, ok := tbl.ColumnIndex(f.column)
	if !ok {
		return
	}

	filled := 0
	var carry dataset.Value
	haveCarry := false
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		if cell.Present() {
			carry, haveCarry = cell, true
			continue
		}
		if haveCarry {
			tbl.Set(row, idx, carry)
			filled++
		}
	}

	haveCarry = false
	for row := tbl.NumRows() - 1; row >= 0; row-- {
		cell := tbl.At(row, idx)
		if cell.Present() {
			carry, haveCarry = cell, true
			continue
		}
		if haveCarry {
			tbl.Set(row, idx, carry)
			filled++
		}
	}

	rpt.ObserveDetail(r.ID(), f.column, pipeline.ActionCellsFilled, filled, "forward then backward fill")
	rpt.AddStrategy(f.column, StrategyDirectionalFill,
		fmt.Sprintf("filled %d cells by forward then backward fill", filled))
}
