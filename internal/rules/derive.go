package rules

import (
	"context"
	"fmt"
	"math"
	"strings"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// Bucket kinds.
const (
	BucketFixed    = "fixed"
	BucketQuantile = "quantile"
)

// DurationRule derives a whole-day duration column from a paired start and
// end date. Rows with either date absent derive an absent duration. The rule
// runs after imputation and date repair, so on a repaired table every
// derived value is non-negative.
type DurationRule struct {
	pipeline.BaseRule
	spec config.DurationSpec
}

// NewDurationRule creates a duration derivation rule from its spec.
func NewDurationRule(spec config.DurationSpec) *DurationRule {
	return &DurationRule{
		BaseRule: pipeline.NewBaseRule(
			"derive_"+columnSlug(spec.Target),
			"Derive "+spec.Target,
			[]string{spec.Start, spec.End},
		),
		spec: spec,
	}
}

// Apply computes end minus start in whole days for every row and writes the
// target column, replacing it if it already exists.
func (r *DurationRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	startIdx, ok := tbl.ColumnIndex(r.spec.Start)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.spec.Start)
	}
	endIdx, ok := tbl.ColumnIndex(r.spec.End)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.spec.End)
	}

	values := make([]dataset.Value, tbl.NumRows())
	derived, negative := 0, 0
	for row := 0; row < tbl.NumRows(); row++ {
		start, okS := tbl.At(row, startIdx).Day()
		end, okE := tbl.At(row, endIdx).Day()
		if !okS || !okE {
			values[row] = dataset.Absent(dataset.KindInt)
			continue
		}
		days := int64(end.Sub(start).Hours() / 24)
		if days < 0 {
			negative++
		}
		values[row] = dataset.Int(days)
		derived++
	}

	if err := tbl.SetColumn(dataset.Column{Name: r.spec.Target, Kind: dataset.KindInt}, values); err != nil {
		return err
	}
	if negative > 0 {
		rpt.ObserveDetail(r.ID(), r.spec.Target, pipeline.ActionCellsDerived, derived,
			fmt.Sprintf("%d durations negative", negative))
		return nil
	}
	rpt.Observe(r.ID(), r.spec.Target, pipeline.ActionCellsDerived, derived)
	return nil
}

// BucketRule derives a labeled categorical column by partitioning a numeric
// column into ranges. Fixed buckets use configured boundaries; quantile
// buckets compute their interior edges from the present values at run time.
// Intervals are open below and closed above, and a value outside every
// interval derives an absent cell.
//
// The source may itself be a derived column, so it is checked when the rule
// runs rather than before the run starts.
type BucketRule struct {
	pipeline.BaseRule
	spec config.BucketSpec
}

// NewBucketRule creates a bucket derivation rule from its spec.
func NewBucketRule(spec config.BucketSpec) *BucketRule {
	return &BucketRule{
		BaseRule: pipeline.NewBaseRule(
			"derive_"+columnSlug(spec.Target),
			"Derive "+spec.Target,
			nil,
		),
		spec: spec,
	}
}

// Apply partitions the source column and writes the labeled target column.
func (r *BucketRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	idx, ok := tbl.ColumnIndex(r.spec.Source)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.spec.Source)
	}

	edges, detail := r.edges(tbl, idx)
	values := make([]dataset.Value, tbl.NumRows())
	labeled := 0
	for row := 0; row < tbl.NumRows(); row++ {
		v, ok := tbl.At(row, idx).Num()
		if !ok || edges == nil {
			values[row] = dataset.Absent(dataset.KindCategory)
			continue
		}
		li := bucketIndex(edges, v)
		if li < 0 {
			values[row] = dataset.Absent(dataset.KindCategory)
			continue
		}
		values[row] = dataset.Category(r.spec.Labels[li])
		labeled++
	}

	if err := tbl.SetColumn(dataset.Column{Name: r.spec.Target, Kind: dataset.KindCategory}, values); err != nil {
		return err
	}
	rpt.ObserveDetail(r.ID(), r.spec.Target, pipeline.ActionCellsDerived, labeled, detail)
	return nil
}

// edges returns the interval boundaries for the bucket, one more than the
// label count, and a report detail describing them. A quantile bucket over a
// column with no present values has no edges.
func (r *BucketRule) edges(tbl *dataset.Table, idx int) ([]float64, string) {
	if r.spec.Kind == BucketFixed {
		return r.spec.Bounds, ""
	}

	var present []float64
	for row := 0; row < tbl.NumRows(); row++ {
		if v, ok := tbl.At(row, idx).Num(); ok {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, "source has no present values"
	}

	edges := make([]float64, 0, len(r.spec.Quantiles)+2)
	edges = append(edges, math.Inf(-1))
	described := make([]string, 0, len(r.spec.Quantiles))
	for _, q := range r.spec.Quantiles {
		v, _ := dataset.Quantile(present, q)
		edges = append(edges, v)
		described = append(described, formatNum(v))
	}
	edges = append(edges, math.Inf(1))
	return edges, "quantile edges " + strings.Join(described, ", ")
}

// bucketIndex returns the interval index holding v, or -1 when v falls
// outside every interval. Interval i is (edges[i], edges[i+1]].
func bucketIndex(edges []float64, v float64) int {
	for i := 0; i < len(edges)-1; i++ {
		if v > edges[i] && v <= edges[i+1] {
			return i
		}
	}
	return -1
}
