package rules

import (
	"context"
	"fmt"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	"medscrub/internal/pipeline"
)

// OutlierAuditRule reports values lying outside the Tukey fences of their
// column. It never changes the table; the fences and out-of-fence counts
// land in the report for a reviewer. Configured columns that are missing,
// non-numeric or empty are skipped, which lets the audit cover derived
// columns that only exist after the derivation rules ran.
type OutlierAuditRule struct {
	pipeline.BaseRule
	columns    []string
	multiplier float64
}

// NewOutlierAuditRule creates the audit from its spec. A zero multiplier
// means unset; the conventional 1.5 fence applies.
func NewOutlierAuditRule(spec config.OutlierSpec) *OutlierAuditRule {
	multiplier := spec.Multiplier
	if multiplier <= 0 {
		multiplier = 1.5
	}
	return &OutlierAuditRule{
		BaseRule:   pipeline.NewBaseRule("outlier_audit", "Audit outliers", nil),
		columns:    spec.Columns,
		multiplier: multiplier,
	}
}

// Apply computes fences per configured column and records the counts.
func (r *OutlierAuditRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	for _, name := range r.columns {
		idx, ok := tbl.ColumnIndex(name)
		if !ok {
			continue
		}

		var present []float64
		for row := 0; row < tbl.NumRows(); row++ {
			if v, ok := tbl.At(row, idx).Num(); ok {
				present = append(present, v)
			}
		}
		lower, upper, ok := dataset.IQRBounds(present, r.multiplier)
		if !ok {
			continue
		}

		count := 0
		for _, v := range present {
			if v < lower || v > upper {
				count++
			}
		}
		rpt.AddOutlier(name, lower, upper, count)
		if count > 0 {
			rpt.ObserveDetail(r.ID(), name, pipeline.ActionOutliersFlagged, count,
				fmt.Sprintf("outside [%s, %s]", formatNum(lower), formatNum(upper)))
		}
	}
	return nil
}
