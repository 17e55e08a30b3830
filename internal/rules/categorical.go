package rules

import (
	"context"
	"fmt"
	"strings"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// Violation policies shared by the categorical and numeric rules.
const (
	PolicyToAbsent   = "to_absent"
	PolicyToSentinel = "to_sentinel"
)

// CategoricalRule validates one column against a closed set of accepted
// values. A pre-pass converts literal "nan" text to true absence before the
// accepted-set check, so a sentinel-shaped string is never mistaken for a
// collected value. Violations are then made absent or replaced with the
// configured sentinel. The sentinel itself counts as accepted, so a repeat
// run finds no further violations.
type CategoricalRule struct {
	pipeline.BaseRule
	column   string
	accepted map[string]struct{}
	policy   string
	sentinel string
}

// NewCategoricalRule creates an accepted-set validation rule from its spec.
func NewCategoricalRule(spec config.CategoricalRuleSpec) *CategoricalRule {
	accepted := make(map[string]struct{}, len(spec.Accepted))
	for _, v := range spec.Accepted {
		accepted[v] = struct{}{}
	}
	return &CategoricalRule{
		BaseRule: pipeline.NewBaseRule(
			"categorical_validate_"+columnSlug(spec.Column),
			"Validate "+spec.Column,
			[]string{spec.Column},
		),
		column:   spec.Column,
		accepted: accepted,
		policy:   spec.Policy,
		sentinel: spec.Sentinel,
	}
}

// Apply runs the literal-"nan" pre-pass and then the accepted-set check.
func (r *CategoricalRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	idx, ok := tbl.ColumnIndex(r.column)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.column)
	}

	converted := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		s, ok := cell.Str()
		if !ok {
			continue
		}
		if strings.EqualFold(s, "nan") {
			tbl.Set(row, idx, dataset.Absent(cell.Kind()))
			converted++
		}
	}
	if converted > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsInvalidated, converted, `literal "nan" text converted to absent`)
	}

	violations := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		s, ok := cell.Str()
		if !ok {
			continue
		}
		if _, accepted := r.accepted[s]; accepted {
			continue
		}
		if r.policy == PolicyToSentinel && s == r.sentinel {
			continue
		}
		if r.policy == PolicyToSentinel {
			tbl.Set(row, idx, cell.WithStr(r.sentinel))
		} else {
			tbl.Set(row, idx, dataset.Absent(cell.Kind()))
		}
		violations++
	}
	if violations > 0 {
		if r.policy == PolicyToSentinel {
			rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsSentineled, violations, fmt.Sprintf("set to %q", r.sentinel))
		} else {
			rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsInvalidated, violations, "outside accepted set")
		}
	}
	return nil
}
