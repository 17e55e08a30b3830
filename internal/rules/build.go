package rules

import (
	"strings"

	"medscrub/internal/config"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// Build assembles the ordered rule list a ruleset describes. The order is
// fixed: duplicate removal first, then text normalization, categorical
// validation and numeric ranges in ruleset order, then imputation, date
// repair, derived features and the outlier audit.
//
// The date repair slots in one of two places. When the imputation fills date
// columns, repair runs after imputation, because a directional fill can
// itself produce an end date before its start. When no date column is
// imputed, repair runs right after the numeric rules. Either way it runs
// before the derivation rules, which read the repaired dates.
func Build(rs *config.Ruleset, datePolicy string) ([]pipeline.Rule, error) {
	if rs == nil {
		return nil, apperrors.NewConfigError("ruleset is nil", nil)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	var rules []pipeline.Rule
	if rs.Dedup.Enabled {
		rules = append(rules, NewDedupRule())
	}
	for _, t := range rs.Text {
		rules = append(rules, NewTextRule(t))
	}
	for _, c := range rs.Categorical {
		rules = append(rules, NewCategoricalRule(c))
	}
	for _, n := range rs.Numeric {
		rules = append(rules, NewNumericRangeRule(n))
	}

	imputesDates := rulesetImputesDates(rs)
	if rs.Dates != nil && !imputesDates {
		rules = append(rules, NewDateConsistencyRule(rs.Dates.Start, rs.Dates.End, datePolicy))
	}
	rules = append(rules, NewImputeRule(rs.Imputation, rs.Columns))
	if rs.Dates != nil && imputesDates {
		rules = append(rules, NewDateConsistencyRule(rs.Dates.Start, rs.Dates.End, datePolicy))
	}

	if d := rs.Derived.Duration; d != nil {
		rules = append(rules, NewDurationRule(*d))
	}
	for _, b := range rs.Derived.Buckets {
		rules = append(rules, NewBucketRule(b))
	}
	if len(rs.Outliers.Columns) > 0 {
		rules = append(rules, NewOutlierAuditRule(rs.Outliers))
	}
	return rules, nil
}

// Register builds the ruleset's rules and registers them in order.
func Register(reg *pipeline.Registry, rs *config.Ruleset, datePolicy string) error {
	rules, err := Build(rs, datePolicy)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// rulesetImputesDates reports whether the imputation dispatch will fill any
// declared date column, which is the case unless every date column is
// dropped or kept absent.
func rulesetImputesDates(rs *config.Ruleset) bool {
	keep := toSet(rs.Imputation.Keep)
	drop := toSet(rs.Imputation.Drop)
	for _, col := range rs.Columns {
		if col.Kind != "date" {
			continue
		}
		if _, kept := keep[col.Name]; kept {
			continue
		}
		if _, dropped := drop[col.Name]; dropped {
			continue
		}
		return true
	}
	return false
}

// columnSlug lowercases a column name and replaces spaces so it can serve in
// a rule ID.
func columnSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
