package rules

import (
	"strings"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
)

// Fill strategies the imputation dispatch can choose. The chosen strategy
// and its outcome are recorded in the report for every column touched.
const (
	StrategyDropColumn      = "drop_column"
	StrategyModeFill        = "mode_fill"
	StrategySentinelFill    = "sentinel_fill"
	StrategyStatisticFill   = "statistic_fill"
	StrategyDirectionalFill = "directional_fill"
	StrategyKeepMissing     = "keep_missing"
)

// columnFill is one planned fill for one column.
type columnFill struct {
	column  string
	missing int
	// sentinel is the fill literal for sentinel_fill plans.
	sentinel string
	// median selects the skew-resistant statistic for statistic_fill plans.
	median bool
}

// fillPlan is the outcome of the missing-pattern analysis: the columns to
// drop and, for every remaining column with absent cells, the fill strategy
// it gets. Slices hold table column order, and the plan executes drops
// first, then mode, sentinel, statistic and directional fills.
type fillPlan struct {
	drops       []string
	modeFills   []columnFill
	sentinels   []columnFill
	statistics  []columnFill
	directional []columnFill
	keeps       []columnFill
}

// analyzeMissing classifies every column of the table by its missing-value
// pattern. Configured drop columns go regardless of their missing count.
// Columns with no absent cells need no plan. The rest bucket by kind: dates
// fill directionally, categorical and text columns mode-fill below the
// missing-fraction threshold (or when configured to prefer the mode) and
// sentinel-fill above it, numeric columns fill with the median when monetary
// and the mean otherwise, and configured keep columns stay absent.
func analyzeMissing(tbl *dataset.Table, spec config.ImputationSpec, monetary map[string]bool) fillPlan {
	var plan fillPlan

	dropSet := toSet(spec.Drop)
	keepSet := toSet(spec.Keep)
	preferMode := toSet(spec.PreferMode)

	for _, col := range spec.Drop {
		if tbl.HasColumn(col) {
			plan.drops = append(plan.drops, col)
		}
	}

	rows := tbl.NumRows()
	for i, col := range tbl.Columns() {
		if _, drop := dropSet[col.Name]; drop {
			continue
		}
		missing := tbl.MissingInColumn(i)
		if missing == 0 || rows == 0 {
			continue
		}

		fill := columnFill{column: col.Name, missing: missing}
		if _, keep := keepSet[col.Name]; keep {
			plan.keeps = append(plan.keeps, fill)
			continue
		}

		switch col.Kind {
		case dataset.KindDate:
			plan.directional = append(plan.directional, fill)

		case dataset.KindText, dataset.KindCategory:
			frac := float64(missing) / float64(rows)
			if _, prefer := preferMode[col.Name]; prefer || frac < spec.ModeThreshold {
				plan.modeFills = append(plan.modeFills, fill)
				continue
			}
			fill.sentinel = spec.Sentinels[col.Name]
			if fill.sentinel == "" {
				fill.sentinel = spec.DefaultSentinel
			}
			if fill.sentinel == "" {
				plan.keeps = append(plan.keeps, fill)
				continue
			}
			plan.sentinels = append(plan.sentinels, fill)

		case dataset.KindInt, dataset.KindFloat:
			fill.median = monetary[col.Name]
			plan.statistics = append(plan.statistics, fill)

		default:
			plan.keeps = append(plan.keeps, fill)
		}
	}
	return plan
}

// monetaryColumns marks the columns that take median fills: those flagged in
// the schema plus any whose name suggests money.
func monetaryColumns(cols []config.ColumnSpec) map[string]bool {
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c.Name] = c.Monetary || monetaryName(c.Name)
	}
	return out
}

var monetaryWords = []string{"billing", "amount", "charge", "cost", "price"}

func monetaryName(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range monetaryWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
