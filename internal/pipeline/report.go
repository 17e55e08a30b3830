package pipeline

import (
	"time"
)

// Report actions. Every change a rule makes lands in the report under one of
// these verbs, with a count of rows or cells it touched.
const (
	ActionRowsRemoved      = "rows_removed"
	ActionCellsNormalized  = "cells_normalized"
	ActionCellsInvalidated = "cells_invalidated"
	ActionCellsSentineled  = "cells_sentineled"
	ActionCellsReflected   = "cells_reflected"
	ActionCellsClamped     = "cells_clamped"
	ActionPairsSwapped     = "pairs_swapped"
	ActionEndDatesNulled   = "end_dates_nulled"
	ActionCellsFilled      = "cells_filled"
	ActionColumnsDropped   = "columns_dropped"
	ActionCellsDerived     = "cells_derived"
	ActionOutliersFlagged  = "outliers_flagged"
)

// Run statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Entry records one action a rule took and how many rows or cells it touched.
type Entry struct {
	RuleID string `json:"rule_id"`
	Column string `json:"column,omitempty"`
	Action string `json:"action"`
	Count  int    `json:"count"`
	Detail string `json:"detail,omitempty"`
}

// StrategyNote records which fill strategy the imputation dispatch chose for
// a column and why.
type StrategyNote struct {
	Column   string `json:"column"`
	Strategy string `json:"strategy"`
	Detail   string `json:"detail,omitempty"`
}

// OutlierNote records the audit fences for a column and how many values fell
// outside them. The audit never changes the table.
type OutlierNote struct {
	Column string  `json:"column"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Count  int     `json:"count"`
}

// Report collects everything one run did: per-rule actions with counts,
// imputation strategy notes, outlier audit results, row counts and timings.
// The runner and the rule currently executing are the only writers, strictly
// one at a time, so no locking is needed.
type Report struct {
	RunID      string    `json:"run_id"`
	Input      string    `json:"input"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	RowsBefore int       `json:"rows_before"`
	RowsAfter  int       `json:"rows_after"`

	Entries    []Entry        `json:"entries"`
	Strategies []StrategyNote `json:"strategies,omitempty"`
	Outliers   []OutlierNote  `json:"outliers,omitempty"`

	// RemainingMissing counts cells still absent per column after the run.
	RemainingMissing map[string]int `json:"remaining_missing,omitempty"`

	// Rules holds per-rule execution state in execution order.
	Rules []*RuleState `json:"rules"`
}

// NewReport creates a report for one run
func NewReport(runID, input string) *Report {
	return &Report{
		RunID:     runID,
		Input:     input,
		StartTime: time.Now(),
		Entries:   make([]Entry, 0),
		Rules:     make([]*RuleState, 0),
	}
}

// Observe appends an action entry.
func (r *Report) Observe(ruleID, column, action string, count int) {
	r.Entries = append(r.Entries, Entry{
		RuleID: ruleID,
		Column: column,
		Action: action,
		Count:  count,
	})
}

// ObserveDetail appends an action entry with a free-form detail string.
func (r *Report) ObserveDetail(ruleID, column, action string, count int, detail string) {
	r.Entries = append(r.Entries, Entry{
		RuleID: ruleID,
		Column: column,
		Action: action,
		Count:  count,
		Detail: detail,
	})
}

// AddStrategy records the fill strategy chosen for a column.
func (r *Report) AddStrategy(column, strategy, detail string) {
	r.Strategies = append(r.Strategies, StrategyNote{
		Column:   column,
		Strategy: strategy,
		Detail:   detail,
	})
}

// AddOutlier records audit fences and the out-of-fence count for a column.
func (r *Report) AddOutlier(column string, lower, upper float64, count int) {
	r.Outliers = append(r.Outliers, OutlierNote{
		Column: column,
		Lower:  lower,
		Upper:  upper,
		Count:  count,
	})
}

// AddRuleState appends per-rule execution state in execution order.
func (r *Report) AddRuleState(state *RuleState) {
	r.Rules = append(r.Rules, state)
}

// RuleState returns the state for a rule ID, or nil.
func (r *Report) RuleState(id string) *RuleState {
	for _, s := range r.Rules {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// EntryCount returns the number of entries recorded so far. The runner uses
// it to attribute entries to the rule that produced them.
func (r *Report) EntryCount() int {
	return len(r.Entries)
}

// CellsSince sums entry counts recorded at or after the given mark.
func (r *Report) CellsSince(mark int) int64 {
	var total int64
	for _, e := range r.Entries[mark:] {
		total += int64(e.Count)
	}
	return total
}

// EntriesFor returns the entries a rule recorded.
func (r *Report) EntriesFor(ruleID string) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.RuleID == ruleID {
			out = append(out, e)
		}
	}
	return out
}

// CountFor sums the counts a rule recorded under one action.
func (r *Report) CountFor(ruleID, action string) int {
	total := 0
	for _, e := range r.Entries {
		if e.RuleID == ruleID && e.Action == action {
			total += e.Count
		}
	}
	return total
}

// Finish marks the run completed and stamps the end time.
func (r *Report) Finish() {
	r.EndTime = time.Now()
	r.Status = StatusCompleted
}

// Fail marks the run failed and stamps the end time.
func (r *Report) Fail(err error) {
	r.EndTime = time.Now()
	r.Status = StatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}
