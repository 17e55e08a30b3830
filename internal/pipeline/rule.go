package pipeline

import (
	"context"
	"time"

	"medscrub/internal/dataset"
)

// Rule represents a single cleaning rule in the pipeline
type Rule interface {
	// ID returns the unique identifier for this rule
	ID() string

	// Name returns the human-readable name for this rule
	Name() string

	// Columns returns the input columns that must exist before the run
	// starts. Columns a rule creates itself are not listed.
	Columns() []string

	// Apply runs the rule against the table, recording what it changed in
	// the report. Apply mutates the table in place.
	Apply(ctx context.Context, tbl *dataset.Table, rpt *Report) error
}

// RuleStatus represents the current status of a rule
type RuleStatus string

const (
	RuleStatusPending   RuleStatus = "pending"
	RuleStatusActive    RuleStatus = "active"
	RuleStatusCompleted RuleStatus = "completed"
	RuleStatusFailed    RuleStatus = "failed"
)

// RuleState represents the runtime state of a rule within one run.
// The runner is the only writer, so no locking is needed.
type RuleState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    RuleStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewRuleState creates a new rule state with default values
func NewRuleState(id, name string) *RuleState {
	return &RuleState{
		ID:     id,
		Name:   name,
		Status: RuleStatusPending,
	}
}

// Start marks the rule as active and sets the start time
func (s *RuleState) Start() {
	now := time.Now()
	s.StartTime = &now
	s.Status = RuleStatusActive
}

// Complete marks the rule as completed and sets the end time
func (s *RuleState) Complete() {
	now := time.Now()
	s.EndTime = &now
	s.Status = RuleStatusCompleted
}

// Fail marks the rule as failed with the given error
func (s *RuleState) Fail(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = RuleStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Duration returns the duration of the rule execution
func (s *RuleState) Duration() time.Duration {
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// BaseRule provides common functionality for Rule implementations
type BaseRule struct {
	id      string
	name    string
	columns []string
}

// NewBaseRule creates a new base rule
func NewBaseRule(id, name string, columns []string) BaseRule {
	if columns == nil {
		columns = []string{}
	}
	return BaseRule{
		id:      id,
		name:    name,
		columns: columns,
	}
}

// ID returns the rule ID
func (b *BaseRule) ID() string {
	return b.id
}

// Name returns the rule name
func (b *BaseRule) Name() string {
	return b.name
}

// Columns returns the input columns the rule reads
func (b *BaseRule) Columns() []string {
	return b.columns
}
