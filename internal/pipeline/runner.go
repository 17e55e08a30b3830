package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
)

// Runner executes registered rules against a table in registration order.
// Rules mutate the table in place; the runner owns run bookkeeping: the
// preflight column check, per-rule state, logging, tracing and the report.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
	tracer   *PipelineTracer
}

// NewRunner creates a runner over a registry
func NewRunner(registry *Registry, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		logger:   logger,
	}
}

// SetTracer attaches OpenTelemetry instrumentation. A nil tracer disables it.
func (r *Runner) SetTracer(tracer *PipelineTracer) {
	r.tracer = tracer
}

// Run executes every registered rule against the table in order and returns
// the report of what happened. The report is returned on failure too, marked
// failed, so callers can still persist what the run did before it stopped.
//
// A rule that needs a column the table does not have fails the run before
// any rule mutates the table. The first rule error stops the run: every rule
// after a failed one never sees the table.
func (r *Runner) Run(ctx context.Context, tbl *dataset.Table, input string) (*Report, error) {
	runID := uuid.NewString()
	rules := r.registry.List()

	report := NewReport(runID, input)
	report.RowsBefore = tbl.NumRows()

	logger := r.logger.With(slog.String("run_id", runID))

	logger.InfoContext(ctx, "run_started",
		slog.String("input", input),
		slog.Int("rows", report.RowsBefore),
		slog.Int("columns", tbl.NumColumns()),
		slog.Int("rule_count", len(rules)))

	// Preflight: every rule's input columns must exist before anything
	// mutates. Rules whose inputs are created by earlier rules declare no
	// preflight columns and check at apply time.
	for _, rule := range rules {
		for _, col := range rule.Columns() {
			if !tbl.HasColumn(col) {
				err := apperrors.NewMissingColumnError(rule.ID(), col)
				logger.ErrorContext(ctx, "missing_rule_column",
					slog.String("rule", rule.ID()),
					slog.String("column", col))
				report.Fail(err)
				return report, err
			}
		}
	}

	var runSpan trace.Span
	if r.tracer != nil {
		ctx, runSpan = r.tracer.TraceRunExecution(ctx, runID, input, report.RowsBefore)
	}

	finish := func(status string) {
		if r.tracer != nil {
			r.tracer.RecordRunCompletion(ctx, runSpan, runID, report.Duration(), status,
				report.RowsBefore, report.RowsAfter)
			runSpan.End()
		}
	}

	for i, rule := range rules {
		select {
		case <-ctx.Done():
			err := fmt.Errorf("run cancelled before rule %s: %w", rule.ID(), ctx.Err())
			logger.WarnContext(ctx, "run_cancelled",
				slog.String("rule", rule.ID()))
			report.RowsAfter = tbl.NumRows()
			report.Fail(err)
			finish(StatusFailed)
			return report, err
		default:
		}

		if err := r.executeRule(ctx, logger, tbl, report, rule, i, len(rules)); err != nil {
			report.RowsAfter = tbl.NumRows()
			report.Fail(err)
			finish(StatusFailed)
			return report, err
		}
	}

	report.RowsAfter = tbl.NumRows()
	report.RemainingMissing = remainingMissing(tbl)
	report.Finish()

	logger.InfoContext(ctx, "run_completed",
		slog.Int("rows_before", report.RowsBefore),
		slog.Int("rows_after", report.RowsAfter),
		slog.Duration("duration", report.Duration()))

	finish(StatusCompleted)
	return report, nil
}

// executeRule runs one rule and records its state, timing and telemetry.
func (r *Runner) executeRule(ctx context.Context, logger *slog.Logger, tbl *dataset.Table, report *Report, rule Rule, idx, total int) error {
	state := NewRuleState(rule.ID(), rule.Name())
	report.AddRuleState(state)

	logger.InfoContext(ctx, "executing_rule",
		slog.String("rule", rule.ID()),
		slog.Int("rule_number", idx+1),
		slog.Int("total_rules", total))

	ruleCtx := ctx
	var span trace.Span
	if r.tracer != nil {
		ruleCtx, span = r.tracer.TraceRuleExecution(ctx, report.RunID, rule.ID())
	}

	state.Start()
	mark := report.EntryCount()
	start := time.Now()
	err := rule.Apply(ruleCtx, tbl, report)
	duration := time.Since(start)
	cells := report.CellsSince(mark)

	if err != nil {
		state.Fail(err)
		logger.ErrorContext(ctx, "rule_execution_failed",
			slog.String("rule", rule.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		if r.tracer != nil {
			r.tracer.RecordRuleError(ruleCtx, rule.ID(), err)
			r.tracer.RecordRuleCompletion(ruleCtx, span, rule.ID(), duration, false, cells)
			span.End()
		}
		return fmt.Errorf("rule %s: %w", rule.ID(), err)
	}

	state.Complete()
	logger.InfoContext(ctx, "rule_completed",
		slog.String("rule", rule.ID()),
		slog.Duration("duration", duration),
		slog.Int64("cells_affected", cells))
	if r.tracer != nil {
		r.tracer.RecordRuleCompletion(ruleCtx, span, rule.ID(), duration, true, cells)
		span.End()
	}
	return nil
}

// remainingMissing counts still-absent cells per column.
func remainingMissing(tbl *dataset.Table) map[string]int {
	missing := make(map[string]int)
	for i, col := range tbl.Columns() {
		if n := tbl.MissingInColumn(i); n > 0 {
			missing[col.Name] = n
		}
	}
	return missing
}
