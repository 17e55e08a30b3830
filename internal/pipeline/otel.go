package pipeline

import (
	"context"
	"fmt"
	"time"

	"medscrub/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "medscrub.pipeline"
)

// PipelineTracer provides OpenTelemetry instrumentation for cleaning runs
type PipelineTracer struct {
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *infrastructure.PipelineMetrics
}

// NewPipelineTracer creates a new pipeline tracer. When metrics are
// disabled the global no-op meter stands in, so spans still work alone.
func NewPipelineTracer(providers *infrastructure.OTelProviders) (*PipelineTracer, error) {
	meter := providers.Meter
	if meter == nil {
		meter = otel.Meter(TracerName)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &PipelineTracer{
		tracer:  otel.Tracer(TracerName),
		meter:   meter,
		metrics: metrics,
	}, nil
}

// TraceRunExecution creates a span for an entire cleaning run
func (pt *PipelineTracer) TraceRunExecution(ctx context.Context, runID, input string, rowCount int) (context.Context, trace.Span) {
	ctx, span := pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.input", input),
			attribute.Int("run.rows_in", rowCount),
		),
	)

	pt.metrics.RunsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "start"),
		),
	)

	return ctx, span
}

// TraceRuleExecution creates a span for a single rule execution
func (pt *PipelineTracer) TraceRuleExecution(ctx context.Context, runID, ruleID string) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("pipeline.rule.%s", ruleID)
	ctx, span := pt.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("rule.id", ruleID),
		),
	)

	pt.metrics.RuleExecutionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("rule_id", ruleID),
			attribute.String("operation", "start"),
		),
	)

	return ctx, span
}

// RecordRunCompletion records run completion with metrics and span events
func (pt *PipelineTracer) RecordRunCompletion(ctx context.Context, span trace.Span, runID string, duration time.Duration, status string, rowsIn, rowsOut int) {
	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
		attribute.Int("run.rows_in", rowsIn),
		attribute.Int("run.rows_out", rowsOut),
	)

	pt.metrics.RunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)

	if removed := rowsIn - rowsOut; removed > 0 {
		pt.metrics.RowsRemoved.Add(ctx, int64(removed))
	}

	infrastructure.AddSpanEvent(ctx, "run.completed", map[string]interface{}{
		"run_id":   runID,
		"status":   status,
		"duration": duration.Seconds(),
		"rows_in":  rowsIn,
		"rows_out": rowsOut,
	})

	if status == StatusCompleted {
		span.SetStatus(codes.Ok, "run completed successfully")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("run failed with status: %s", status))
	}
}

// RecordRuleCompletion records rule completion with metrics and span events
func (pt *PipelineTracer) RecordRuleCompletion(ctx context.Context, span trace.Span, ruleID string, duration time.Duration, success bool, cellsAffected int64) {
	status := "success"
	if !success {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("rule.status", status),
		attribute.Float64("rule.duration_seconds", duration.Seconds()),
		attribute.Int64("rule.cells_affected", cellsAffected),
	)

	pt.metrics.RuleDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("rule_id", ruleID),
			attribute.String("status", status),
		),
	)

	if cellsAffected > 0 {
		pt.metrics.CellsAffected.Add(ctx, cellsAffected,
			metric.WithAttributes(
				attribute.String("rule_id", ruleID),
			),
		)
	}

	infrastructure.AddSpanEvent(ctx, "rule.completed", map[string]interface{}{
		"rule_id":        ruleID,
		"status":         status,
		"duration":       duration.Seconds(),
		"cells_affected": cellsAffected,
	})

	if success {
		span.SetStatus(codes.Ok, "rule completed successfully")
	} else {
		span.SetStatus(codes.Error, "rule execution failed")
	}
}

// RecordRuleError records rule errors with proper error tracking
func (pt *PipelineTracer) RecordRuleError(ctx context.Context, ruleID string, err error) {
	infrastructure.RecordError(ctx, err,
		trace.WithAttributes(
			attribute.String("rule_id", ruleID),
			attribute.String("error.type", "rule_execution_error"),
		),
	)

	pt.metrics.RuleErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("rule_id", ruleID),
		),
	)
}
