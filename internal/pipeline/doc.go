// Package pipeline provides the rule execution engine for cleaning runs.
//
// A cleaning run applies an ordered list of rules to a table, each rule
// repairing or deriving one aspect of the data and recording what it changed.
// The engine is deliberately simple:
//
//   - Rules run strictly in registration order, one at a time
//   - Every rule runs; a rule is never skipped because of another's outcome
//   - The first rule error stops the run
//   - Each rule is idempotent, so re-running a clean table changes nothing
//
// Core Components:
//
// Rule: An interface that defines a single cleaning rule. A rule declares
// the input columns it needs, mutates the table in place, and reports every
// change with a count.
//
// Registry: Manages rule registration. Registration order is execution
// order; there is no dependency resolution.
//
// Runner: Executes the registered rules against a table. Before the first
// rule runs it verifies that every declared input column exists, failing the
// run without mutating anything if one is missing. It produces a Report and
// emits logs, spans and metrics per rule.
//
// Report: Collects what the run did: per-rule actions with counts, chosen
// fill strategies, outlier audit fences, row counts and timings.
//
// Example usage:
//
//	registry := pipeline.NewRegistry()
//	registry.Register(rules.NewDedupRule())
//	registry.Register(rules.NewTextRule(spec))
//
//	runner := pipeline.NewRunner(registry, logger)
//	report, err := runner.Run(ctx, table, "admissions.csv")
package pipeline
