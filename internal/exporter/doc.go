// Package exporter writes the artifacts of a cleaning run: the cleaned
// table as CSV, a plain-text summary for operators, and the full run report
// as JSON.
//
// Output is written only after a run completes. A failed run produces no
// artifacts, so a cleaned file on disk always reflects a full pass of the
// rule pipeline.
package exporter
