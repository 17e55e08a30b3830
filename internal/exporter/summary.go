package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// SummaryWriter writes the human-readable summary and the JSON report for a
// run.
type SummaryWriter struct{}

// NewSummaryWriter creates a summary writer.
func NewSummaryWriter() *SummaryWriter {
	return &SummaryWriter{}
}

// WriteSummary renders the run as plain text for operators: shape, per-rule
// actions, fill strategies, the outlier audit and what is still missing.
func (w *SummaryWriter) WriteSummary(path string, rpt *pipeline.Report, tbl *dataset.Table) error {
	var b strings.Builder

	title := fmt.Sprintf("Cleaning summary for %s", rpt.Input)
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	fmt.Fprintf(&b, "Run:      %s\n", rpt.RunID)
	fmt.Fprintf(&b, "Status:   %s\n", rpt.Status)
	fmt.Fprintf(&b, "Started:  %s\n", rpt.StartTime.Format(timeLayout))
	fmt.Fprintf(&b, "Duration: %s\n", rpt.Duration().Round(time.Millisecond))
	if rpt.Error != "" {
		fmt.Fprintf(&b, "Error:    %s\n", rpt.Error)
	}
	b.WriteString("\n")

	b.WriteString("Shape\n-----\n")
	fmt.Fprintf(&b, "Rows before:   %d\n", rpt.RowsBefore)
	fmt.Fprintf(&b, "Rows after:    %d\n", rpt.RowsAfter)
	fmt.Fprintf(&b, "Columns:       %d\n", tbl.NumColumns())
	fmt.Fprintf(&b, "Missing cells: %d\n\n", tbl.MissingCells())

	b.WriteString("Columns\n-------\n")
	for _, col := range tbl.Columns() {
		fmt.Fprintf(&b, "  %s (%s)\n", col.Name, col.Kind)
	}
	b.WriteString("\n")

	b.WriteString("Rule actions\n------------\n")
	if len(rpt.Entries) == 0 {
		b.WriteString("  none\n")
	}
	for _, e := range rpt.Entries {
		fmt.Fprintf(&b, "  %s: %s %d", e.RuleID, e.Action, e.Count)
		if e.Column != "" {
			fmt.Fprintf(&b, " on %s", e.Column)
		}
		if e.Detail != "" {
			fmt.Fprintf(&b, " (%s)", e.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(rpt.Strategies) > 0 {
		b.WriteString("Fill strategies\n---------------\n")
		for i, s := range rpt.Strategies {
			fmt.Fprintf(&b, "  %d. %s: %s", i+1, s.Column, s.Strategy)
			if s.Detail != "" {
				fmt.Fprintf(&b, " (%s)", s.Detail)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(rpt.Outliers) > 0 {
		b.WriteString("Outlier audit\n-------------\n")
		for _, o := range rpt.Outliers {
			fmt.Fprintf(&b, "  %s: %d outside [%s, %s]\n",
				o.Column, o.Count, formatNumber(o.Lower), formatNumber(o.Upper))
		}
		b.WriteString("\n")
	}

	b.WriteString("Remaining missing\n-----------------\n")
	if len(rpt.RemainingMissing) == 0 {
		b.WriteString("  none\n")
	} else {
		columns := make([]string, 0, len(rpt.RemainingMissing))
		for col := range rpt.RemainingMissing {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		for _, col := range columns {
			fmt.Fprintf(&b, "  %s: %d\n", col, rpt.RemainingMissing[col])
		}
	}

	return writeArtifact(path, []byte(b.String()))
}

// WriteReportJSON writes the full run report as indented JSON.
func (w *SummaryWriter) WriteReportJSON(path string, rpt *pipeline.Report) error {
	data, err := json.MarshalIndent(rpt, "", "  ")
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("encode report for %s", path), err)
	}
	return writeArtifact(path, append(data, '\n'))
}

// writeArtifact creates parent directories and writes the file in one shot.
func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create output directory for %s", path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("write %s", path), err)
	}
	slog.Info("Wrote run artifact", slog.String("path", path))
	return nil
}
