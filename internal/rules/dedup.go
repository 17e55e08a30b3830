package rules

import (
	"context"

	"golang.org/x/crypto/blake2b"

	"medscrub/internal/dataset"
	"medscrub/internal/pipeline"
)

// DedupRule removes exact duplicate rows, keeping the first occurrence. Two
// rows are duplicates when every cell renders to the same output text, so an
// absent cell and a coerced cell compare equal. It is the only rule that
// changes the row count.
type DedupRule struct {
	pipeline.BaseRule
}

// NewDedupRule creates the duplicate-removal rule.
func NewDedupRule() *DedupRule {
	return &DedupRule{
		BaseRule: pipeline.NewBaseRule("dedup", "Remove duplicate rows", nil),
	}
}

// Apply fingerprints every row and drops later repeats.
func (r *DedupRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	seen := make(map[[32]byte]struct{}, tbl.NumRows())
	keep := make([]bool, tbl.NumRows())

	cols := tbl.NumColumns()
	for row := 0; row < tbl.NumRows(); row++ {
		fp := fingerprintRow(tbl, row, cols)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		keep[row] = true
	}

	removed, err := tbl.RetainRows(keep)
	if err != nil {
		return err
	}
	if removed > 0 {
		rpt.Observe(r.ID(), "", pipeline.ActionRowsRemoved, removed)
	}
	return nil
}

// fingerprintRow hashes the rendered cells of one row. A 0x1f separator
// between cells keeps adjacent values from bleeding into each other.
func fingerprintRow(tbl *dataset.Table, row, cols int) [32]byte {
	buf := make([]byte, 0, 64)
	for col := 0; col < cols; col++ {
		buf = append(buf, tbl.At(row, col).Render()...)
		buf = append(buf, 0x1f)
	}
	return blake2b.Sum256(buf)
}
