package dataset

import (
	"fmt"
)

// Column is a named, typed column declaration.
type Column struct {
	Name string
	Kind Kind
}

// Row is one record, indexed by column position.
type Row []Value

// Table is an ordered collection of rows sharing one column set. It is the
// pipeline's single mutable resource: exactly one rule writes to it at a time,
// so the type carries no locking.
type Table struct {
	columns []Column
	index   map[string]int
	rows    []Row
}

// NewTable creates an empty table with the given column declarations.
func NewTable(columns []Column) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		index[col.Name] = i
	}
	return &Table{
		columns: append([]Column(nil), columns...),
		index:   index,
	}, nil
}

// AppendRow adds a row. The row must have exactly one cell per column.
func (t *Table) AppendRow(row Row) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// NumRows returns the current row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the current column count.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns a copy of the column declarations in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// ColumnKind returns the declared kind of the named column.
func (t *Table) ColumnKind(name string) (Kind, bool) {
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.columns[i].Kind, true
}

// At returns the cell at the given row and column position.
func (t *Table) At(row, col int) Value {
	return t.rows[row][col]
}

// Set replaces the cell at the given row and column position.
func (t *Table) Set(row, col int, v Value) {
	t.rows[row][col] = v
}

// SetColumn replaces the named column's cells, or appends the column when it
// does not exist yet. values must hold one cell per row. Replacing an existing
// column updates its declared kind, which keeps derived-feature rules
// idempotent when they recompute over their own output.
func (t *Table) SetColumn(col Column, values []Value) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", col.Name, len(values), len(t.rows))
	}
	if i, ok := t.index[col.Name]; ok {
		t.columns[i] = col
		for r := range t.rows {
			t.rows[r][i] = values[r]
		}
		return nil
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], values[r])
	}
	return nil
}

// DropColumn removes the named column and its cells.
func (t *Table) DropColumn(name string) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("column %q does not exist", name)
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	delete(t.index, name)
	for name, pos := range t.index {
		if pos > i {
			t.index[name] = pos - 1
		}
	}
	for r := range t.rows {
		t.rows[r] = append(t.rows[r][:i], t.rows[r][i+1:]...)
	}
	return nil
}

// RetainRows keeps only the rows whose flag is true, preserving order, and
// returns the number of rows removed. keep must hold one flag per row.
func (t *Table) RetainRows(keep []bool) (int, error) {
	if len(keep) != len(t.rows) {
		return 0, fmt.Errorf("keep has %d flags, table has %d rows", len(keep), len(t.rows))
	}
	kept := t.rows[:0]
	for i, row := range t.rows {
		if keep[i] {
			kept = append(kept, row)
		}
	}
	removed := len(t.rows) - len(kept)
	t.rows = kept
	return removed, nil
}

// MissingInColumn counts the cells in the column at position col that are
// absent or coerced.
func (t *Table) MissingInColumn(col int) int {
	n := 0
	for r := range t.rows {
		if t.rows[r][col].Missing() {
			n++
		}
	}
	return n
}

// MissingCells counts every absent or coerced cell in the table.
func (t *Table) MissingCells() int {
	n := 0
	for r := range t.rows {
		for c := range t.rows[r] {
			if t.rows[r][c].Missing() {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: append([]Column(nil), t.columns...),
		index:   make(map[string]int, len(t.index)),
		rows:    make([]Row, len(t.rows)),
	}
	for name, i := range t.index {
		out.index[name] = i
	}
	for r, row := range t.rows {
		out.rows[r] = append(Row(nil), row...)
	}
	return out
}
