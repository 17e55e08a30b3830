// Package dataset provides the in-memory table model the cleaning pipeline
// operates on.
//
// A Table is an ordered sequence of rows sharing one declared column set.
// Every cell is a Value with an explicit presence state: Present, Absent
// (nothing recorded), or Coerced (recorded input that could not be
// interpreted, coerced to absent). Absence is never inferred from string
// contents; loaders and rules set the state explicitly.
//
// Rules mutate the table in place: replacing a column's cells, dropping a
// column, removing rows, or appending a derived column. The table carries no
// locking because the pipeline guarantees a single writer at a time.
//
// The package also provides the descriptive statistics the imputation and
// audit rules need: mean, median, interpolated quantiles, mode with a
// deterministic tie break, and Tukey IQR fences.
package dataset
