// Package ingest loads hospital admission records from CSV and XLSX files
// into typed tables.
//
// Every cell is coerced against the declared column kind at load time. A
// value that cannot be parsed is kept as a coerced-missing cell rather than
// aborting the load, so a single bad entry never sinks a file. Column names
// in the file are matched case-insensitively against the ruleset schema and
// normalized to the declared spelling; columns the schema does not know are
// carried through as plain text.
package ingest
