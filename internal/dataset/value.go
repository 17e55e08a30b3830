package dataset

import (
	"strconv"
	"time"
)

// Kind is the declared semantic type of a column and of the cells in it.
type Kind uint8

const (
	KindText Kind = iota
	KindCategory
	KindInt
	KindFloat
	KindDate
)

// String returns the lowercase name used in ruleset files and reports.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCategory:
		return "category"
	case KindInt:
		return "integer"
	case KindFloat:
		return "decimal"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// State is the presence state of a cell. Absence is first-class: a cell is
// Present, Absent (nothing was recorded), or Coerced (something was recorded
// but could not be interpreted and was coerced to absent). Coerced behaves as
// absent everywhere; the distinction exists only for diagnostics.
type State uint8

const (
	StateAbsent State = iota
	StatePresent
	StateCoerced
)

// Value is a single typed cell. The zero Value is an absent text cell.
type Value struct {
	kind  Kind
	state State
	text  string
	num   float64
	date  time.Time
}

// Text returns a present text cell.
func Text(s string) Value {
	return Value{kind: KindText, state: StatePresent, text: s}
}

// Category returns a present categorical cell.
func Category(s string) Value {
	return Value{kind: KindCategory, state: StatePresent, text: s}
}

// Int returns a present integer cell.
func Int(i int64) Value {
	return Value{kind: KindInt, state: StatePresent, num: float64(i)}
}

// Float returns a present decimal cell.
func Float(f float64) Value {
	return Value{kind: KindFloat, state: StatePresent, num: f}
}

// Date returns a present date cell, truncated to UTC midnight.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, state: StatePresent, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Absent returns an absent cell of the given kind.
func Absent(kind Kind) Value {
	return Value{kind: kind, state: StateAbsent}
}

// Coerced returns a cell of the given kind whose recorded input was invalid
// and has been coerced to absent.
func Coerced(kind Kind) Value {
	return Value{kind: kind, state: StateCoerced}
}

// Kind returns the cell's kind.
func (v Value) Kind() Kind { return v.kind }

// State returns the cell's presence state.
func (v Value) State() State { return v.state }

// Present reports whether the cell holds a usable value.
func (v Value) Present() bool { return v.state == StatePresent }

// Missing reports whether the cell is absent or coerced.
func (v Value) Missing() bool { return v.state != StatePresent }

// Str returns the string content of a present text or categorical cell.
func (v Value) Str() (string, bool) {
	if v.state != StatePresent || (v.kind != KindText && v.kind != KindCategory) {
		return "", false
	}
	return v.text, true
}

// Num returns the numeric content of a present integer or decimal cell.
func (v Value) Num() (float64, bool) {
	if v.state != StatePresent || (v.kind != KindInt && v.kind != KindFloat) {
		return 0, false
	}
	return v.num, true
}

// Day returns the date content of a present date cell.
func (v Value) Day() (time.Time, bool) {
	if v.state != StatePresent || v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// WithStr returns a copy of the cell carrying new string content. The kind is
// preserved so categorical cells stay categorical.
func (v Value) WithStr(s string) Value {
	v.text = s
	v.state = StatePresent
	return v
}

// Render returns the cell's output form: the empty string for missing cells,
// otherwise the canonical text of the value.
func (v Value) Render() string {
	if v.state != StatePresent {
		return ""
	}
	switch v.kind {
	case KindText, KindCategory:
		return v.text
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10)
	case KindFloat:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

// DateLayout is the canonical date form for ingest and export.
const DateLayout = "2006-01-02"
