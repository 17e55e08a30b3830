package ingest

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"medscrub/internal/dataset"
)

// dateLayouts are tried in order when coercing a date cell. The canonical
// layout comes first; the remainder cover spreadsheet exports and the short
// form excelize renders for unstyled date cells.
var dateLayouts = []string{
	dataset.DateLayout,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-06",
}

// kindFor maps a ruleset kind name to the cell kind used in tables.
func kindFor(spec string) dataset.Kind {
	switch spec {
	case "category":
		return dataset.KindCategory
	case "integer":
		return dataset.KindInt
	case "decimal":
		return dataset.KindFloat
	case "date":
		return dataset.KindDate
	default:
		return dataset.KindText
	}
}

// parseCell coerces one raw file value against the declared column kind.
// Empty input yields an absent cell; input that cannot be interpreted as the
// declared kind yields a coerced cell so the row survives the load.
func parseCell(raw string, kind dataset.Kind) dataset.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.Absent(kind)
	}

	switch kind {
	case dataset.KindText:
		return dataset.Text(s)
	case dataset.KindCategory:
		return dataset.Category(s)
	case dataset.KindInt:
		i, err := cast.ToInt64E(cleanNumber(s))
		if err != nil {
			return dataset.Coerced(kind)
		}
		return dataset.Int(i)
	case dataset.KindFloat:
		f, err := cast.ToFloat64E(cleanNumber(s))
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return dataset.Coerced(kind)
		}
		return dataset.Float(f)
	case dataset.KindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dataset.Date(t)
			}
		}
		return dataset.Coerced(kind)
	default:
		return dataset.Coerced(kind)
	}
}

// cleanNumber strips the currency prefix and thousands separators that
// billing exports carry so the remainder parses as a plain number.
func cleanNumber(s string) string {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}
