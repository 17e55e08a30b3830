package rules

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
	"medscrub/internal/pipeline"
)

// Text normalization modes.
const (
	ModePersonName = "person_name"
	ModeFacility   = "facility"
	ModeTitle      = "title"
)

var (
	// irregularCaps is the diagnostic heuristic for badly cased names: a
	// lowercase letter immediately followed by an uppercase one, or an
	// upper-lower-upper run. The reported count comes from this pattern, not
	// from a pre/post diff, so it is an estimate.
	irregularCaps = regexp.MustCompile(`[a-z][A-Z]|[A-Z][a-z][A-Z]`)

	honorificPrefix = regexp.MustCompile(`(?i)^(mr\.|mrs\.|dr\.|ms\.)\s*`)
	whitespaceRun   = regexp.MustCompile(`\s+`)

	// companySuffix canonicalizes the casing of common company forms in
	// facility names.
	companySuffix = regexp.MustCompile(`(?i)\b(llc|plc|inc|ltd)\b`)
	companyForms  = map[string]string{
		"llc": "LLC",
		"plc": "PLC",
		"inc": "Inc",
		"ltd": "Ltd",
	}
)

// TextRule normalizes one free-text or categorical column. The mode selects
// the treatment: person_name strips and re-prepends a recognized honorific
// and title-cases each hyphen segment, facility trims trailing punctuation
// and canonicalizes company suffixes, title trims and title-cases words.
// Absent and empty cells pass through unchanged.
type TextRule struct {
	pipeline.BaseRule
	column string
	mode   string
}

// NewTextRule creates a text normalization rule from its spec.
func NewTextRule(spec config.TextRuleSpec) *TextRule {
	return &TextRule{
		BaseRule: pipeline.NewBaseRule(
			"text_normalize_"+columnSlug(spec.Column),
			"Normalize "+spec.Column,
			[]string{spec.Column},
		),
		column: spec.Column,
		mode:   spec.Mode,
	}
}

// Apply rewrites every present cell in the column and reports the mode's
// diagnostic count: irregular-capitalization matches for person_name,
// trailing punctuation for facility, changed cells for title.
func (r *TextRule) Apply(ctx context.Context, tbl *dataset.Table, rpt *pipeline.Report) error {
	idx, ok := tbl.ColumnIndex(r.column)
	if !ok {
		return apperrors.NewMissingColumnError(r.ID(), r.column)
	}

	switch r.mode {
	case ModeFacility:
		r.applyFacility(tbl, rpt, idx)
	case ModeTitle:
		r.applyTitle(tbl, rpt, idx)
	default:
		r.applyPersonName(tbl, rpt, idx)
	}
	return nil
}

func (r *TextRule) applyPersonName(tbl *dataset.Table, rpt *pipeline.Report, idx int) {
	irregular := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		s, ok := cell.Str()
		if !ok || s == "" {
			continue
		}
		if irregularCaps.MatchString(s) {
			irregular++
		}
		tbl.Set(row, idx, cell.WithStr(normalizePersonName(s)))
	}
	if irregular > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsNormalized, irregular, "irregular capitalization")
	}
}

func (r *TextRule) applyFacility(tbl *dataset.Table, rpt *pipeline.Report, idx int) {
	trailing := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		s, ok := cell.Str()
		if !ok || s == "" {
			continue
		}
		if strings.HasSuffix(s, ",") {
			trailing++
		}
		tbl.Set(row, idx, cell.WithStr(normalizeFacility(s)))
	}
	if trailing > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsNormalized, trailing, "trailing punctuation")
	}
}

func (r *TextRule) applyTitle(tbl *dataset.Table, rpt *pipeline.Report, idx int) {
	caser := cases.Title(language.English)
	changed := 0
	for row := 0; row < tbl.NumRows(); row++ {
		cell := tbl.At(row, idx)
		s, ok := cell.Str()
		if !ok || s == "" {
			continue
		}
		out := caser.String(strings.TrimSpace(s))
		if out == s {
			continue
		}
		tbl.Set(row, idx, cell.WithStr(out))
		changed++
	}
	if changed > 0 {
		rpt.ObserveDetail(r.ID(), r.column, pipeline.ActionCellsNormalized, changed, "title case")
	}
}

// normalizePersonName trims and collapses whitespace, strips a recognized
// honorific prefix and re-prepends it title-cased, then title-cases each
// whitespace- and hyphen-separated segment independently.
func normalizePersonName(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")

	var honorific string
	if m := honorificPrefix.FindStringSubmatch(s); m != nil {
		honorific = titleSegment(m[1]) + " "
		s = s[len(m[0]):]
	}

	parts := strings.Split(s, " ")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		segs := strings.Split(part, "-")
		for i, seg := range segs {
			segs[i] = titleSegment(seg)
		}
		out = append(out, strings.Join(segs, "-"))
	}
	return strings.TrimSpace(honorific + strings.Join(out, " "))
}

// normalizeFacility trims whitespace and trailing commas, then canonicalizes
// company-form suffixes such as LLC and Ltd.
func normalizeFacility(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ",")
	s = strings.TrimSpace(s)
	return companySuffix.ReplaceAllStringFunc(s, func(m string) string {
		return companyForms[strings.ToLower(m)]
	})
}

// titleSegment uppercases the first letter of every letter run and
// lowercases the rest, so a letter after an apostrophe or digit starts a new
// word: "o'BRIEN" becomes "O'Brien".
func titleSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			b.WriteRune(r)
			prevLetter = false
			continue
		}
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = true
	}
	return b.String()
}
