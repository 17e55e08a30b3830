package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "medscrub/internal/errors"
)

// Ruleset holds the business thresholds the pipeline consumes: the expected
// column schema, accepted value sets, valid ranges, repair policies, fill
// strategies and derived-feature definitions. The engine itself knows none of
// these literals; they are data.
type Ruleset struct {
	Columns     []ColumnSpec          `yaml:"columns" validate:"required,min=1,dive"`
	Dedup       DedupSpec             `yaml:"dedup"`
	Text        []TextRuleSpec        `yaml:"text" validate:"dive"`
	Categorical []CategoricalRuleSpec `yaml:"categorical" validate:"dive"`
	Numeric     []NumericRuleSpec     `yaml:"numeric" validate:"dive"`
	Dates       *DateRuleSpec         `yaml:"dates"`
	Imputation  ImputationSpec        `yaml:"imputation"`
	Derived     DerivedSpec           `yaml:"derived"`
	Outliers    OutlierSpec           `yaml:"outliers"`
}

// ColumnSpec declares one expected input column.
type ColumnSpec struct {
	Name string `yaml:"name" validate:"required"`
	Kind string `yaml:"kind" validate:"required,oneof=text category integer decimal date"`
	// Monetary marks the column for skew-resistant (median) statistic fills.
	// Columns whose name mentions billing, amount, charge, cost or price are
	// treated as monetary even without the flag.
	Monetary bool `yaml:"monetary"`
}

// DedupSpec configures exact-duplicate row removal.
type DedupSpec struct {
	Enabled bool `yaml:"enabled"`
}

// TextRuleSpec configures one text normalization rule instance.
type TextRuleSpec struct {
	Column string `yaml:"column" validate:"required"`
	// Mode selects the normalization: person_name applies honorific and
	// hyphen-aware title casing, facility tidies trailing punctuation and
	// company suffixes, title trims and title-cases.
	Mode string `yaml:"mode" validate:"required,oneof=person_name facility title"`
}

// CategoricalRuleSpec configures one accepted-set validation rule instance.
type CategoricalRuleSpec struct {
	Column   string   `yaml:"column" validate:"required"`
	Accepted []string `yaml:"accepted" validate:"required,min=1"`
	Policy   string   `yaml:"policy" validate:"required,oneof=to_absent to_sentinel"`
	Sentinel string   `yaml:"sentinel" validate:"required_if=Policy to_sentinel"`
}

// NumericRuleSpec configures one numeric range rule instance. Policies apply
// in the listed order and each reports separately.
type NumericRuleSpec struct {
	Column   string   `yaml:"column" validate:"required"`
	Min      float64  `yaml:"min"`
	Max      float64  `yaml:"max"`
	Policies []string `yaml:"policies" validate:"required,min=1,dive,oneof=to_absent reflect_to_positive clamp_upper_and_null_lower"`
}

// DateRuleSpec configures the paired date consistency rule. The repair policy
// comes from PipelineConfig, not the ruleset, because it is a run decision.
type DateRuleSpec struct {
	Start string `yaml:"start" validate:"required"`
	End   string `yaml:"end" validate:"required"`
}

// ImputationSpec configures the missing-value dispatch.
type ImputationSpec struct {
	// ModeThreshold is the missing fraction below which categorical columns
	// are mode-filled instead of sentinel-filled.
	ModeThreshold float64 `yaml:"mode_threshold" validate:"gte=0,lte=1"`
	// Drop lists identifier/PII columns removed outright.
	Drop []string `yaml:"drop"`
	// PreferMode lists categorical columns that mode-fill regardless of
	// their missing fraction.
	PreferMode []string `yaml:"prefer_mode"`
	// Sentinels maps columns to their domain fill literal.
	Sentinels map[string]string `yaml:"sentinels"`
	// DefaultSentinel fills high-missing categorical columns without a
	// domain literal of their own.
	DefaultSentinel string `yaml:"default_sentinel"`
	// Keep lists columns left absent for manual review.
	Keep []string `yaml:"keep"`
}

// DerivedSpec configures the derived feature rules.
type DerivedSpec struct {
	Duration *DurationSpec `yaml:"duration"`
	Buckets  []BucketSpec  `yaml:"buckets" validate:"dive"`
}

// DurationSpec derives a whole-day duration column from a date pair.
type DurationSpec struct {
	Start  string `yaml:"start" validate:"required"`
	End    string `yaml:"end" validate:"required"`
	Target string `yaml:"target" validate:"required"`
}

// BucketSpec derives a labeled bucket column from a numeric column, using
// either fixed boundaries or quantile edges.
type BucketSpec struct {
	Source    string    `yaml:"source" validate:"required"`
	Target    string    `yaml:"target" validate:"required"`
	Kind      string    `yaml:"kind" validate:"required,oneof=fixed quantile"`
	Bounds    []float64 `yaml:"bounds"`
	Quantiles []float64 `yaml:"quantiles" validate:"dive,gt=0,lt=1"`
	Labels    []string  `yaml:"labels" validate:"required,min=1"`
}

// OutlierSpec configures the report-only IQR audit.
type OutlierSpec struct {
	Columns    []string `yaml:"columns"`
	Multiplier float64  `yaml:"multiplier" validate:"gte=0"`
}

var rulesetValidator = validator.New()

// LoadRuleset reads and validates a ruleset YAML file.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("cannot read ruleset file %s", path), err)
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("cannot parse ruleset file %s", path), err)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks structural constraints via struct tags and then the
// cross-references tags cannot express.
func (rs *Ruleset) Validate() error {
	if err := rulesetValidator.Struct(rs); err != nil {
		return apperrors.NewConfigError("ruleset validation failed", err)
	}

	kinds := make(map[string]string, len(rs.Columns))
	for _, col := range rs.Columns {
		if _, dup := kinds[col.Name]; dup {
			return apperrors.NewConfigError(fmt.Sprintf("ruleset declares column %q twice", col.Name), nil)
		}
		kinds[col.Name] = col.Kind
	}

	requireKind := func(rule, column string, accepted ...string) error {
		kind, ok := kinds[column]
		if !ok {
			return apperrors.NewConfigError(
				fmt.Sprintf("%s rule references column %q which the schema does not declare", rule, column), nil)
		}
		for _, want := range accepted {
			if kind == want {
				return nil
			}
		}
		return apperrors.NewConfigError(
			fmt.Sprintf("%s rule requires a %v column, %q is %s", rule, accepted, column, kind), nil)
	}

	for _, t := range rs.Text {
		if err := requireKind("text", t.Column, "text", "category"); err != nil {
			return err
		}
	}
	for _, c := range rs.Categorical {
		if err := requireKind("categorical", c.Column, "category"); err != nil {
			return err
		}
	}
	for _, n := range rs.Numeric {
		if err := requireKind("numeric", n.Column, "integer", "decimal"); err != nil {
			return err
		}
		if n.Max < n.Min {
			return apperrors.NewConfigError(
				fmt.Sprintf("numeric rule for %q has max %v below min %v", n.Column, n.Max, n.Min), nil)
		}
	}
	if rs.Dates != nil {
		if err := requireKind("dates", rs.Dates.Start, "date"); err != nil {
			return err
		}
		if err := requireKind("dates", rs.Dates.End, "date"); err != nil {
			return err
		}
	}

	if d := rs.Derived.Duration; d != nil {
		if err := requireKind("duration", d.Start, "date"); err != nil {
			return err
		}
		if err := requireKind("duration", d.End, "date"); err != nil {
			return err
		}
	}
	for _, b := range rs.Derived.Buckets {
		switch b.Kind {
		case "fixed":
			if len(b.Bounds) < 2 {
				return apperrors.NewConfigError(
					fmt.Sprintf("fixed bucket %q needs at least two bounds", b.Target), nil)
			}
			if len(b.Labels) != len(b.Bounds)-1 {
				return apperrors.NewConfigError(
					fmt.Sprintf("fixed bucket %q has %d labels for %d intervals", b.Target, len(b.Labels), len(b.Bounds)-1), nil)
			}
			for i := 1; i < len(b.Bounds); i++ {
				if b.Bounds[i] <= b.Bounds[i-1] {
					return apperrors.NewConfigError(
						fmt.Sprintf("fixed bucket %q bounds must be strictly increasing", b.Target), nil)
				}
			}
		case "quantile":
			if len(b.Quantiles) == 0 {
				return apperrors.NewConfigError(
					fmt.Sprintf("quantile bucket %q needs at least one quantile", b.Target), nil)
			}
			if len(b.Labels) != len(b.Quantiles)+1 {
				return apperrors.NewConfigError(
					fmt.Sprintf("quantile bucket %q has %d labels for %d intervals", b.Target, len(b.Labels), len(b.Quantiles)+1), nil)
			}
			for i := 1; i < len(b.Quantiles); i++ {
				if b.Quantiles[i] <= b.Quantiles[i-1] {
					return apperrors.NewConfigError(
						fmt.Sprintf("quantile bucket %q quantiles must be strictly increasing", b.Target), nil)
				}
			}
		}
	}

	// Outlier audit targets are not cross-checked against the schema:
	// derived columns are legal targets and exist only at run time.

	return nil
}

// DefaultRuleset returns the hospital-records ruleset the tool ships with.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Columns: []ColumnSpec{
			{Name: "Name", Kind: "text"},
			{Name: "Age", Kind: "decimal"},
			{Name: "Gender", Kind: "category"},
			{Name: "Blood Type", Kind: "category"},
			{Name: "Medical Condition", Kind: "category"},
			{Name: "Date of Admission", Kind: "date"},
			{Name: "Doctor", Kind: "text"},
			{Name: "Hospital", Kind: "text"},
			{Name: "Insurance Provider", Kind: "category"},
			{Name: "Billing Amount", Kind: "decimal", Monetary: true},
			{Name: "Room Number", Kind: "decimal"},
			{Name: "Admission Type", Kind: "category"},
			{Name: "Discharge Date", Kind: "date"},
			{Name: "Medication", Kind: "category"},
			{Name: "Test Results", Kind: "category"},
		},
		Dedup: DedupSpec{Enabled: true},
		Text: []TextRuleSpec{
			{Column: "Name", Mode: "person_name"},
			{Column: "Hospital", Mode: "facility"},
			{Column: "Insurance Provider", Mode: "title"},
			{Column: "Medication", Mode: "title"},
		},
		Categorical: []CategoricalRuleSpec{
			{Column: "Gender", Accepted: []string{"Male", "Female"}, Policy: "to_absent"},
			{Column: "Blood Type", Accepted: []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}, Policy: "to_sentinel", Sentinel: "Unknown"},
		},
		Numeric: []NumericRuleSpec{
			{Column: "Age", Min: 0, Max: 120, Policies: []string{"to_absent"}},
			{Column: "Billing Amount", Min: 1, Max: 1_000_000, Policies: []string{"reflect_to_positive", "clamp_upper_and_null_lower"}},
			{Column: "Room Number", Min: 1, Max: 9999, Policies: []string{"to_absent"}},
		},
		Dates: &DateRuleSpec{Start: "Date of Admission", End: "Discharge Date"},
		Imputation: ImputationSpec{
			ModeThreshold: 0.05,
			Drop:          []string{"Name"},
			PreferMode:    []string{"Gender", "Admission Type"},
			Sentinels: map[string]string{
				"Insurance Provider": "Self-Pay",
				"Medication":         "No Medication",
			},
			DefaultSentinel: "Unknown",
		},
		Derived: DerivedSpec{
			Duration: &DurationSpec{Start: "Date of Admission", End: "Discharge Date", Target: "Length_of_Stay"},
			Buckets: []BucketSpec{
				{
					Source: "Age",
					Target: "Age_Group",
					Kind:   "fixed",
					Bounds: []float64{0, 18, 35, 50, 65, 100},
					Labels: []string{"Child", "Young_Adult", "Adult", "Middle_Age", "Senior"},
				},
				{
					Source:    "Billing Amount",
					Target:    "Billing_Category",
					Kind:      "quantile",
					Quantiles: []float64{0.25, 0.5, 0.75},
					Labels:    []string{"Low", "Medium", "High", "Very_High"},
				},
			},
		},
		Outliers: OutlierSpec{
			Columns:    []string{"Age", "Billing Amount", "Room Number", "Length_of_Stay"},
			Multiplier: 1.5,
		},
	}
}
