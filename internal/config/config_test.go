package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	// Save original environment to restore later
	originalEnv := make(map[string]string)
	envVars := []string{
		"MEDSCRUB_LOGGING_LEVEL", "MEDSCRUB_LOGGING_FORMAT", "MEDSCRUB_LOGGING_OUTPUT",
		"MEDSCRUB_LOGGING_FILE_PATH",
		"MEDSCRUB_PATHS_DATA_DIR", "MEDSCRUB_PATHS_REPORTS_DIR", "MEDSCRUB_PATHS_LOGS_DIR",
		"MEDSCRUB_PATHS_METRICS_FILE",
		"MEDSCRUB_PIPELINE_DATE_POLICY", "MEDSCRUB_PIPELINE_RULESET_FILE",
		"MEDSCRUB_PIPELINE_RUN_TIMEOUT", "MEDSCRUB_PIPELINE_WRITE_BOM",
		"MEDSCRUB_OBSERVABILITY_TRACE_EXPORTER", "MEDSCRUB_OBSERVABILITY_METRIC_EXPORTER",
		"MEDSCRUB_OBSERVABILITY_SAMPLE_RATIO",
	}

	for _, envVar := range envVars {
		originalEnv[envVar] = os.Getenv(envVar)
	}

	defer func() {
		for _, envVar := range envVars {
			if val, exists := originalEnv[envVar]; exists && val != "" {
				os.Setenv(envVar, val)
			} else {
				os.Unsetenv(envVar)
			}
		}
	}()

	clearEnv := func() {
		for _, envVar := range envVars {
			os.Unsetenv(envVar)
		}
	}

	tests := []struct {
		name        string
		setupEnv    func()
		setupFile   func(t *testing.T) string // returns config file path
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name:     "default configuration with no env vars",
			setupEnv: clearEnv,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, "logs/medscrub.log", cfg.Logging.FilePath)

				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "reports", cfg.Paths.ReportsDir)
				assert.Equal(t, "logs", cfg.Paths.LogsDir)
				assert.Equal(t, "reports/medscrub_metrics.prom", cfg.Paths.MetricsFile)

				assert.Equal(t, DatePolicySwap, cfg.Pipeline.DatePolicy)
				assert.Equal(t, time.Duration(0), cfg.Pipeline.RunTimeout)
				assert.False(t, cfg.Pipeline.WriteBOM)

				assert.Equal(t, "none", cfg.Observability.TraceExporter)
				assert.Equal(t, "prometheus", cfg.Observability.MetricExporter)
				assert.Equal(t, 1.0, cfg.Observability.SampleRatio)
			},
		},
		{
			name: "custom environment variables",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_LOGGING_LEVEL", "debug")
				os.Setenv("MEDSCRUB_LOGGING_OUTPUT", "stdout")
				os.Setenv("MEDSCRUB_PIPELINE_DATE_POLICY", "null_out_end")
				os.Setenv("MEDSCRUB_PIPELINE_RUN_TIMEOUT", "30m")
				os.Setenv("MEDSCRUB_PIPELINE_WRITE_BOM", "true")
				os.Setenv("MEDSCRUB_OBSERVABILITY_METRIC_EXPORTER", "none")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "stdout", cfg.Logging.Output)
				assert.Equal(t, DatePolicyNullOutEnd, cfg.Pipeline.DatePolicy)
				assert.Equal(t, 30*time.Minute, cfg.Pipeline.RunTimeout)
				assert.True(t, cfg.Pipeline.WriteBOM)
				assert.Equal(t, "none", cfg.Observability.MetricExporter)
			},
		},
		{
			name: "text log format is normalized to json",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_LOGGING_FORMAT", "text")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "invalid log level",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_LOGGING_LEVEL", "verbose")
			},
			wantErr: true,
		},
		{
			name: "invalid date policy",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_PIPELINE_DATE_POLICY", "ignore")
			},
			wantErr: true,
		},
		{
			name: "invalid trace exporter",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_OBSERVABILITY_TRACE_EXPORTER", "jaeger")
			},
			wantErr: true,
		},
		{
			name: "sample ratio above one",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_OBSERVABILITY_SAMPLE_RATIO", "1.5")
			},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			setupEnv: func() {
				clearEnv()
				os.Setenv("MEDSCRUB_LOGGING_LEVEL", "debug")
			},
			setupFile: func(t *testing.T) string {
				configFile := filepath.Join(t.TempDir(), "medscrub.yaml")
				configContent := `
logging:
  level: warn
  output: file
pipeline:
  date_policy: null_out_end
paths:
  reports_dir: out
`
				require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))
				return configFile
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				// env wins over file
				assert.Equal(t, "debug", cfg.Logging.Level)
				// file wins over defaults
				assert.Equal(t, "file", cfg.Logging.Output)
				assert.Equal(t, DatePolicyNullOutEnd, cfg.Pipeline.DatePolicy)
				assert.Equal(t, "out", cfg.Paths.ReportsDir)
				// untouched fields fall back to defaults
				assert.Equal(t, "data", cfg.Paths.DataDir)
			},
		},
		{
			name:     "explicit config file that does not exist",
			setupEnv: clearEnv,
			setupFile: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			wantErr: true,
		},
		{
			name:     "config file with malformed yaml",
			setupEnv: clearEnv,
			setupFile: func(t *testing.T) string {
				configFile := filepath.Join(t.TempDir(), "medscrub.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte("logging: [not, a, map"), 0644))
				return configFile
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()

			configFile := ""
			if tt.setupFile != nil {
				configFile = tt.setupFile(t)
			}

			cfg, err := Load(configFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

// TestDefault verifies the built-in defaults are internally valid
func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.validate())
}

// TestRulesetValidate tests ruleset cross-reference validation
func TestRulesetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(rs *Ruleset)
		wantErr string
	}{
		{
			name:   "default ruleset is valid",
			mutate: func(rs *Ruleset) {},
		},
		{
			name: "duplicate column declaration",
			mutate: func(rs *Ruleset) {
				rs.Columns = append(rs.Columns, ColumnSpec{Name: "Age", Kind: "decimal"})
			},
			wantErr: "twice",
		},
		{
			name: "text rule against undeclared column",
			mutate: func(rs *Ruleset) {
				rs.Text = append(rs.Text, TextRuleSpec{Column: "Surgeon", Mode: "person_name"})
			},
			wantErr: "does not declare",
		},
		{
			name: "categorical rule against a date column",
			mutate: func(rs *Ruleset) {
				rs.Categorical = append(rs.Categorical, CategoricalRuleSpec{
					Column:   "Date of Admission",
					Accepted: []string{"x"},
					Policy:   "to_absent",
				})
			},
			wantErr: "requires a",
		},
		{
			name: "to_sentinel without a sentinel",
			mutate: func(rs *Ruleset) {
				rs.Categorical = append(rs.Categorical, CategoricalRuleSpec{
					Column:   "Medical Condition",
					Accepted: []string{"Diabetes"},
					Policy:   "to_sentinel",
				})
			},
			wantErr: "validation failed",
		},
		{
			name: "numeric rule with max below min",
			mutate: func(rs *Ruleset) {
				rs.Numeric = append(rs.Numeric, NumericRuleSpec{
					Column:   "Age",
					Min:      10,
					Max:      5,
					Policies: []string{"to_absent"},
				})
			},
			wantErr: "below min",
		},
		{
			name: "unknown numeric policy",
			mutate: func(rs *Ruleset) {
				rs.Numeric[0].Policies = []string{"round_to_even"}
			},
			wantErr: "validation failed",
		},
		{
			name: "date rule start column is not a date",
			mutate: func(rs *Ruleset) {
				rs.Dates = &DateRuleSpec{Start: "Age", End: "Discharge Date"}
			},
			wantErr: "requires a",
		},
		{
			name: "fixed bucket label count mismatch",
			mutate: func(rs *Ruleset) {
				rs.Derived.Buckets[0].Labels = []string{"Child", "Adult"}
			},
			wantErr: "labels",
		},
		{
			name: "fixed bucket bounds not increasing",
			mutate: func(rs *Ruleset) {
				rs.Derived.Buckets[0].Bounds = []float64{0, 18, 18, 50, 65, 100}
			},
			wantErr: "strictly increasing",
		},
		{
			name: "quantile bucket label count mismatch",
			mutate: func(rs *Ruleset) {
				rs.Derived.Buckets[1].Labels = []string{"Low", "High"}
			},
			wantErr: "labels",
		},
		{
			name: "quantile outside the open unit interval",
			mutate: func(rs *Ruleset) {
				rs.Derived.Buckets[1].Quantiles = []float64{0.25, 0.5, 1.0}
				rs.Derived.Buckets[1].Labels = []string{"Low", "Medium", "High", "Very_High"}
			},
			wantErr: "validation failed",
		},
		{
			name: "unknown column kind",
			mutate: func(rs *Ruleset) {
				rs.Columns[0].Kind = "varchar"
			},
			wantErr: "validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := DefaultRuleset()
			tt.mutate(rs)

			err := rs.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestLoadRuleset tests reading a ruleset from YAML
func TestLoadRuleset(t *testing.T) {
	t.Run("valid ruleset file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ruleset.yaml")
		content := `
columns:
  - name: Patient
    kind: text
  - name: Score
    kind: decimal
  - name: Visit Date
    kind: date
dedup:
  enabled: true
numeric:
  - column: Score
    min: 0
    max: 10
    policies: [to_absent]
imputation:
  mode_threshold: 0.05
  default_sentinel: Unknown
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		rs, err := LoadRuleset(path)
		require.NoError(t, err)
		require.Len(t, rs.Columns, 3)
		assert.Equal(t, "Patient", rs.Columns[0].Name)
		assert.True(t, rs.Dedup.Enabled)
		require.Len(t, rs.Numeric, 1)
		assert.Equal(t, []string{"to_absent"}, rs.Numeric[0].Policies)
		assert.Equal(t, 0.05, rs.Imputation.ModeThreshold)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRuleset(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("rejects rule against undeclared column", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ruleset.yaml")
		content := `
columns:
  - name: Patient
    kind: text
numeric:
  - column: Score
    min: 0
    max: 10
    policies: [to_absent]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := LoadRuleset(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not declare")
	})
}

// TestDefaultRuleset spot-checks the shipped hospital thresholds
func TestDefaultRuleset(t *testing.T) {
	rs := DefaultRuleset()

	require.NoError(t, rs.Validate())
	assert.Len(t, rs.Columns, 15)
	assert.True(t, rs.Dedup.Enabled)

	var billing *NumericRuleSpec
	for i := range rs.Numeric {
		if rs.Numeric[i].Column == "Billing Amount" {
			billing = &rs.Numeric[i]
		}
	}
	require.NotNil(t, billing)
	assert.Equal(t, []string{"reflect_to_positive", "clamp_upper_and_null_lower"}, billing.Policies)
	assert.Equal(t, 1.0, billing.Min)
	assert.Equal(t, 1_000_000.0, billing.Max)

	assert.Equal(t, "Self-Pay", rs.Imputation.Sentinels["Insurance Provider"])
	assert.Equal(t, "No Medication", rs.Imputation.Sentinels["Medication"])
	assert.Equal(t, []string{"Name"}, rs.Imputation.Drop)
	assert.Contains(t, rs.Imputation.PreferMode, "Gender")
	assert.Equal(t, 0.05, rs.Imputation.ModeThreshold)

	require.NotNil(t, rs.Dates)
	assert.Equal(t, "Date of Admission", rs.Dates.Start)
	assert.Equal(t, "Discharge Date", rs.Dates.End)
}
