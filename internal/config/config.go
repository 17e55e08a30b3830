package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Paths         PathsConfig         `yaml:"paths" envconfig:"PATHS"`
	Pipeline      PipelineConfig      `yaml:"pipeline" envconfig:"PIPELINE"`
	Observability ObservabilityConfig `yaml:"observability" envconfig:"OBSERVABILITY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir  string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// PipelineConfig contains pipeline execution configuration
type PipelineConfig struct {
	// DatePolicy selects the date-order repair: "swap" exchanges the pair
	// and re-verifies, "null_out_end" discards the untrustworthy end date.
	DatePolicy  string        `yaml:"date_policy" envconfig:"DATE_POLICY"`
	RulesetFile string        `yaml:"ruleset_file" envconfig:"RULESET_FILE"`
	// RunTimeout is an operational safeguard around the whole run.
	// Zero disables it.
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
	// WriteBOM prefixes output CSVs with a UTF-8 BOM for Excel compatibility.
	WriteBOM bool `yaml:"write_bom" envconfig:"WRITE_BOM"`
}

// ObservabilityConfig contains tracing and metrics configuration
type ObservabilityConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load loads configuration from environment variables and an optional config
// file. Precedence: environment over file over built-in defaults.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("MEDSCRUB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Format == "" {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.ReportsDir == "" {
		envConfig.Paths.ReportsDir = fileConfig.Paths.ReportsDir
	}
	if envConfig.Paths.LogsDir == "" {
		envConfig.Paths.LogsDir = fileConfig.Paths.LogsDir
	}
	if envConfig.Paths.MetricsFile == "" {
		envConfig.Paths.MetricsFile = fileConfig.Paths.MetricsFile
	}

	if envConfig.Pipeline.DatePolicy == "" {
		envConfig.Pipeline.DatePolicy = fileConfig.Pipeline.DatePolicy
	}
	if envConfig.Pipeline.RulesetFile == "" {
		envConfig.Pipeline.RulesetFile = fileConfig.Pipeline.RulesetFile
	}
	if envConfig.Pipeline.RunTimeout == 0 {
		envConfig.Pipeline.RunTimeout = fileConfig.Pipeline.RunTimeout
	}
	if !envConfig.Pipeline.WriteBOM {
		envConfig.Pipeline.WriteBOM = fileConfig.Pipeline.WriteBOM
	}

	if envConfig.Observability.TraceExporter == "" {
		envConfig.Observability.TraceExporter = fileConfig.Observability.TraceExporter
	}
	if envConfig.Observability.MetricExporter == "" {
		envConfig.Observability.MetricExporter = fileConfig.Observability.MetricExporter
	}
	if envConfig.Observability.SampleRatio == 0 {
		envConfig.Observability.SampleRatio = fileConfig.Observability.SampleRatio
	}

	return envConfig
}

// applyDefaults fills any field left unset by environment and file
func (c *Config) applyDefaults() {
	def := Default()

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = def.Logging.FilePath
	}

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = def.Paths.DataDir
	}
	if c.Paths.ReportsDir == "" {
		c.Paths.ReportsDir = def.Paths.ReportsDir
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = def.Paths.LogsDir
	}
	if c.Paths.MetricsFile == "" {
		c.Paths.MetricsFile = def.Paths.MetricsFile
	}

	if c.Pipeline.DatePolicy == "" {
		c.Pipeline.DatePolicy = def.Pipeline.DatePolicy
	}

	if c.Observability.TraceExporter == "" {
		c.Observability.TraceExporter = def.Observability.TraceExporter
	}
	if c.Observability.MetricExporter == "" {
		c.Observability.MetricExporter = def.Observability.MetricExporter
	}
	if c.Observability.SampleRatio == 0 {
		c.Observability.SampleRatio = def.Observability.SampleRatio
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Output is always machine-readable JSON; normalize rather than reject.
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	switch c.Pipeline.DatePolicy {
	case DatePolicySwap, DatePolicyNullOutEnd:
	default:
		return fmt.Errorf("invalid date policy: %q (want %q or %q)",
			c.Pipeline.DatePolicy, DatePolicySwap, DatePolicyNullOutEnd)
	}

	if c.Pipeline.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative")
	}

	switch c.Observability.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("invalid trace exporter: %s", c.Observability.TraceExporter)
	}

	switch c.Observability.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("invalid metric exporter: %s", c.Observability.MetricExporter)
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("sample ratio must be in [0,1], got %v", c.Observability.SampleRatio)
	}

	return nil
}

// findConfigFile returns the path to the config file
func findConfigFile() string {
	locations := []string{
		DefaultConfigFile,
		"configs/" + DefaultConfigFile,
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Date-order repair policies
const (
	DatePolicySwap       = "swap"
	DatePolicyNullOutEnd = "null_out_end"
)

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DataDir:     DefaultDataDir,
			ReportsDir:  DefaultReportsDir,
			LogsDir:     DefaultLogsDir,
			MetricsFile: DefaultMetricsFile,
		},
		Pipeline: PipelineConfig{
			DatePolicy: DatePolicySwap,
			RunTimeout: 0,
			WriteBOM:   false,
		},
		Observability: ObservabilityConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
