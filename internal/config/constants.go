package config

// Application constants - all hardcoded values for the medscrub tool
const (
	// Application Info
	AppName    = "medscrub"
	AppVersion = "1.0.0"

	// Config Discovery
	DefaultConfigFile = "medscrub.yaml"

	// File Paths (relative to executable)
	DefaultDataDir     = "data"
	DefaultReportsDir  = "reports"
	DefaultLogsDir     = "logs"
	DefaultLogFile     = "logs/medscrub.log"
	DefaultMetricsFile = "reports/medscrub_metrics.prom"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "both"

	// Input Discovery
	// Directories are scanned non-recursively for files matching this pattern.
	InputFilePattern = `(?i)\.(csv|xlsx)$`

	// Output Naming
	CleanedCSVSuffix = "_cleaned.csv"
	SummarySuffix    = "_cleaned_summary.txt"
	ReportJSONSuffix = "_cleaned_report.json"
)
