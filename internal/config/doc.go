// Package config provides centralized configuration management for medscrub.
// It handles loading configuration from multiple sources, validation, and
// provides a type-safe API for accessing configuration values throughout the
// application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern MEDSCRUB_* for namespacing:
//
//	MEDSCRUB_LOGGING_LEVEL=debug
//	MEDSCRUB_PIPELINE_DATE_POLICY=null_out_end
//	MEDSCRUB_OBSERVABILITY_METRIC_EXPORTER=none
//
// # Rulesets
//
// Business thresholds live in a separate ruleset document, not in Config: the
// expected column schema, accepted value sets, valid ranges, repair policies,
// fill strategies and derived features. LoadRuleset reads one from YAML, and
// DefaultRuleset returns the hospital-records ruleset the tool ships with.
// Keeping thresholds out of code means a new dataset shape needs a new YAML
// file, not a rebuild.
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which resolves all configured paths relative to the executable location:
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	out := config.CleanedCSVPath(paths.ReportsDir, "admissions.csv")
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
