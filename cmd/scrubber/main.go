// Command scrubber cleans hospital admission exports. It loads CSV or XLSX
// files, runs the rule pipeline against each one and writes the cleaned CSV
// together with a plain-text summary and a JSON run report.
//
// The -in flag names a single file or a directory to scan for cleanable
// files. The exit code is nonzero when any file fails, and a failed file
// produces no output at all.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"medscrub/internal/config"
	"medscrub/internal/exporter"
	"medscrub/internal/infrastructure"
	"medscrub/internal/ingest"
	"medscrub/internal/pipeline"
	"medscrub/internal/rules"
)

func main() {
	os.Exit(run())
}

func run() int {
	inPath := flag.String("in", "", "input file, or a directory to scan for .csv/.xlsx files (defaults to the data directory)")
	outDir := flag.String("out", "", "output directory for cleaned files (defaults to the reports directory)")
	configFile := flag.String("config", "", "path to the configuration file (defaults to "+config.DefaultConfigFile+")")
	rulesetFile := flag.String("ruleset", "", "path to a ruleset file (defaults to the built-in hospital ruleset)")
	datePolicy := flag.String("date-policy", "", "date repair policy, swap or null_out_end (overrides configuration)")
	traceStdout := flag.Bool("trace", false, "emit OpenTelemetry spans to stdout")
	quiet := flag.Bool("quiet", false, "log to file only")
	flag.Parse()

	// Load .env if present; real environment variables win.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded .env file")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}

	if *datePolicy != "" {
		if *datePolicy != config.DatePolicySwap && *datePolicy != config.DatePolicyNullOutEnd {
			slog.Error("Unknown date policy", "policy", *datePolicy)
			return 1
		}
		cfg.Pipeline.DatePolicy = *datePolicy
	}
	if *traceStdout {
		cfg.Observability.TraceExporter = "stdout"
	}
	if *quiet {
		cfg.Logging.Output = "file"
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		slog.Error("Failed to resolve paths", "error", err)
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		return 1
	}
	if *inPath == "" {
		*inPath = paths.DataDir
	}
	if *outDir == "" {
		*outDir = paths.ReportsDir
	}
	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.Resolve(cfg.Logging.FilePath)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting cleaning run",
		slog.String("input", *inPath),
		slog.String("output_dir", *outDir),
		slog.String("date_policy", cfg.Pipeline.DatePolicy))
	paths.LogPathResolution()

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.TraceExporter = cfg.Observability.TraceExporter
	otelCfg.EnableTracing = cfg.Observability.TraceExporter != "none"
	otelCfg.MetricExporter = cfg.Observability.MetricExporter
	otelCfg.EnableMetrics = cfg.Observability.MetricExporter != "none"
	otelCfg.SampleRatio = cfg.Observability.SampleRatio

	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	rs, err := loadRuleset(*rulesetFile, cfg, paths)
	if err != nil {
		logger.Error("Failed to load ruleset", slog.String("error", err.Error()))
		return 1
	}

	registry := pipeline.NewRegistry()
	if err := rules.Register(registry, rs, cfg.Pipeline.DatePolicy); err != nil {
		logger.Error("Failed to build rule pipeline", slog.String("error", err.Error()))
		return 1
	}

	runner := pipeline.NewRunner(registry, logger)
	if providers.TracerProvider != nil || providers.MeterProvider != nil {
		tracer, err := pipeline.NewPipelineTracer(providers)
		if err != nil {
			logger.Warn("Telemetry instrumentation disabled", slog.String("error", err.Error()))
		} else {
			runner.SetTracer(tracer)
		}
	}

	ingestLogger := infrastructure.WithComponent(logger, "ingest")
	validator := ingest.NewFileValidator(ingestLogger)
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		logger.Error("Output directory not usable", slog.String("error", err.Error()))
		return 1
	}

	inputs, err := collectInputs(*inPath, validator)
	if err != nil {
		logger.Error("Failed to collect input files", slog.String("error", err.Error()))
		return 1
	}
	if len(inputs) == 0 {
		logger.Warn("No cleanable files found", slog.String("input", *inPath))
		fmt.Println("Found 0 files to clean")
		return 0
	}

	fmt.Printf("Found %d files to clean\n", len(inputs))

	loader := ingest.NewLoader(rs, ingestLogger)
	csvWriter := exporter.NewCSVWriter(cfg.Pipeline.WriteBOM)
	summaryWriter := exporter.NewSummaryWriter()

	ctx := context.Background()
	startTime := time.Now()
	cleaned, failed := 0, 0
	for i, input := range inputs {
		fmt.Printf("Cleaning file %d of %d: %s\n", i+1, len(inputs), input.Name)

		if err := cleanFile(ctx, input, *outDir, cfg.Pipeline.RunTimeout,
			validator, loader, runner, csvWriter, summaryWriter, logger); err != nil {
			logger.Error("Cleaning failed",
				slog.String("file", input.Name),
				slog.String("error", err.Error()))
			failed++
			continue
		}
		cleaned++
	}

	if providers.Meter != nil {
		if rt, err := infrastructure.NewRuntimeMetrics(providers.Meter); err != nil {
			logger.Warn("Failed to create runtime metrics", slog.String("error", err.Error()))
		} else {
			stats := rt.Collect(ctx, startTime)
			logger.Info("Run resource usage",
				slog.Int64("goroutines", stats.Goroutines),
				slog.Int64("heap_alloc_bytes", stats.HeapAlloc),
				slog.Duration("uptime", stats.Uptime))
		}
	}

	if err := providers.WriteMetricsTextfile(paths.MetricsFile); err != nil {
		logger.Warn("Failed to write metrics textfile",
			slog.String("path", paths.MetricsFile),
			slog.String("error", err.Error()))
	}

	logger.Info("Cleaning run finished",
		slog.Int("cleaned", cleaned),
		slog.Int("failed", failed))
	fmt.Printf("Cleaning complete: %d cleaned, %d failed\n", cleaned, failed)

	if failed > 0 {
		return 1
	}
	return 0
}

// loadRuleset picks the ruleset source: the -ruleset flag wins, then the
// configured file, then the built-in hospital ruleset.
func loadRuleset(flagPath string, cfg *config.Config, paths *config.Paths) (*config.Ruleset, error) {
	path := flagPath
	if path == "" && cfg.Pipeline.RulesetFile != "" {
		path = cfg.Pipeline.RulesetFile
		if !filepath.IsAbs(path) {
			path = paths.Resolve(path)
		}
	}
	if path == "" {
		return config.DefaultRuleset(), nil
	}
	return config.LoadRuleset(path)
}

// collectInputs resolves what to clean: a single file, or every cleanable
// file in a directory.
func collectInputs(in string, validator *ingest.FileValidator) ([]ingest.FileInfo, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("input path %s: %w", in, err)
	}
	if info.IsDir() {
		if _, err := validator.ValidateInputDirectory(in); err != nil {
			return nil, err
		}
		return ingest.DiscoverInputs(in)
	}
	return []ingest.FileInfo{{
		Path:    in,
		Name:    filepath.Base(in),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}}, nil
}

// cleanFile runs the pipeline against one input and writes its artifacts.
// Nothing is written when any step fails, so outputs are all or nothing.
func cleanFile(ctx context.Context, input ingest.FileInfo, outDir string, timeout time.Duration,
	validator *ingest.FileValidator, loader *ingest.Loader, runner *pipeline.Runner,
	csvWriter *exporter.CSVWriter, summaryWriter *exporter.SummaryWriter, logger *slog.Logger) error {

	if err := validator.ValidateInputFile(input.Path); err != nil {
		return err
	}

	tbl, err := loader.Load(input.Path)
	if err != nil {
		return err
	}

	runCtx := infrastructure.EnsureTraceID(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	report, err := runner.Run(runCtx, tbl, input.Name)
	if err != nil {
		return err
	}

	cleanedPath := config.CleanedCSVPath(outDir, input.Path)
	if err := csvWriter.WriteTable(cleanedPath, tbl); err != nil {
		return err
	}
	if err := summaryWriter.WriteSummary(config.SummaryPath(outDir, input.Path), report, tbl); err != nil {
		return err
	}
	if err := summaryWriter.WriteReportJSON(config.ReportJSONPath(outDir, input.Path), report); err != nil {
		return err
	}

	logger.Info("File cleaned",
		slog.String("file", input.Name),
		slog.String("output", cleanedPath),
		slog.Int("rows_before", report.RowsBefore),
		slog.Int("rows_after", report.RowsAfter),
		slog.Int("remaining_missing_columns", len(report.RemainingMissing)))
	fmt.Printf("  %s: %d rows in, %d rows out\n", input.Name, report.RowsBefore, report.RowsAfter)
	return nil
}
