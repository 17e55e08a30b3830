package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths.
// This is the single source of truth for ALL file paths in the application.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ReportsDir    string
	LogsDir       string
	MetricsFile   string
}

// ResolvePaths turns the configured path strings into absolute paths.
// Relative entries are ALWAYS resolved against the executable directory,
// never the current working directory, so the tool behaves identically when
// launched from a scheduler, a shell or a double-click.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	exeDir := filepath.Dir(exe)

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(exeDir, p)
	}

	paths := &Paths{
		ExecutableDir: exeDir,
		DataDir:       resolve(cfg.DataDir),
		ReportsDir:    resolve(cfg.ReportsDir),
		LogsDir:       resolve(cfg.LogsDir),
		MetricsFile:   resolve(cfg.MetricsFile),
	}

	return paths, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// Resolve returns a path relative to the executable directory
func (p *Paths) Resolve(subpath string) string {
	if filepath.IsAbs(subpath) {
		return subpath
	}
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// outputStem returns the input file name without its extension.
func outputStem(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CleanedCSVPath returns the cleaned-table output path for an input file:
// the input stem with a _cleaned suffix, under dir.
func CleanedCSVPath(dir, inputPath string) string {
	return filepath.Join(dir, outputStem(inputPath)+CleanedCSVSuffix)
}

// SummaryPath returns the human-readable run summary path for an input file.
func SummaryPath(dir, inputPath string) string {
	return filepath.Join(dir, outputStem(inputPath)+SummarySuffix)
}

// ReportJSONPath returns the machine-readable run report path for an input file.
func ReportJSONPath(dir, inputPath string) string {
	return filepath.Join(dir, outputStem(inputPath)+ReportJSONSuffix)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("metrics_file", p.MetricsFile))
}
