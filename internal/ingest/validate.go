package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "medscrub/internal/errors"
)

// FileValidator checks inputs and output locations before a run touches them.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a validator. A nil logger falls back to
// slog.Default().
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputFile checks that path names a readable, non-empty file of a
// supported format.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(fmt.Sprintf("input file %s", path))
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("stat input file %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("input path %s is a directory", path))
	}
	if info.Size() == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("input file %s is empty", path))
	}

	name := filepath.Base(path)
	if strings.HasPrefix(name, "~$") {
		return apperrors.NewValidationError(fmt.Sprintf("input file %s is a workbook lock file", path))
	}
	if !inputPattern.MatchString(name) {
		return apperrors.NewValidationError(fmt.Sprintf("input file %s is not a supported format", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("open input file %s", path), err)
	}
	return f.Close()
}

// ValidateInputDirectory checks that dir exists and reports how many
// cleanable files it holds. An empty directory is logged, not treated as an
// error.
func (v *FileValidator) ValidateInputDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("input directory %s", dir))
	}
	if err != nil {
		return 0, apperrors.NewStorageError(fmt.Sprintf("stat input directory %s", dir), err)
	}
	if !info.IsDir() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("input path %s is not a directory", dir))
	}

	files, err := DiscoverInputs(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		v.logger.Warn("Input directory has no cleanable files", slog.String("dir", dir))
	}
	return len(files), nil
}

// ValidateOutputDirectory creates dir when needed and probes that it is
// writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("create output directory %s", dir), err)
	}

	probe := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	if err := os.Remove(probe); err != nil {
		v.logger.Warn("Could not remove write probe",
			slog.String("path", probe),
			slog.String("error", err.Error()))
	}
	return nil
}
