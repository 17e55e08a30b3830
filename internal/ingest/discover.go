package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"medscrub/internal/config"
	apperrors "medscrub/internal/errors"
)

// FileInfo describes one discovered input file.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

var inputPattern = regexp.MustCompile(config.InputFilePattern)

// DiscoverInputs lists the files under dir eligible for cleaning, sorted by
// name so batch runs are deterministic. Subdirectories are not descended
// into; workbook lock files and cleaned outputs from earlier runs are
// skipped.
func DiscoverInputs(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("read input directory %s", dir), err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !inputPattern.MatchString(entry.Name()) {
			continue
		}
		if skipInput(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// skipInput reports whether a pattern-matching file is a workbook lock file
// or the cleaned output of an earlier run. The input and output directories
// may be the same, so outputs must never be picked up as inputs.
func skipInput(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return true
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(strings.ToLower(stem), "_cleaned")
}
