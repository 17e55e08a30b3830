package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"medscrub/internal/config"
	"medscrub/internal/dataset"
	apperrors "medscrub/internal/errors"
)

// Loader reads input files into tables typed against a ruleset schema.
type Loader struct {
	ruleset *config.Ruleset
	logger  *slog.Logger
}

// NewLoader creates a loader for the given ruleset. A nil ruleset falls back
// to the built-in hospital schema and a nil logger to slog.Default().
func NewLoader(rs *config.Ruleset, logger *slog.Logger) *Loader {
	if rs == nil {
		rs = config.DefaultRuleset()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{ruleset: rs, logger: logger}
}

// Load reads the file at path, dispatching on its extension.
func (l *Loader) Load(path string) (*dataset.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return l.LoadCSV(path)
	case ".xlsx":
		return l.LoadXLSX(path)
	default:
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("unsupported input format %q for %s", filepath.Ext(path), path), nil)
	}
}

// LoadCSV reads a delimited text file. The first record is the header; every
// following record must match its width.
func (l *Loader) LoadCSV(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("open input file %s", path), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read header of %s", path), err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	columns := make([]dataset.Column, 0, len(header))
	for _, h := range header {
		columns = append(columns, l.columnFor(h))
	}
	tbl, err := dataset.NewTable(columns)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("header of %s", path), err)
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("malformed record in %s", path), err)
		}
		row := make(dataset.Row, len(columns))
		for i := range columns {
			row[i] = parseCell(record[i], columns[i].Kind)
		}
		if err := tbl.AppendRow(row); err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("append record from %s", path), err)
		}
	}

	l.logger.Info("Loaded input file",
		slog.String("path", path),
		slog.Int("rows", tbl.NumRows()),
		slog.Int("columns", tbl.NumColumns()))
	return tbl, nil
}

// columnFor resolves a file header against the declared schema. A declared
// column keeps its declared spelling and kind regardless of how the file
// cases it; anything the schema does not know rides along as text.
func (l *Loader) columnFor(header string) dataset.Column {
	name := strings.TrimSpace(header)
	for _, spec := range l.ruleset.Columns {
		if strings.EqualFold(spec.Name, name) {
			return dataset.Column{Name: spec.Name, Kind: kindFor(spec.Kind)}
		}
	}
	return dataset.Column{Name: name, Kind: dataset.KindText}
}

// declared reports whether name matches a schema column.
func (l *Loader) declared(name string) bool {
	for _, spec := range l.ruleset.Columns {
		if strings.EqualFold(spec.Name, name) {
			return true
		}
	}
	return false
}
