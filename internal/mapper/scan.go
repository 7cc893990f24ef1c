// Package mapper scans the data directory, classifies result workbooks by
// filename, and maintains the unit index, manifest, and mapping report that
// the rest of the service and browser clients consume.
package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/scorewatch/scorewatch/internal/identity"
)

// Well-known artifact names inside the data directory.
const (
	ManifestFilename   = "file_list.json"
	ReportFilename     = "mapping_report.json"
	ReportTextFilename = "mapping_report.txt"
)

// Scanner scans a single data directory and persists the manifest and
// mapping report on every run. The previous artifacts are rewritten
// wholesale, never incrementally patched.
type Scanner struct {
	dir    string
	parser *identity.Parser
	logger *slog.Logger
}

// NewScanner creates a Scanner over dir using the given filename parser.
func NewScanner(dir string, parser *identity.Parser, logger *slog.Logger) *Scanner {
	if parser == nil {
		parser = identity.Default()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{dir: dir, parser: parser, logger: logger}
}

// Dir returns the scanned data directory.
func (s *Scanner) Dir() string { return s.dir }

// Result holds the complete outcome of one scan. Consumers swap the whole
// Result atomically; there are no partial views.
type Result struct {
	// Manifest is the sorted list of recognized filenames.
	Manifest []string

	// Index is the freshly built unit index.
	Index *UnitIndex

	// Report is the regenerated mapping report.
	Report *Report

	// Unrecognized counts supported files that matched no convention.
	Unrecognized int

	// Duration is the elapsed wall time of the scan.
	Duration time.Duration
}

// Scan lists the data directory, classifies every supported file, rebuilds
// the unit index, and persists the manifest and mapping report. Unrecognized
// filenames are excluded silently, they are not an error. A directory
// listing failure is fatal to this scan attempt only.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	s.logger.Info("scanning data directory", slog.String("dir", s.dir))

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %q: %w", s.dir, err)
	}

	var (
		supported []string
		ids       []*identity.FileIdentity
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !s.parser.Supported(name) {
			continue
		}

		supported = append(supported, name)

		if id := s.parser.Parse(name); id != nil {
			ids = append(ids, id)
		}
	}

	// Directory listing order is platform-dependent; sort for idempotence.
	sort.Strings(supported)

	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i].Filename < ids[j].Filename
	})

	manifest := make([]string, 0, len(ids))
	for _, id := range ids {
		manifest = append(manifest, id.Filename)
	}

	result := &Result{
		Manifest:     manifest,
		Index:        BuildIndex(ids),
		Report:       NewReport(ids, len(supported), start),
		Unrecognized: len(supported) - len(ids),
	}

	if err := s.writeManifest(manifest); err != nil {
		return nil, err
	}

	if err := s.writeReport(result.Report); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)

	s.logger.Info("scan complete",
		slog.Int("totalFiles", len(supported)),
		slog.Int("detailFiles", len(result.Report.DetailFiles)),
		slog.Int("units", result.Index.UnitCount()),
		slog.Int("unrecognized", result.Unrecognized),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// writeManifest persists the recognized filename list as a JSON array.
func (s *Scanner) writeManifest(files []string) error {
	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	path := filepath.Join(s.dir, ManifestFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	s.logger.Debug("manifest written", slog.String("path", path), slog.Int("files", len(files)))

	return nil
}

// writeReport persists the mapping report as JSON plus a text rendering.
func (s *Scanner) writeReport(r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling mapping report: %w", err)
	}

	jsonPath := filepath.Join(s.dir, ReportFilename)
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("writing mapping report: %w", err)
	}

	textPath := filepath.Join(s.dir, ReportTextFilename)
	if err := os.WriteFile(textPath, []byte(r.Text()), 0o644); err != nil {
		return fmt.Errorf("writing mapping report text: %w", err)
	}

	s.logger.Debug("mapping report written", slog.String("path", jsonPath))

	return nil
}

// LoadManifest reads a persisted manifest file (a JSON array of filenames).
// Readers must tolerate a manifest that is mid-write; any failure here is
// recoverable by falling back to last-known-good or embedded defaults.
func LoadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("parsing manifest %q: %w", path, err)
	}

	return files, nil
}

// IndexFromManifest parses a filename list and builds a UnitIndex from it.
// This is the client-side load path: it must reproduce the exact parsing
// behavior of a server-side scan over the same names.
func IndexFromManifest(files []string, parser *identity.Parser) *UnitIndex {
	if parser == nil {
		parser = identity.Default()
	}

	ids := make([]*identity.FileIdentity, 0, len(files))
	for _, name := range files {
		if id := parser.Parse(name); id != nil {
			ids = append(ids, id)
		}
	}

	return BuildIndex(ids)
}
