// Package identity derives typed file identities from result workbook
// filenames. Parsing is pure: no I/O, no side effects, deterministic.
//
// Detail workbooks follow the convention
//
//	<unit>__<site>__<status>__<code>.xlsx
//
// with a double-underscore delimiter. Any filename containing the overall
// summary marker token is the single aggregate workbook regardless of its
// delimiter structure. Everything else is unrecognized and must be skipped
// by callers.
package identity

import (
	"strings"
)

// Defaults for the filename convention.
const (
	DefaultExtension = ".xlsx"
	DefaultDelimiter = "__"
	DefaultMarker    = "overall_summary"
)

// Minimum delimiter-separated segments for a detail workbook filename.
const detailSegments = 4

// Kind classifies a recognized file.
type Kind string

const (
	// KindDetail is a per-unit workbook with fine-grained measurement sheets.
	KindDetail Kind = "detail"

	// KindSummary is the single workbook holding one row per unit.
	KindSummary Kind = "summary"
)

// FileIdentity is the typed identity derived from a filename. It is never
// mutated after creation.
type FileIdentity struct {
	Filename string `json:"filename"`
	Kind     Kind   `json:"kind"`

	// Set for KindDetail only, positionally from the filename segments.
	UnitName string `json:"unitName,omitempty"`
	Site     string `json:"site,omitempty"`
	Status   string `json:"status,omitempty"`
	Code     string `json:"code,omitempty"`
}

// IsDetail reports whether the identity describes a per-unit detail workbook.
func (f *FileIdentity) IsDetail() bool { return f.Kind == KindDetail }

// IsSummary reports whether the identity describes the overall summary workbook.
func (f *FileIdentity) IsSummary() bool { return f.Kind == KindSummary }

// Parser maps filenames to identities according to a fixed convention.
type Parser struct {
	extension string
	delimiter string
	marker    string
}

// NewParser creates a Parser for the given extension (case-insensitive),
// segment delimiter, and overall summary marker token. Empty arguments fall
// back to the package defaults.
func NewParser(extension, delimiter, marker string) *Parser {
	if extension == "" {
		extension = DefaultExtension
	}

	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	if marker == "" {
		marker = DefaultMarker
	}

	return &Parser{extension: extension, delimiter: delimiter, marker: marker}
}

// Default returns a Parser using the package default convention.
func Default() *Parser {
	return NewParser(DefaultExtension, DefaultDelimiter, DefaultMarker)
}

// Parse maps a filename to its identity. It returns nil for unrecognized
// filenames; callers must treat nil as "skip, do not index".
func (p *Parser) Parse(filename string) *FileIdentity {
	name := p.stripExtension(filename)

	parts := strings.Split(name, p.delimiter)
	if len(parts) >= detailSegments {
		// Segments beyond the fourth are ignored; the 4-segment prefix is
		// authoritative.
		return &FileIdentity{
			Filename: filename,
			Kind:     KindDetail,
			UnitName: parts[0],
			Site:     parts[1],
			Status:   parts[2],
			Code:     parts[3],
		}
	}

	if strings.Contains(name, p.marker) {
		return &FileIdentity{
			Filename: filename,
			Kind:     KindSummary,
		}
	}

	return nil
}

// Supported reports whether the filename carries the parser's extension,
// compared case-insensitively.
func (p *Parser) Supported(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), strings.ToLower(p.extension))
}

// stripExtension removes the configured extension, case-insensitively.
func (p *Parser) stripExtension(filename string) string {
	if p.Supported(filename) {
		return filename[:len(filename)-len(p.extension)]
	}

	return filename
}
