package mapper

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/scorewatch/scorewatch/internal/identity"
)

// TimestampFormat is the human-readable timestamp layout used in reports
// and notification messages.
const TimestampFormat = "2006-01-02 15:04:05"

// Report is the derived, read-only view of a scan: which detail files were
// recognized, the optional overall summary file, and counts. It is
// regenerated wholesale on every scan and never consulted by logic.
type Report struct {
	DetailFiles []*identity.FileIdentity `json:"detailFiles"`
	OverallFile *identity.FileIdentity   `json:"overallFile"`
	Timestamp   string                   `json:"timestamp"`
	TotalFiles  int                      `json:"totalFiles"`
}

// NewReport builds a Report from the parsed identities of one scan.
// totalFiles counts all files with a supported extension, recognized or not.
func NewReport(ids []*identity.FileIdentity, totalFiles int, now time.Time) *Report {
	r := &Report{
		DetailFiles: []*identity.FileIdentity{},
		Timestamp:   now.Format(TimestampFormat),
		TotalFiles:  totalFiles,
	}

	for _, id := range ids {
		if id == nil {
			continue
		}

		if id.IsSummary() {
			if r.OverallFile == nil {
				r.OverallFile = id
			}

			continue
		}

		r.DetailFiles = append(r.DetailFiles, id)
	}

	return r
}

// UnitCount returns the number of distinct units among the detail files.
func (r *Report) UnitCount() int {
	units := make(map[string]struct{})
	for _, f := range r.DetailFiles {
		units[f.UnitName] = struct{}{}
	}

	return len(units)
}

// Text renders the report as a human-readable mapping document. Units are
// sorted by name so the rendering is deterministic across scans of an
// unchanged directory.
func (r *Report) Text() string {
	var b strings.Builder

	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)

	b.WriteString(rule + "\n")
	b.WriteString("Unit to detail file mapping report\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.Timestamp)
	b.WriteString(rule + "\n\n")

	if r.OverallFile != nil {
		fmt.Fprintf(&b, "Overall summary file: %s\n\n", r.OverallFile.Filename)
	} else {
		b.WriteString("Overall summary file: not found\n\n")
	}

	fmt.Fprintf(&b, "Detail files: %d\n", len(r.DetailFiles))
	fmt.Fprintf(&b, "Units: %d\n\n", r.UnitCount())

	b.WriteString(thin + "\n")
	b.WriteString("Mapping:\n")
	b.WriteString(thin + "\n")

	byUnit := make(map[string][]*identity.FileIdentity)
	for _, f := range r.DetailFiles {
		byUnit[f.UnitName] = append(byUnit[f.UnitName], f)
	}

	units := make([]string, 0, len(byUnit))
	for u := range byUnit {
		units = append(units, u)
	}

	sort.Strings(units)

	for _, unit := range units {
		fmt.Fprintf(&b, "\n[%s]\n", unit)

		for i, f := range byUnit[unit] {
			fmt.Fprintf(&b, "  [%d] %s\n", i+1, f.Filename)
			fmt.Fprintf(&b, "      site:   %s\n", f.Site)
			fmt.Fprintf(&b, "      status: %s\n", f.Status)
			fmt.Fprintf(&b, "      code:   %s\n", f.Code)
		}
	}

	return b.String()
}
