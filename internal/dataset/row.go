// Package dataset holds the overview table model: rows derived from the
// overall summary workbook, percentage normalization, and the filter / sort /
// pagination session that owns all per-page view state.
package dataset

import (
	"strconv"

	"github.com/scorewatch/scorewatch/internal/identity"
)

// Column names expected in the overall summary sheet and used as sort keys.
const (
	ColUnit     = "unit_name"
	ColSite     = "site"
	ColScore    = "composite_score"
	ColHomeRate = "home_rate"
	ColL2Rate   = "second_level_rate"
	ColL3Rate   = "third_level_rate"
	ColDetected = "detected_at"
)

// Row is one row of the overview table. Rows are recreated in full on every
// load; Index is the sequential load-time position and is not stable across
// reloads.
type Row struct {
	Index      int
	UnitName   string
	Site       string
	Score      float64
	HomeRate   string
	L2Rate     string
	L3Rate     string
	DetectedAt string

	// Detail back-references the unit's detail file for navigation, when one
	// resolved. Nil means "no detail available".
	Detail *identity.FileIdentity
}

// ResolveFunc looks up the detail file for a unit and site. It may return nil.
type ResolveFunc func(unitName, site string) *identity.FileIdentity

// RowsFromRecords converts header-keyed sheet records into overview rows,
// normalizing percentages and attaching detail back-references via resolve.
// A nil resolve leaves all Detail fields nil.
func RowsFromRecords(records []map[string]string, resolve ResolveFunc) []Row {
	rows := make([]Row, 0, len(records))

	for i, rec := range records {
		row := Row{
			Index:      i + 1,
			UnitName:   rec[ColUnit],
			Site:       rec[ColSite],
			Score:      parseScore(rec[ColScore]),
			HomeRate:   FormatPercent(rec[ColHomeRate]),
			L2Rate:     FormatPercent(rec[ColL2Rate]),
			L3Rate:     FormatPercent(rec[ColL3Rate]),
			DetectedAt: rec[ColDetected],
		}

		if resolve != nil {
			row.Detail = resolve(row.UnitName, row.Site)
		}

		rows = append(rows, row)
	}

	return rows
}

func parseScore(s string) float64 {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return n
}

// value returns the named column of a row for sorting and filtering.
func (r Row) value(column string) string {
	switch column {
	case ColUnit:
		return r.UnitName
	case ColSite:
		return r.Site
	case ColScore:
		return strconv.FormatFloat(r.Score, 'f', -1, 64)
	case ColHomeRate:
		return r.HomeRate
	case ColL2Rate:
		return r.L2Rate
	case ColL3Rate:
		return r.L3Rate
	case ColDetected:
		return r.DetectedAt
	default:
		return ""
	}
}
