package dataset

import (
	"fmt"
	"strconv"

	"github.com/scorewatch/scorewatch/internal/workbook"
)

// ExportSheetName is the sheet the overview export is written to.
const ExportSheetName = "overview"

// exportColumns is the header order of the exported workbook.
var exportColumns = []string{
	ColUnit, ColSite, ColScore, ColHomeRate, ColL2Rate, ColL3Rate, ColDetected,
}

// Export writes the session's current processed dataset (filtered and
// sorted, all pages) to an xlsx file at path.
func (s *Session) Export(path string) error {
	records := make([]map[string]string, 0, len(s.filtered))

	for _, r := range s.filtered {
		records = append(records, map[string]string{
			ColUnit:     r.UnitName,
			ColSite:     r.Site,
			ColScore:    strconv.FormatFloat(r.Score, 'f', -1, 64),
			ColHomeRate: r.HomeRate,
			ColL2Rate:   r.L2Rate,
			ColL3Rate:   r.L3Rate,
			ColDetected: r.DetectedAt,
		})
	}

	if err := workbook.Write(path, ExportSheetName, exportColumns, records); err != nil {
		return fmt.Errorf("exporting overview: %w", err)
	}

	return nil
}
