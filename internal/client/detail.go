package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/scorewatch/scorewatch/internal/dataset"
	"github.com/scorewatch/scorewatch/internal/mapper"
	"github.com/scorewatch/scorewatch/internal/workbook"
)

// SampleSheetNames are the sheets rendered as an empty workbook view when a
// unit's detail file is missing or unreadable.
var SampleSheetNames = []string{
	"home_page",
	"second_level",
	"third_level",
	"columns",
}

// DetailPageSize is the per-sheet pagination size of the detail view.
const DetailPageSize = 20

// DetailPage owns one unit's detail view: the parsed workbook, the active
// sheet, and per-sheet pagination. An explicit filename in the address is
// authoritative and bypasses index resolution entirely.
type DetailPage struct {
	client *Client
	logger *slog.Logger

	mu       sync.Mutex
	unitName string
	site     string
	filename string
	wb       *workbook.Workbook
	missing  bool
	match    mapper.MatchKind
	active   string
	page     int
	pageSize int
}

// NewDetailPage creates an empty detail controller.
func NewDetailPage(c *Client, logger *slog.Logger) *DetailPage {
	if logger == nil {
		logger = slog.Default()
	}

	return &DetailPage{
		client:   c,
		logger:   logger,
		pageSize: DetailPageSize,
	}
}

// Load resolves and fetches the detail workbook for the addressed unit.
// filename, when non-empty, is used as-is. A missing or unreadable workbook
// degrades to the sample sheet set; it is not an error.
func (p *DetailPage) Load(ctx context.Context, index *mapper.UnitIndex, unitName, site, filename string) {
	p.mu.Lock()
	p.unitName = unitName
	p.site = site
	p.match = mapper.MatchNone
	p.mu.Unlock()

	target := filename

	if target == "" && index != nil {
		m := index.Resolve(unitName, site)

		p.mu.Lock()
		p.match = m.Kind
		p.mu.Unlock()

		if m.File != nil {
			target = m.File.Filename
		}
	}

	if target == "" {
		p.logger.Info("no detail file resolved",
			slog.String("unit", unitName),
			slog.String("site", site),
		)
		p.setWorkbook("", sampleWorkbook(), true)

		return
	}

	wb, err := p.client.FetchWorkbook(ctx, target)
	if err != nil {
		// One broken detail file renders the empty-state sheets, it never
		// breaks the page.
		p.logger.Warn("detail workbook unavailable",
			slog.String("file", target),
			slog.String("error", err.Error()),
		)
		p.setWorkbook(target, sampleWorkbook(), true)

		return
	}

	p.setWorkbook(target, wb, false)
}

func sampleWorkbook() *workbook.Workbook {
	sheets := make([]*workbook.Sheet, 0, len(SampleSheetNames))
	for _, name := range SampleSheetNames {
		sheets = append(sheets, &workbook.Sheet{Name: name})
	}

	return &workbook.Workbook{Sheets: sheets}
}

func (p *DetailPage) setWorkbook(filename string, wb *workbook.Workbook, missing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filename = filename
	p.wb = wb
	p.missing = missing
	p.page = 1
	p.active = ""

	if names := wb.SheetNames(); len(names) > 0 {
		p.active = names[0]
	}
}

// Missing reports whether the page is showing the empty-state sample sheets.
func (p *DetailPage) Missing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.missing
}

// MatchKind reports how the detail file was resolved, so the page can show
// a fuzzy or default match for what it is.
func (p *DetailPage) MatchKind() mapper.MatchKind {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.match
}

// Filename returns the resolved workbook filename, empty when none resolved.
func (p *DetailPage) Filename() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.filename
}

// SheetNames lists the workbook's sheets in file order.
func (p *DetailPage) SheetNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.wb == nil {
		return nil
	}

	return p.wb.SheetNames()
}

// ActiveSheet returns the currently selected sheet, nil before Load.
func (p *DetailPage) ActiveSheet() *workbook.Sheet {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.activeSheetLocked()
}

func (p *DetailPage) activeSheetLocked() *workbook.Sheet {
	if p.wb == nil {
		return nil
	}

	return p.wb.Sheet(p.active)
}

// SwitchSheet activates the named sheet and resets pagination to page 1.
// Unknown names are ignored.
func (p *DetailPage) SwitchSheet(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.wb == nil || p.wb.Sheet(name) == nil {
		return
	}

	p.active = name
	p.page = 1
}

// Columns returns the active sheet's column set, derived from its header.
func (p *DetailPage) Columns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	sheet := p.activeSheetLocked()
	if sheet == nil {
		return nil
	}

	return sheet.Columns
}

// Page returns the active sheet's rows for the current page.
func (p *DetailPage) Page() []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	sheet := p.activeSheetLocked()
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil
	}

	start := (p.page - 1) * p.pageSize
	if start >= len(sheet.Rows) {
		return nil
	}

	end := min(start+p.pageSize, len(sheet.Rows))

	return sheet.Rows[start:end]
}

// PageCount reports how many pages the active sheet spans, at least 1.
func (p *DetailPage) PageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	sheet := p.activeSheetLocked()
	if sheet == nil || len(sheet.Rows) == 0 {
		return 1
	}

	return (len(sheet.Rows) + p.pageSize - 1) / p.pageSize
}

// CurrentPage returns the 1-based page number.
func (p *DetailPage) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.page
}

// NextPage advances one page, clamped to the last.
func (p *DetailPage) NextPage() {
	count := p.PageCount()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.page < count {
		p.page++
	}
}

// PrevPage goes back one page, clamped to the first.
func (p *DetailPage) PrevPage() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.page > 1 {
		p.page--
	}
}

// HeaderInfo derives the unit's composite score and detection time from the
// first row of the first sheet. Empty strings when unavailable.
func (p *DetailPage) HeaderInfo() (score, detectedAt string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.wb == nil {
		return "", ""
	}

	sheet := p.wb.FirstSheet()
	if sheet == nil || len(sheet.Rows) == 0 {
		return "", ""
	}

	first := sheet.Rows[0]

	return first[dataset.ColScore], first[dataset.ColDetected]
}

// UnitName returns the addressed unit.
func (p *DetailPage) UnitName() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.unitName
}

// Site returns the addressed site.
func (p *DetailPage) Site() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.site
}
