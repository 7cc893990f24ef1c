package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scorewatch/scorewatch/internal/dataset"
	"github.com/scorewatch/scorewatch/internal/identity"
	"github.com/scorewatch/scorewatch/internal/mapper"
)

// DefaultNoticeDuration is how long the "data updated" notice stays up.
const DefaultNoticeDuration = 3 * time.Second

// OverviewPage owns the overview table: the dataset session, the unit index
// used for detail navigation, and the transient update notice. Reloads
// preserve the user's keyword, sort, and page (clamped to the new page
// count).
type OverviewPage struct {
	client *Client
	logger *slog.Logger

	session *dataset.Session

	mu          sync.Mutex
	index       *mapper.UnitIndex
	reloading   bool
	notice      string
	noticeTimer *time.Timer
	noticeTTL   time.Duration
}

// NewOverviewPage creates an empty overview controller.
func NewOverviewPage(c *Client, logger *slog.Logger) *OverviewPage {
	if logger == nil {
		logger = slog.Default()
	}

	return &OverviewPage{
		client:    c,
		logger:    logger,
		session:   dataset.NewSession(),
		noticeTTL: DefaultNoticeDuration,
	}
}

// Session exposes the filter/sort/pagination session.
func (p *OverviewPage) Session() *dataset.Session { return p.session }

// Index returns the unit index of the most recent load.
func (p *OverviewPage) Index() *mapper.UnitIndex {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.index
}

// Load performs the initial data load, resetting all view state.
func (p *OverviewPage) Load(ctx context.Context) error {
	index, rows, err := p.fetch(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.index = index
	p.mu.Unlock()

	p.session.Load(rows)

	return nil
}

// Reload refreshes the dataset while preserving view state. Overlapping
// triggers (a push event landing while a poll-initiated reload is running)
// are dropped: the running reload's result covers them. Returns false when
// the trigger was dropped.
func (p *OverviewPage) Reload(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.reloading {
		p.mu.Unlock()
		p.logger.Debug("reload already in flight, ignoring trigger")

		return false, nil
	}

	p.reloading = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.reloading = false
		p.mu.Unlock()
	}()

	index, rows, err := p.fetch(ctx)
	if err != nil {
		return true, err
	}

	p.mu.Lock()
	p.index = index
	p.mu.Unlock()

	p.session.Reload(rows)
	p.showNotice("data updated")

	return true, nil
}

// fetch loads the manifest, resolves the overall workbook, and converts its
// first sheet into overview rows.
func (p *OverviewPage) fetch(ctx context.Context) (*mapper.UnitIndex, []dataset.Row, error) {
	index := p.client.LoadIndex(ctx)

	overall := index.Overall()
	if overall == nil {
		// No summary workbook in the directory: the overview is empty but
		// the page is not broken.
		return index, nil, nil
	}

	wb, err := p.client.FetchWorkbook(ctx, overall.Filename)
	if err != nil {
		return nil, nil, fmt.Errorf("loading overview data: %w", err)
	}

	var records []map[string]string
	if sheet := wb.FirstSheet(); sheet != nil {
		records = sheet.Rows
	}

	resolve := func(unitName, site string) *identity.FileIdentity {
		return index.Resolve(unitName, site).File
	}

	return index, dataset.RowsFromRecords(records, resolve), nil
}

// Notice returns the currently displayed transient notice, if any.
func (p *OverviewPage) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.notice
}

// showNotice displays a message that self-dismisses. An existing dismiss
// timer is cleared before the new one is armed.
func (p *OverviewPage) showNotice(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notice = text

	if p.noticeTimer != nil {
		p.noticeTimer.Stop()
	}

	p.noticeTimer = time.AfterFunc(p.noticeTTL, func() {
		p.mu.Lock()
		p.notice = ""
		p.mu.Unlock()
	})
}
