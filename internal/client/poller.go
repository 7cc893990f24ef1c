package client

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is the fallback freshness probe period.
const DefaultPollInterval = 30 * time.Second

// Poller probes the manifest's Last-Modified header on an interval and fires
// onChange when it moves. It backs up the websocket: a client that missed a
// broadcast catches up on its next poll. Suspend/Resume mirror the page
// visibility lifecycle; the timer is always stopped before being re-armed so
// repeated suspend/resume cycles never accumulate duplicate timers.
type Poller struct {
	client   *Client
	interval time.Duration
	onChange func()
	logger   *slog.Logger

	mu        sync.Mutex
	ctx       context.Context
	timer     *time.Timer
	suspended bool
	started   bool
	last      string
}

// NewPoller creates a Poller firing onChange when the manifest changes.
func NewPoller(c *Client, interval time.Duration, onChange func(), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		client:   c,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
}

// Start seeds the baseline Last-Modified value and arms the poll timer. It
// returns immediately; probes run on timer goroutines until ctx is cancelled
// or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.started = true
	p.ctx = ctx

	if lm, err := p.client.Head(ctx); err == nil {
		p.last = lm
	}

	p.armLocked()
}

// Suspend pauses probing, e.g. while the dashboard tab is hidden.
func (p *Poller) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.suspended = true
	p.stopTimerLocked()
}

// Resume restarts probing with an immediate check, so a change that happened
// while suspended is picked up right away instead of one interval later.
func (p *Poller) Resume() {
	p.mu.Lock()

	if !p.suspended || !p.started {
		p.mu.Unlock()

		return
	}

	p.suspended = false
	p.mu.Unlock()

	p.tick()
}

// Stop halts probing permanently.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	p.stopTimerLocked()
}

// tick runs one probe and re-arms the timer.
func (p *Poller) tick() {
	p.mu.Lock()
	ctx := p.ctx
	active := p.started && !p.suspended
	p.mu.Unlock()

	if !active || ctx.Err() != nil {
		return
	}

	p.check(ctx)

	p.mu.Lock()
	if p.started && !p.suspended {
		p.armLocked()
	}
	p.mu.Unlock()
}

func (p *Poller) check(ctx context.Context) {
	lm, err := p.client.Head(ctx)
	if err != nil {
		// Probe failures are expected while the server restarts; the next
		// interval retries.
		p.logger.Debug("freshness probe failed", slog.String("error", err.Error()))

		return
	}

	p.mu.Lock()
	changed := p.last != "" && lm != "" && lm != p.last
	p.last = lm
	p.mu.Unlock()

	if changed {
		p.logger.Info("manifest changed, triggering reload")
		p.onChange()
	}
}

func (p *Poller) armLocked() {
	p.stopTimerLocked()
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *Poller) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
