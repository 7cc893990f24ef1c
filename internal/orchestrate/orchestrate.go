// Package orchestrate serialises scan execution. Triggers from the watcher,
// the API, and connected dashboard clients all funnel through one
// Orchestrator that runs at most one scan at a time and queues the rest in
// arrival order.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/scorewatch/scorewatch/internal/hub"
	"github.com/scorewatch/scorewatch/internal/mapper"
	"github.com/scorewatch/scorewatch/internal/workbook"
)

// Trigger sources, carried on parseStart messages so the dashboard can tell
// the user why a scan ran.
const (
	SourceInitial = "initial"
	SourceWatcher = "watcher"
	SourceManual  = "manual"
	SourceAPI     = "api"
)

// Request asks for one scan of the data directory.
type Request struct {
	// Source identifies what triggered the scan.
	Source string

	// Filename is the file whose change triggered the scan, when known.
	Filename string
}

// Snapshot is the outcome of the most recent successful scan, including the
// parsed overall summary workbook when one was found.
type Snapshot struct {
	Result    *mapper.Result
	Overall   *workbook.Workbook
	ScannedAt time.Time
}

// Broadcaster pushes scan lifecycle messages to dashboard clients.
type Broadcaster interface {
	Broadcast(msg hub.Message)
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	IsScanning  bool `json:"isParsing"`
	QueueLength int  `json:"queueLength"`
}

// Orchestrator owns the scan queue. Requests arriving while a scan runs are
// queued FIFO and each one results in its own scan execution; rapid
// triggers are not collapsed here, that is the watcher debouncer's job.
type Orchestrator struct {
	scanner     *mapper.Scanner
	broadcaster Broadcaster
	logger      *slog.Logger

	mu       sync.Mutex
	scanning bool
	queue    []Request

	latest   atomic.Pointer[Snapshot]
	lastText atomic.Pointer[string]
}

// New creates an Orchestrator. broadcaster may be nil for one-shot use.
func New(scanner *mapper.Scanner, broadcaster Broadcaster, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		scanner:     scanner,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Latest returns the snapshot of the most recent successful scan, or nil if
// none has completed yet.
func (o *Orchestrator) Latest() *Snapshot {
	return o.latest.Load()
}

// Status reports whether a scan is running and how many requests are queued.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Status{IsScanning: o.scanning, QueueLength: len(o.queue)}
}

// Enqueue requests a scan. If the orchestrator is idle the scan starts
// immediately on a new goroutine; otherwise the request waits its turn.
func (o *Orchestrator) Enqueue(ctx context.Context, req Request) {
	o.mu.Lock()

	if o.scanning {
		o.queue = append(o.queue, req)
		depth := len(o.queue)
		o.mu.Unlock()

		o.logger.Info("scan queued",
			slog.String("source", req.Source),
			slog.Int("queueLength", depth),
		)

		return
	}

	o.scanning = true
	o.mu.Unlock()

	go o.drain(ctx, req)
}

// RunOnce executes a single scan synchronously, bypassing the queue. Used by
// the one-shot CLI command.
func (o *Orchestrator) RunOnce(ctx context.Context, req Request) (*Snapshot, error) {
	return o.execute(ctx, req)
}

// drain runs req and then everything queued behind it, in order.
func (o *Orchestrator) drain(ctx context.Context, req Request) {
	for {
		if _, err := o.execute(ctx, req); err != nil {
			o.logger.Error("scan failed",
				slog.String("source", req.Source),
				slog.String("error", err.Error()),
			)
		}

		o.mu.Lock()
		if len(o.queue) == 0 || ctx.Err() != nil {
			o.scanning = false
			o.queue = nil
			o.mu.Unlock()

			return
		}

		req = o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()
	}
}

// execute performs one scan: broadcast start, scan, parse the overall
// workbook, publish the snapshot, broadcast completion.
func (o *Orchestrator) execute(ctx context.Context, req Request) (*Snapshot, error) {
	o.broadcast(hub.Message{
		Type:        hub.TypeParseStart,
		Message:     startMessage(req),
		TriggerType: req.Source,
		Filename:    req.Filename,
	})

	started := time.Now()

	result, err := o.scanner.Scan(ctx)
	if err != nil {
		o.broadcast(hub.Message{
			Type:        hub.TypeParseError,
			TriggerType: req.Source,
			Error:       err.Error(),
		})

		return nil, err
	}

	snap := &Snapshot{Result: result, ScannedAt: time.Now()}

	if overall := result.Index.Overall(); overall != nil {
		wb, wbErr := workbook.Read(filepath.Join(o.scanner.Dir(), overall.Filename))
		if wbErr != nil {
			// A broken summary workbook does not invalidate the scan;
			// the dashboard falls back to the previous overview data.
			o.logger.Warn("overall summary workbook unreadable",
				slog.String("file", overall.Filename),
				slog.String("error", wbErr.Error()),
			)
		} else {
			snap.Overall = wb
		}
	}

	o.latest.Store(snap)
	o.logReportDiff(result.Report)

	duration := time.Since(started)

	summary := &hub.ScanSummary{
		TotalFiles:  result.Report.TotalFiles,
		DetailFiles: len(result.Report.DetailFiles),
	}
	if result.Report.OverallFile != nil {
		summary.OverallFile = result.Report.OverallFile.Filename
	}

	o.logger.Info("scan complete",
		slog.String("source", req.Source),
		slog.Int("totalFiles", summary.TotalFiles),
		slog.Int("detailFiles", summary.DetailFiles),
		slog.Duration("duration", duration),
	)

	o.broadcast(hub.Message{
		Type:        hub.TypeParseComplete,
		Message:     fmt.Sprintf("parse complete: %d files in %dms", summary.TotalFiles, duration.Milliseconds()),
		TriggerType: req.Source,
		Duration:    duration.Seconds(),
		Summary:     summary,
	})

	return snap, nil
}

// logReportDiff logs a unified diff between the previous and current mapping
// report text at debug level, so operators can see exactly what a rescan
// changed.
func (o *Orchestrator) logReportDiff(report *mapper.Report) {
	text := report.Text()
	prev := o.lastText.Swap(&text)

	if prev == nil || *prev == text {
		return
	}

	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(*prev),
		B:        difflib.SplitLines(text),
		FromFile: "previous",
		ToFile:   "current",
		Context:  2,
	})
	if err != nil {
		return
	}

	o.logger.Debug("mapping report changed", slog.String("diff", diff))
}

func (o *Orchestrator) broadcast(msg hub.Message) {
	if o.broadcaster != nil {
		o.broadcaster.Broadcast(msg)
	}
}

func startMessage(req Request) string {
	if req.Filename != "" {
		return "processing file: " + req.Filename
	}

	return "scanning all files..."
}
