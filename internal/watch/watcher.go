package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op describes what happened to a file, mapped from raw fsnotify operations.
type Op string

const (
	OpAdd    Op = "add"
	OpChange Op = "change"
	OpRemove Op = "remove"
)

// Event is one observed change to a supported workbook file.
type Event struct {
	// Path is the absolute or watcher-relative path of the file.
	Path string

	// Filename is the base name of the file.
	Filename string

	// Op is the change kind.
	Op Op
}

// TriggerFunc is called once per debounce window with the last settled event.
type TriggerFunc func(ev Event)

// Options configures the watch behaviour.
type Options struct {
	// Dir is the single data directory to observe. Not recursive.
	Dir string

	// Extension restricts events to files carrying this extension,
	// compared case-insensitively.
	Extension string

	// SettleWindow is how long a file must stay unmodified before it is
	// treated as fully written.
	SettleWindow time.Duration

	// SettlePoll is the granularity at which write stability is checked.
	SettlePoll time.Duration

	// Debounce is the quiet period collapsing settled events into one
	// trigger.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// DefaultOptions returns the production watch timings.
func DefaultOptions() Options {
	return Options{
		Extension:    ".xlsx",
		SettleWindow: 2 * time.Second,
		SettlePoll:   100 * time.Millisecond,
		Debounce:     time.Second,
		Logger:       slog.Default(),
	}
}

// Run observes the data directory and invokes trigger once per debounce
// window. It blocks until the context is cancelled. Watcher errors are
// logged, never fatal.
func Run(ctx context.Context, opts Options, trigger TriggerFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(opts.Dir); err != nil {
		return fmt.Errorf("watching data directory %q: %w", opts.Dir, err)
	}

	debouncer := NewDebouncer(opts.Debounce, trigger)
	defer debouncer.Stop()

	settler := NewSettler(opts.SettleWindow, opts.SettlePoll, opts.Logger, func(ev Event) {
		opts.Logger.Debug("file settled", slog.String("file", ev.Filename), slog.String("op", string(ev.Op)))
		debouncer.Trigger(ev)
	})
	defer settler.Stop()

	opts.Logger.Info("watching data directory",
		slog.String("dir", opts.Dir),
		slog.Duration("settleWindow", opts.SettleWindow),
		slog.Duration("debounce", opts.Debounce),
	)

	for {
		select {
		case <-ctx.Done():
			opts.Logger.Info("stopping watcher")

			return nil

		case raw, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			ev, relevant := classify(raw, opts.Extension)
			if !relevant {
				continue
			}

			opts.Logger.Info("file change detected",
				slog.String("file", ev.Filename),
				slog.String("op", string(ev.Op)),
			)

			if ev.Op == OpRemove {
				// Nothing on disk to settle; go straight to the debouncer.
				debouncer.Trigger(ev)
				continue
			}

			settler.Observe(ev)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// classify filters raw events down to supported workbook files and maps the
// fsnotify operation to an Op. Dotfiles and editor temp files are ignored.
func classify(raw fsnotify.Event, extension string) (Event, bool) {
	if raw.Op == 0 {
		return Event{}, false
	}

	name := filepath.Base(raw.Name)

	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return Event{}, false
	}

	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(extension)) {
		return Event{}, false
	}

	ev := Event{Path: raw.Name, Filename: name}

	switch {
	case raw.Has(fsnotify.Create):
		ev.Op = OpAdd
	case raw.Has(fsnotify.Write):
		ev.Op = OpChange
	case raw.Has(fsnotify.Remove), raw.Has(fsnotify.Rename):
		ev.Op = OpRemove
	default:
		// Chmod and friends do not affect content.
		return Event{}, false
	}

	return ev, true
}
