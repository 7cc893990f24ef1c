package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scorewatch/scorewatch/internal/config"
	"github.com/scorewatch/scorewatch/internal/hub"
	"github.com/scorewatch/scorewatch/internal/identity"
	"github.com/scorewatch/scorewatch/internal/logging"
	"github.com/scorewatch/scorewatch/internal/mapper"
	"github.com/scorewatch/scorewatch/internal/orchestrate"
	"github.com/scorewatch/scorewatch/internal/server"
	"github.com/scorewatch/scorewatch/internal/watch"
)

type serveOptions struct {
	staticDir string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard service",
		Long: `Serve runs the full dashboard service: an initial scan of the data
directory, a filesystem watcher that re-scans on changes (debounced,
after writes settle), the HTTP API, and the websocket hub pushing scan
lifecycle events to connected clients.

The service shuts down cleanly on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringP("listen-addr", "l", "0.0.0.0", "address to bind")
	f.IntP("port", "p", 8000, "port to bind")
	f.Duration("debounce", config.Default().Debounce, "quiet period collapsing file changes into one rescan")
	f.Duration("settle-window", config.Default().SettleWindow, "how long a file must stay unmodified to count as written")
	f.StringVar(&opts.staticDir, "static-dir", "", "directory of dashboard frontend assets to serve at /")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg := config.FromContext(ctx)

	// Re-install logging with the ring buffer backing GET /api/logs.
	logBuf := logging.NewBuffer(logging.DefaultBufferSize)

	logWriter := io.Writer(os.Stderr)

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("creating log directory: %w", err)}
		}

		f, err := os.OpenFile(filepath.Join(cfg.LogDir, "scorewatch.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("opening log file: %w", err)}
		}
		defer f.Close()

		logWriter = io.MultiWriter(os.Stderr, f)
	}

	logger := logging.SetupWithBuffer(cfg, logWriter, logBuf)

	if _, err := os.Stat(cfg.DataDir); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("data directory: %w", err)}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	parser := identity.NewParser(cfg.Extension, "", cfg.SummaryMarker)
	scanner := mapper.NewScanner(cfg.DataDir, parser, logger)

	h := hub.New(logger)
	orch := orchestrate.New(scanner, h, logger)

	h.OnRequestScan = func() {
		orch.Enqueue(ctx, orchestrate.Request{Source: orchestrate.SourceManual})
	}

	srv := server.New(server.Options{
		Addr:      cfg.Addr(),
		DataDir:   cfg.DataDir,
		StaticDir: opts.staticDir,
	}, orch, h, logBuf, logger)

	// Initial scan before the watcher starts; its completion is broadcast
	// to any client that connects quickly.
	orch.Enqueue(ctx, orchestrate.Request{Source: orchestrate.SourceInitial})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		watchOpts := watch.Options{
			Dir:          cfg.DataDir,
			Extension:    cfg.Extension,
			SettleWindow: cfg.SettleWindow,
			SettlePoll:   cfg.SettlePoll,
			Debounce:     cfg.Debounce,
			Logger:       logger,
		}

		return watch.Run(ctx, watchOpts, func(ev watch.Event) {
			orch.Enqueue(ctx, orchestrate.Request{
				Source:   orchestrate.SourceWatcher,
				Filename: ev.Filename,
			})
		})
	})

	g.Go(func() error {
		return srv.Run(ctx)
	})

	logger.Info("scorewatch started",
		slog.String("addr", cfg.Addr()),
		slog.String("dataDir", cfg.DataDir),
	)

	if err := g.Wait(); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
