// Package server exposes the dashboard HTTP surface: the JSON API, the
// websocket upgrade endpoint, and static file serving for the data
// directory.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scorewatch/scorewatch/internal/hub"
	"github.com/scorewatch/scorewatch/internal/logging"
	"github.com/scorewatch/scorewatch/internal/mapper"
	"github.com/scorewatch/scorewatch/internal/orchestrate"
)

const shutdownTimeout = 5 * time.Second

// Options configures the server surface.
type Options struct {
	// Addr is the host:port to bind.
	Addr string

	// DataDir is served read-only under /data so clients can fetch
	// workbooks, the manifest, and the mapping report directly.
	DataDir string

	// StaticDir, when set, is served at the root path. Content is whatever
	// dashboard frontend the operator deploys.
	StaticDir string
}

// Server wires the API handlers to the orchestrator and hub.
type Server struct {
	opts    Options
	orch    *orchestrate.Orchestrator
	hub     *hub.Hub
	logs    *logging.Buffer
	logger  *slog.Logger
	started time.Time
	engine  *gin.Engine

	// scanCtx is the context scans are enqueued under. net/http cancels a
	// request's context as soon as its handler returns, so an async scan
	// must not inherit it or the scan dies mid-flight.
	scanCtx context.Context
}

// New builds the server and its route table. logs may be nil, in which case
// the log endpoint serves an empty list.
func New(opts Options, orch *orchestrate.Orchestrator, h *hub.Hub, logs *logging.Buffer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:    opts,
		orch:    orch,
		hub:     h,
		logs:    logs,
		logger:  logger,
		started: time.Now(),
		scanCtx: context.Background(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog(), cors())

	api := engine.Group("/api")
	api.GET("/files", s.handleFiles)
	api.GET("/mapping", s.handleMapping)
	api.POST("/scan", s.handleScan)
	api.GET("/status", s.handleStatus)
	api.GET("/logs", s.handleLogs)

	engine.GET("/ws", func(c *gin.Context) {
		h.Serve(c.Writer, c.Request)
	})

	engine.Static("/data", opts.DataDir)

	if opts.StaticDir != "" {
		engine.NoRoute(gin.WrapH(http.FileServer(http.Dir(opts.StaticDir))))
	}

	s.engine = engine

	return s
}

// Router exposes the route table for tests.
func (s *Server) Router() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// API-triggered scans live as long as the service, not the request.
	s.scanCtx = ctx

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("dashboard listening", slog.String("addr", s.opts.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.hub.Close()

		return srv.Shutdown(shutdownCtx)
	}
}

// handleFiles returns the manifest: the recognized filenames of the latest
// scan. Before the first scan completes it falls back to the persisted
// manifest file, and failing that an empty list.
func (s *Server) handleFiles(c *gin.Context) {
	if snap := s.orch.Latest(); snap != nil {
		c.JSON(http.StatusOK, snap.Result.Manifest)

		return
	}

	files, err := mapper.LoadManifest(filepath.Join(s.opts.DataDir, mapper.ManifestFilename))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("manifest unreadable", slog.String("error", err.Error()))
		}

		c.JSON(http.StatusOK, []string{})

		return
	}

	c.JSON(http.StatusOK, files)
}

func (s *Server) handleMapping(c *gin.Context) {
	snap := s.orch.Latest()
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan has completed yet"})

		return
	}

	c.JSON(http.StatusOK, snap.Result.Report)
}

func (s *Server) handleScan(c *gin.Context) {
	s.orch.Enqueue(s.scanCtx, orchestrate.Request{Source: orchestrate.SourceAPI})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "scan queued",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.orch.Status()

	c.JSON(http.StatusOK, gin.H{
		"isParsing":        st.IsScanning,
		"queueLength":      st.QueueLength,
		"connectedClients": s.hub.ClientCount(),
		"uptime":           time.Since(s.started).Seconds(),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, 10000)
		}
	}

	lines := []string{}

	if s.logs != nil {
		for _, e := range s.logs.Last(limit) {
			lines = append(lines, e.String())
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  lines,
		"count": len(lines),
	})
}

// requestLog logs each request at debug level.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// cors allows the dashboard frontend to be served from a different origin
// during development.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}
