// Package client implements the dashboard's data access layer: manifest
// loading with an embedded fallback, workbook fetching, live update
// notifications over websocket, a freshness poller for when the socket is
// down, and the page controllers that own view state across reloads.
package client

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/scorewatch/scorewatch/internal/identity"
	"github.com/scorewatch/scorewatch/internal/mapper"
	"github.com/scorewatch/scorewatch/internal/workbook"
)

// fallbackManifest ships a known-good filename list so the dashboard renders
// something sensible when the server's manifest cannot be fetched.
//
//go:embed fallback_manifest.json
var fallbackManifest []byte

// FallbackManifest returns the embedded filename list.
func FallbackManifest() []string {
	var files []string
	// The embedded file is validated by tests; a decode failure yields an
	// empty list rather than a panic.
	_ = json.Unmarshal(fallbackManifest, &files)

	return files
}

// Client fetches dashboard data from a scorewatch server.
type Client struct {
	baseURL string
	http    *http.Client
	parser  *identity.Parser
	logger  *slog.Logger
}

// New creates a Client for the server at baseURL (scheme://host:port).
func New(baseURL string, parser *identity.Parser, logger *slog.Logger) *Client {
	if parser == nil {
		parser = identity.Default()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		parser:  parser,
		logger:  logger,
	}
}

// BaseURL returns the configured server address.
func (c *Client) BaseURL() string { return c.baseURL }

// WebsocketURL derives the ws:// endpoint from the base URL.
func (c *Client) WebsocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	u.Path = "/ws"

	return u.String(), nil
}

// FetchManifest retrieves the current filename manifest from the server.
func (c *Client) FetchManifest(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/files", nil)
	if err != nil {
		return nil, fmt.Errorf("building manifest request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching manifest: unexpected status %d", resp.StatusCode)
	}

	var files []string
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	return files, nil
}

// LoadIndex builds a UnitIndex from the server manifest, falling back to the
// embedded list when the fetch fails. The fallback is a degraded mode, not
// an error: the dashboard stays usable.
func (c *Client) LoadIndex(ctx context.Context) *mapper.UnitIndex {
	files, err := c.FetchManifest(ctx)
	if err != nil {
		c.logger.Warn("manifest fetch failed, using embedded fallback",
			slog.String("error", err.Error()),
		)

		files = FallbackManifest()
	}

	return mapper.IndexFromManifest(files, c.parser)
}

// FetchWorkbook downloads and parses one workbook from the data directory.
func (c *Client) FetchWorkbook(ctx context.Context, filename string) (*workbook.Workbook, error) {
	u := c.baseURL + "/data/" + url.PathEscape(filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building workbook request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching workbook %q: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching workbook %q: unexpected status %d", filename, resp.StatusCode)
	}

	wb, err := workbook.ReadFrom(resp.Body, filename)
	if err != nil {
		return nil, fmt.Errorf("parsing workbook %q: %w", filename, err)
	}

	return wb, nil
}

// Head probes the manifest's Last-Modified header without fetching the body.
func (c *Client) Head(ctx context.Context) (string, error) {
	u := c.baseURL + "/data/" + mapper.ManifestFilename

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return "", fmt.Errorf("building probe request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("probing manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("probing manifest: unexpected status %d", resp.StatusCode)
	}

	return resp.Header.Get("Last-Modified"), nil
}

// RequestScan asks the server for a manual rescan.
func (c *Client) RequestScan(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/scan", nil)
	if err != nil {
		return fmt.Errorf("building scan request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting scan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("requesting scan: unexpected status %d", resp.StatusCode)
	}

	return nil
}
