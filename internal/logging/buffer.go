package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is how many recent records the dashboard keeps.
const DefaultBufferSize = 500

// Entry is one buffered log record, pre-rendered for the dashboard.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// String renders the entry as a single dashboard log line.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] [%s]: %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Message)
}

// Buffer is a fixed-capacity ring of recent log entries. Writes evict the
// oldest entry once capacity is reached. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewBuffer creates a Buffer holding at most size entries.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &Buffer{entries: make([]Entry, size)}
}

// Append adds an entry, evicting the oldest when full.
func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next++

	if b.next == len(b.entries) {
		b.next = 0
		b.full = true
	}
}

// Len reports how many entries are currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.full {
		return len(b.entries)
	}

	return b.next
}

// Last returns up to n entries, oldest first. n <= 0 returns everything.
func (b *Buffer) Last(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var all []Entry
	if b.full {
		all = append(all, b.entries[b.next:]...)
		all = append(all, b.entries[:b.next]...)
	} else {
		all = append(all, b.entries[:b.next]...)
	}

	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}

	return all
}

// Handler returns a slog.Handler that appends every record at or above level
// to the buffer.
func (b *Buffer) Handler(level slog.Level) slog.Handler {
	return &bufferHandler{buf: b, level: level}
}

type bufferHandler struct {
	buf   *Buffer
	level slog.Level
	attrs []slog.Attr
}

func (h *bufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *bufferHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)

	appendAttr := func(a slog.Attr) bool {
		sb.WriteString(" ")
		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(a.Value.String())

		return true
	}

	for _, a := range h.attrs {
		appendAttr(a)
	}

	r.Attrs(appendAttr)

	h.buf.Append(Entry{
		Timestamp: r.Time,
		Level:     strings.ToUpper(r.Level.String()),
		Message:   sb.String(),
	})

	return nil
}

func (h *bufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	combined = append(combined, attrs...)

	return &bufferHandler{buf: h.buf, level: h.level, attrs: combined}
}

func (h *bufferHandler) WithGroup(string) slog.Handler {
	// Grouping is irrelevant for the flat dashboard view.
	return h
}

// TeeHandler fans each record out to multiple handlers.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler combines handlers into one.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error

	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}

	return &TeeHandler{handlers: out}
}

func (t *TeeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}

	return &TeeHandler{handlers: out}
}
