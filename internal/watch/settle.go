package watch

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Settler enforces write stability: a file observed changing is polled at
// fine granularity until its size and modification time stay unchanged for a
// full quiet window, and only then is it reported as settled. A file that
// disappears while being tracked is dropped silently; its removal arrives
// as a separate event.
type Settler struct {
	window time.Duration
	poll   time.Duration

	onSettled func(ev Event)
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]Event
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSettler creates a Settler that fires onSettled once a file has been
// quiet for window, checking every poll interval.
func NewSettler(window, poll time.Duration, logger *slog.Logger, onSettled func(ev Event)) *Settler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Settler{
		window:    window,
		poll:      poll,
		onSettled: onSettled,
		logger:    logger,
		pending:   make(map[string]Event),
		done:      make(chan struct{}),
	}
}

// Observe starts tracking a file. If the file is already being tracked only
// the pending event is updated; the existing poll loop picks up the newer
// write through the changed mtime.
func (s *Settler) Observe(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	if _, tracking := s.pending[ev.Path]; tracking {
		s.pending[ev.Path] = ev

		return
	}

	s.pending[ev.Path] = ev

	s.wg.Add(1)
	go s.track(ev.Path)
}

// track polls one file until it is stable for the full window, then fires.
func (s *Settler) track(path string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	var (
		lastSize  int64 = -1
		lastMod   time.Time
		stableFor time.Duration
	)

	for {
		select {
		case <-s.done:
			s.drop(path)

			return

		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				// Gone mid-write; the remove event is reported separately.
				s.logger.Debug("settle tracking abandoned", slog.String("path", path))
				s.drop(path)

				return
			}

			if info.Size() == lastSize && info.ModTime().Equal(lastMod) {
				stableFor += s.poll
			} else {
				lastSize = info.Size()
				lastMod = info.ModTime()
				stableFor = 0
			}

			if stableFor >= s.window {
				s.settle(path)

				return
			}
		}
	}
}

func (s *Settler) drop(path string) {
	s.mu.Lock()
	delete(s.pending, path)
	s.mu.Unlock()
}

func (s *Settler) settle(path string) {
	s.mu.Lock()
	ev, ok := s.pending[path]
	delete(s.pending, path)
	s.mu.Unlock()

	if ok {
		s.onSettled(ev)
	}
}

// Stop abandons all tracked files and waits for poll loops to exit.
func (s *Settler) Stop() {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
