package rebuild

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/watcher"
)

// SignalBuffer is the capacity callers should give the shared signal channel.
// Sources block once it is full, which only happens while a build runs.
const SignalBuffer = 16

// Source produces rebuild signals until ctx is cancelled or it runs dry.
type Source interface {
	Name() string
	Run(ctx context.Context, signals chan<- Signal) error
}

// LineSource emits one signal per line read from Reader. The line content is
// ignored. Reads cannot be interrupted, so a source reading a terminal lives
// until the process exits or the reader hits EOF.
type LineSource struct {
	Reader io.Reader
	Label  string
}

// Name implements Source.
func (s *LineSource) Name() string {
	if s.Label == "" {
		return "stdin"
	}
	return s.Label
}

// Run implements Source.
func (s *LineSource) Run(ctx context.Context, signals chan<- Signal) error {
	scanner := bufio.NewScanner(s.Reader)
	for scanner.Scan() {
		select {
		case signals <- Signal{Source: s.Name(), Reason: "line"}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// WatchSource emits one signal per debounced batch of source file changes.
type WatchSource struct {
	Watcher *watcher.FileWatcher
	Paths   []string
}

// NewWatchSource builds a watcher over paths with the usual Rust source filters.
func NewWatchSource(paths []string, debounce time.Duration, logger logging.Logger) (*WatchSource, error) {
	fw, err := watcher.NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.SourceFilter)
	fw.AddFilter(watcher.NoTargetFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)

	return &WatchSource{Watcher: fw, Paths: paths}, nil
}

// Name implements Source.
func (s *WatchSource) Name() string {
	return "watch"
}

// Run implements Source.
func (s *WatchSource) Run(ctx context.Context, signals chan<- Signal) error {
	defer s.Watcher.Stop()

	for _, path := range s.Paths {
		if err := s.Watcher.AddRecursive(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	s.Watcher.AddHandler(func(events []watcher.ChangeEvent) error {
		reason := fmt.Sprintf("%d file(s) changed", len(events))
		if len(events) == 1 {
			reason = fmt.Sprintf("%s %s", events[0].Path, events[0].Type)
		}
		select {
		case signals <- Signal{Source: s.Name(), Reason: reason}:
		default:
			// A rebuild is already queued.
		}
		return nil
	})

	if err := s.Watcher.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// RunSources starts every source on its own goroutine and returns a function
// that waits for all of them. Source errors are logged.
func RunSources(ctx context.Context, logger logging.Logger, signals chan<- Signal, sources ...Source) (wait func()) {
	if logger == nil {
		logger = logging.Discard()
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			err := src.Run(ctx, signals)
			switch {
			case err == nil:
				logger.Info(ctx, "Rebuild signal source finished", "source", src.Name())
			case ctx.Err() != nil:
				// shutting down
			default:
				logger.Error(ctx, err, "Rebuild signal source failed", "source", src.Name())
			}
		}(src)
	}

	return wg.Wait
}
