package rebuild

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	docerrors "github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/logging"
)

// State is the trigger's position in its Idle -> Building -> Idle cycle.
type State int32

const (
	StateIdle State = iota
	StateBuilding
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	default:
		return "unknown"
	}
}

// Signal asks for a rebuild.
type Signal struct {
	Source string
	Reason string
}

// Result describes one finished build.
type Result struct {
	Args      []string
	Started   time.Time
	Duration  time.Duration
	ExitCode  int
	Err       error
	Coalesced int
}

// Success reports whether the build exited cleanly.
func (r Result) Success() bool {
	return r.Err == nil
}

// Trigger runs builds in response to signals, one at a time.
type Trigger struct {
	runner Runner
	args   []string
	logger logging.Logger

	state  atomic.Int32
	builds atomic.Int64

	callbacksMu sync.RWMutex
	callbacks   []func(Result)
}

// NewTrigger creates a trigger that passes args to runner on every build.
func NewTrigger(runner Runner, args []string, logger logging.Logger) *Trigger {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Trigger{
		runner: runner,
		args:   append([]string(nil), args...),
		logger: logger.WithComponent("rebuild"),
	}
}

// OnComplete registers fn to run after every build, successful or not.
func (t *Trigger) OnComplete(fn func(Result)) {
	t.callbacksMu.Lock()
	defer t.callbacksMu.Unlock()
	t.callbacks = append(t.callbacks, fn)
}

// State returns the current state.
func (t *Trigger) State() State {
	return State(t.state.Load())
}

// Builds returns the number of builds started so far.
func (t *Trigger) Builds() int64 {
	return t.builds.Load()
}

// Listen consumes signals until ctx is cancelled or the channel is closed.
// It must be the only reader of signals.
func (t *Trigger) Listen(ctx context.Context, signals <-chan Signal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}

			extra, closed := drain(signals)
			t.logger.Info(ctx, "Rebuild requested",
				"source", sig.Source,
				"reason", sig.Reason,
				"coalesced", extra,
			)

			result := t.RunBuild(ctx)
			result.Coalesced = extra
			t.notify(result)

			if closed {
				return nil
			}
		}
	}
}

// RunBuild performs one build synchronously and returns its result. Callers
// other than Listen must not overlap calls.
func (t *Trigger) RunBuild(ctx context.Context) Result {
	t.state.Store(int32(StateBuilding))
	defer t.state.Store(int32(StateIdle))
	t.builds.Add(1)

	op := logging.StartOperation(t.logger, "rebuild")
	result := Result{
		Args:    append([]string(nil), t.args...),
		Started: time.Now(),
	}

	err := t.runner.Run(ctx, t.args)
	result.Err = err
	result.ExitCode = ExitCode(err)

	if err == nil {
		result.Duration = op.End(ctx)
		return result
	}

	result.Duration = op.EndWithError(ctx, err)
	if docerrors.TypeOf(err) != docerrors.ErrorTypeSpawn {
		t.logger.Warn(ctx, err, "Rebuild exited with failure", "exit_code", result.ExitCode)
	}

	return result
}

func (t *Trigger) notify(result Result) {
	t.callbacksMu.RLock()
	callbacks := append([]func(Result){}, t.callbacks...)
	t.callbacksMu.RUnlock()

	for _, fn := range callbacks {
		fn(result)
	}
}

// drain empties signals without blocking, reporting how many were discarded
// and whether the channel was closed.
func drain(signals <-chan Signal) (int, bool) {
	n := 0
	for {
		select {
		case _, ok := <-signals:
			if !ok {
				return n, true
			}
			n++
		default:
			return n, false
		}
	}
}
