package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// ErrStopped is returned when a task is submitted to a loop that has
// stopped, or when the loop stops before running a submitted task.
var ErrStopped = errors.New("host loop stopped")

const defaultQueueSize = 64

// task is a unit of work queued on a [Loop].
type task struct {
	fn     func()
	result chan error // nil for Post
}

// Loop runs submitted functions one at a time on a single goroutine.
//
// Everything that touches a store owned by the loop (reads, dispatches,
// subscription changes and binding activations) is submitted through
// [Loop.Do] or [Loop.Post], so the store never sees concurrent access.
// Notify callbacks fired by a dispatch therefore also run on the loop.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Loop struct {
	tasks  chan task
	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a [Loop] with room for queueSize pending tasks. A queueSize of
// zero or less uses a default of 64.
//
// The loop must be started with [Loop.Start] and stopped with [Loop.Stop].
func New(queueSize int, logger *slog.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan task, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start runs the loop in a background goroutine until [Loop.Stop] is called
// or ctx is cancelled.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer l.closeOnce.Do(func() { close(l.done) })

		for {
			select {
			case <-loopCtx.Done():
				return
			case t := <-l.tasks:
				err := l.run(t.fn)
				if t.result != nil {
					t.result <- err
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the running task, if any, to finish.
// Tasks still queued are abandoned and their callers receive [ErrStopped].
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		if l.cancel != nil {
			l.cancel()
		}
	}
	l.mu.Unlock()

	l.wg.Wait()

	// ensure done is closed even if Start() was never called
	l.closeOnce.Do(func() { close(l.done) })
}

// Done returns a channel that is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop and waits for it to finish.
//
// It returns ctx.Err() if ctx ends first, [ErrStopped] if the loop stops
// before fn runs, and an error carrying a correlation ID if fn panics.
// When ctx ends after fn was queued, fn may still run later.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	result := make(chan error, 1)

	select {
	case l.tasks <- task{fn: fn, result: result}:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		// the loop may have finished fn just before exiting
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn to run on the loop without waiting for it. It blocks only
// while the queue is full, and returns [ErrStopped] if the loop has stopped.
// Panics in fn are recovered and logged.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.tasks <- task{fn: fn}:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// run calls fn with panic recovery.
// If fn panics, it logs the full stack trace with a correlation ID and
// returns an error containing the ID.
func (l *Loop) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			l.logger.Error("host task panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			err = fmt.Errorf("host task panic (correlation_id: %s)", correlationID)
		}
	}()
	fn()
	return nil
}
