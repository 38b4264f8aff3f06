package async

import (
	"fmt"
	"log/slog"
	"sync"
)

// Loop is an explicit event-loop value rather than a global singleton:
// cmd/u8node owns the primary loop and may create auxiliary loops, each a
// full sibling with its own dedicated goroutine and wake channel. All
// user-provided callbacks (Future.Then, handle completion callbacks) run
// on the Loop goroutine that owns them; callbacks must not block, since a
// blocking callback starves every other pending completion on that loop.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewLoop constructs and starts a Loop with its own dedicated goroutine.
// The returned Loop must be closed with Close when no longer needed.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		tasks:  make(chan func(), 256),
		done:   make(chan struct{}),
		logger: logger,
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.tasks:
			l.runTask(fn)
		case <-l.done:
			// Drain any tasks queued before shutdown so pending Then
			// callbacks still observe a resolved future.
			for {
				select {
				case fn := <-l.tasks:
					l.runTask(fn)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("async loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// Submit enqueues fn to run on the loop's goroutine. Submit is safe to call
// from any goroutine, including from within another task running on this
// same loop.
func (l *Loop) Submit(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
		l.logger.Warn("dropped task submitted to a closed async loop")
	}
}

// Close stops the loop after draining already-queued tasks, and waits for
// its goroutine to exit. Close is idempotent.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
