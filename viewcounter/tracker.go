package viewcounter

import (
	"context"
	"time"

	"portfolio-views/middlewares"
)

// Incrementer records one view of a page.
type Incrementer interface {
	Increment(ctx context.Context, slug string) error
}

// Dispatcher runs work off the caller's goroutine. queue.Worker is one.
type Dispatcher interface {
	Submit(task func()) bool
}

// Tracker sends increments without waiting for them. Failures are logged to
// the debug log and otherwise ignored: view counts are not worth retrying.
type Tracker struct {
	inc      Incrementer
	dispatch Dispatcher
	timeout  time.Duration
}

// NewTracker returns a Tracker that submits increments of inc to dispatch,
// each bounded by timeout.
func NewTracker(inc Incrementer, dispatch Dispatcher, timeout time.Duration) *Tracker {
	return &Tracker{inc: inc, dispatch: dispatch, timeout: timeout}
}

// Track asks for one increment of slug and returns immediately. A nil
// Tracker drops it.
func (t *Tracker) Track(slug string) {
	if t == nil {
		return
	}
	ok := t.dispatch.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.inc.Increment(ctx, slug); err != nil {
			middlewares.DebugLogger.Printf("increment %s dropped: %v", slug, err)
		}
	})
	if !ok {
		middlewares.DebugLogger.Printf("increment %s dropped: queue full", slug)
	}
}
