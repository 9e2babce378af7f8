package batcher

import (
	"context"
	"sync"
	"time"
)

// TimeBatcher collects ViewEvents and flushes every flushInterval.
type TimeBatcher struct {
	buf           buffer
	flushInterval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewTimeBatcher returns a TimeBatcher that flushes on the given interval.
// Pass flushInterval=0 to disable time-based flushing.
func NewTimeBatcher(flushInterval time.Duration, flush FlushFunc) *TimeBatcher {
	return &TimeBatcher{
		buf:           buffer{flush: flush},
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the background ticker. It ends when ctx is done or Stop is
// called. Pending events are not flushed on exit; call Flush for that.
func (b *TimeBatcher) Start(ctx context.Context) {
	if b.flushInterval <= 0 {
		close(b.done)
		return
	}
	ticker := time.NewTicker(b.flushInterval)
	go func() {
		defer close(b.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.buf.write(ctx, "TimeBatcher", b.buf.take())
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background ticker and waits for an in-progress flush.
// Start must have been called.
func (b *TimeBatcher) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	<-b.done
}

// Enqueue adds an event; it will be included in the next flush.
func (b *TimeBatcher) Enqueue(evt ViewEvent) {
	b.buf.add(evt)
}

// Increment enqueues one view of slug.
func (b *TimeBatcher) Increment(_ context.Context, slug string) error {
	b.Enqueue(ViewEvent{Slug: slug, Timestamp: time.Now()})
	return nil
}

// Flush writes whatever is pending.
func (b *TimeBatcher) Flush(ctx context.Context) error {
	return b.buf.write(ctx, "TimeBatcher", b.buf.take())
}
