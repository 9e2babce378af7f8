package batcher

import (
	"context"
	"time"
)

// CountBatcher collects ViewEvents and flushes whenever count >= threshold.
type CountBatcher struct {
	buf       buffer
	threshold int
}

// NewCountBatcher returns a CountBatcher that flushes through flush when
// len(events) >= threshold. Pass threshold=0 to flush only on Flush.
func NewCountBatcher(threshold int, flush FlushFunc) *CountBatcher {
	return &CountBatcher{
		buf:       buffer{flush: flush},
		threshold: threshold,
	}
}

// Enqueue adds an event and flushes if the threshold is reached. The flush
// runs on the caller's goroutine.
func (b *CountBatcher) Enqueue(evt ViewEvent) {
	b.enqueue(context.Background(), evt)
}

// Increment enqueues one view of slug. A threshold flush it triggers is
// bounded by ctx and its error is returned.
func (b *CountBatcher) Increment(ctx context.Context, slug string) error {
	return b.enqueue(ctx, ViewEvent{Slug: slug, Timestamp: time.Now()})
}

func (b *CountBatcher) enqueue(ctx context.Context, evt ViewEvent) error {
	if n := b.buf.add(evt); b.threshold > 0 && n >= b.threshold {
		return b.buf.write(ctx, "CountBatcher", b.buf.take())
	}
	return nil
}

// Flush writes whatever is pending.
func (b *CountBatcher) Flush(ctx context.Context) error {
	return b.buf.write(ctx, "CountBatcher", b.buf.take())
}
