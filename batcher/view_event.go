package batcher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"portfolio-views/middlewares"
	"portfolio-views/store"
)

// ViewEvent represents a single requested view of a page.
type ViewEvent struct {
	Slug      string
	Timestamp time.Time
}

// AggregatedCount maps page slugs to the views collected for them.
type AggregatedCount map[string]uint

// Slugs returns the keys in sorted order.
func (a AggregatedCount) Slugs() []string {
	slugs := make([]string, 0, len(a))
	for slug := range a {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// FlushFunc persists one aggregated batch.
type FlushFunc func(ctx context.Context, batch AggregatedCount) error

// WriteTo returns a FlushFunc that adds every batched count to s and then
// calls onFlushed, if set, with the slugs that were written.
func WriteTo(s store.Store, onFlushed func(ctx context.Context, slugs []string)) FlushFunc {
	return func(ctx context.Context, batch AggregatedCount) error {
		var (
			errs    []error
			written []string
		)
		for _, slug := range batch.Slugs() {
			if err := s.IncrementBy(ctx, slug, batch[slug]); err != nil {
				errs = append(errs, err)
				continue
			}
			written = append(written, slug)
		}
		if onFlushed != nil && len(written) > 0 {
			onFlushed(ctx, written)
		}
		return errors.Join(errs...)
	}
}

// buffer is the pending-event list shared by both batchers.
type buffer struct {
	mu     sync.Mutex
	events []ViewEvent
	flush  FlushFunc
}

// add appends evt and returns the number of pending events.
func (b *buffer) add(evt ViewEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return len(b.events)
}

func (b *buffer) take() []ViewEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	events := b.events
	b.events = nil
	return events
}

// write aggregates events and hands them to the flush func outside the lock.
// A failed batch is logged and dropped.
func (b *buffer) write(ctx context.Context, name string, events []ViewEvent) error {
	if len(events) == 0 {
		return nil
	}
	agg := make(AggregatedCount)
	for _, e := range events {
		agg[e.Slug]++
	}

	middlewares.DebugLogger.Printf("%s flush: %d events -> %v", name, len(events), agg)
	if err := b.flush(ctx, agg); err != nil {
		middlewares.ErrorLogger.Printf("%s flush failed, dropped %d events: %v", name, len(events), err)
		return err
	}
	return nil
}
