package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolio-views/cache"
	"portfolio-views/middlewares"
	"portfolio-views/models"

	"golang.org/x/sync/singleflight"
)

const listKey = "views:all"

// loadTimeout bounds a list query shared by concurrent readers.
const loadTimeout = 10 * time.Second

// CachedStore serves ListViews from a ViewCache and drops the cached list
// whenever a count changes.
type CachedStore struct {
	Store
	cache cache.ViewCache
	group singleflight.Group

	// gen is bumped by Invalidate; a query that started before the bump
	// must not fill the cache.
	mu  sync.Mutex
	gen uint64
}

func NewCachedStore(next Store, c cache.ViewCache) *CachedStore {
	return &CachedStore{Store: next, cache: c}
}

func (s *CachedStore) ListViews(ctx context.Context) ([]models.ViewRecord, error) {
	views, err := s.cache.Get(ctx, listKey)
	if err == nil {
		return views, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		middlewares.ErrorLogger.Printf("view cache get: %v", err)
	}

	// Concurrent misses share one query. It outlives any single caller, so
	// each caller only waits on its own ctx.
	ch := s.group.DoChan(listKey, func() (interface{}, error) {
		gen := s.generation()
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		views, err := s.Store.ListViews(qctx)
		if err != nil {
			return nil, err
		}
		s.fill(qctx, gen, views)
		return views, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.ViewRecord), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CachedStore) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill caches views unless Invalidate ran after gen was read.
func (s *CachedStore) fill(ctx context.Context, gen uint64, views []models.ViewRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	if err := s.cache.Set(ctx, listKey, views); err != nil {
		middlewares.ErrorLogger.Printf("view cache set: %v", err)
	}
}

func (s *CachedStore) Increment(ctx context.Context, slug string) error {
	return s.IncrementBy(ctx, slug, 1)
}

func (s *CachedStore) IncrementBy(ctx context.Context, slug string, n uint) error {
	if err := s.Store.IncrementBy(ctx, slug, n); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached list so the next read goes to the store.
func (s *CachedStore) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.group.Forget(listKey)
	if err := s.cache.Delete(ctx, listKey); err != nil {
		middlewares.ErrorLogger.Printf("view cache delete: %v", err)
	}
}
