package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"portfolio-views/cache"
	"portfolio-views/config"
	"portfolio-views/models"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := config.InitDB(config.DriverPureGo, filepath.Join(t.TempDir(), "views.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func TestGormStoreIncrement(t *testing.T) {
	s := newGormStore(t)
	ctx := context.Background()

	if n, err := s.GetViews(ctx, "hello"); err != nil || n != 0 {
		t.Fatalf("absent slug: got %d, %v", n, err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Increment(ctx, "hello"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := s.IncrementBy(ctx, "hello", 10); err != nil {
		t.Fatalf("increment by: %v", err)
	}
	if n, _ := s.GetViews(ctx, "hello"); n != 13 {
		t.Errorf("expected 13 views, got %d", n)
	}
}

func TestGormStoreConcurrentIncrements(t *testing.T) {
	s := newGormStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Increment(ctx, "busy"); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()
	if n, _ := s.GetViews(ctx, "busy"); n != 20 {
		t.Errorf("lost increments: got %d, want 20", n)
	}
}

func TestGormStoreListViews(t *testing.T) {
	s := newGormStore(t)
	ctx := context.Background()

	views, err := s.ListViews(ctx)
	if err != nil || len(views) != 0 {
		t.Fatalf("empty store: got %v, %v", views, err)
	}
	s.IncrementBy(ctx, "zebra", 1)
	s.IncrementBy(ctx, "apple", 4)

	views, err = s.ListViews(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 || views[0].Slug != "apple" || views[0].Count != 4 || views[1].Slug != "zebra" {
		t.Errorf("unexpected list %+v", views)
	}
}

func TestGormStoreRejectsBadInput(t *testing.T) {
	s := newGormStore(t)
	ctx := context.Background()

	if err := s.Increment(ctx, ""); !errors.Is(err, ErrInvalidSlug) {
		t.Errorf("empty slug: got %v", err)
	}
	if err := s.Increment(ctx, strings.Repeat("x", MaxSlugLength+1)); !errors.Is(err, ErrInvalidSlug) {
		t.Errorf("long slug: got %v", err)
	}
	if err := s.IncrementBy(ctx, "ok", 0); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("zero count: got %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}

type countingStore struct {
	Store
	mu    sync.Mutex
	lists int
}

func (c *countingStore) ListViews(ctx context.Context) ([]models.ViewRecord, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.Store.ListViews(ctx)
}

func (c *countingStore) listCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists
}

func TestCachedStore(t *testing.T) {
	bc, err := cache.NewBigCacheStore(time.Minute)
	if err != nil {
		t.Fatalf("bigcache: %v", err)
	}
	caches := map[string]cache.ViewCache{
		"lru":      cache.NewLRUStore(8, time.Minute),
		"bigcache": bc,
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			defer c.Close()
			ctx := context.Background()
			backing := &countingStore{Store: newGormStore(t)}
			s := NewCachedStore(backing, c)

			s.IncrementBy(ctx, "post", 2)
			for i := 0; i < 3; i++ {
				views, err := s.ListViews(ctx)
				if err != nil || len(views) != 1 || views[0].Count != 2 {
					t.Fatalf("list: %v, %v", views, err)
				}
			}
			if n := backing.listCalls(); n != 1 {
				t.Errorf("expected one store read, got %d", n)
			}

			s.Increment(ctx, "post")
			views, _ := s.ListViews(ctx)
			if views[0].Count != 3 {
				t.Errorf("increment must invalidate the list, got %d", views[0].Count)
			}

			s.Invalidate(ctx)
			s.ListViews(ctx)
			if n := backing.listCalls(); n != 3 {
				t.Errorf("expected 3 store reads, got %d", n)
			}
		})
	}
}

// blockingStore holds ListViews until release is closed.
type blockingStore struct {
	Store
	entered chan struct{}
	release chan struct{}
	views   []models.ViewRecord
}

func newBlockingStore(views []models.ViewRecord) *blockingStore {
	return &blockingStore{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		views:   views,
	}
}

func (b *blockingStore) ListViews(ctx context.Context) ([]models.ViewRecord, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.views, ctx.Err()
}

func waitEntered(t *testing.T, b *blockingStore) {
	t.Helper()
	select {
	case <-b.entered:
	case <-time.After(time.Second):
		t.Fatal("store was never queried")
	}
}

func TestCachedStoreCallerCancelDoesNotFailOthers(t *testing.T) {
	backing := newBlockingStore([]models.ViewRecord{{Slug: "post", Count: 1}})
	s := NewCachedStore(backing, cache.NewLRUStore(4, time.Minute))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.ListViews(firstCtx)
		firstErr <- err
	}()
	waitEntered(t, backing)

	type result struct {
		views []models.ViewRecord
		err   error
	}
	second := make(chan result, 1)
	go func() {
		views, err := s.ListViews(context.Background())
		second <- result{views, err}
	}()
	// let the second reader join the query in flight
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared query")
	}

	close(backing.release)
	select {
	case res := <-second:
		if res.err != nil || len(res.views) != 1 || res.views[0].Count != 1 {
			t.Errorf("live caller: got %v, %v", res.views, res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("live caller never returned")
	}
}

func TestCachedStoreInvalidateDuringQuery(t *testing.T) {
	backing := newBlockingStore([]models.ViewRecord{{Slug: "post", Count: 1}})
	c := cache.NewLRUStore(4, time.Minute)
	s := NewCachedStore(backing, c)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.ListViews(ctx); err != nil {
			t.Errorf("list: %v", err)
		}
	}()
	waitEntered(t, backing)

	// an increment lands while the old list is being read
	s.Invalidate(ctx)
	close(backing.release)
	<-done

	if cached, err := c.Get(ctx, listKey); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("a list read before the invalidation was cached: %v, %v", cached, err)
	}

	// the next read fills the cache again
	s.ListViews(ctx)
	if _, err := c.Get(ctx, listKey); err != nil {
		t.Errorf("expected the list to be cached, got %v", err)
	}
}
