package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"portfolio-views/models"

	"github.com/alicebob/miniredis/v2"
)

var sample = []models.ViewRecord{
	{Slug: "a", Count: 1},
	{Slug: "b", Count: 20},
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), mr.Addr(), "", 0, ttl)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs, mr
}

func TestViewCaches(t *testing.T) {
	bc, err := NewBigCacheStore(time.Minute)
	if err != nil {
		t.Fatalf("bigcache: %v", err)
	}
	rs, _ := newRedisStore(t, time.Minute)

	caches := map[string]ViewCache{
		"bigcache": bc,
		"lru":      NewLRUStore(4, time.Minute),
		"redis":    rs,
	}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := c.Get(ctx, "views"); !errors.Is(err, ErrMiss) {
				t.Fatalf("empty cache: expected ErrMiss, got %v", err)
			}
			if err := c.Set(ctx, "views", sample); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := c.Get(ctx, "views")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !reflect.DeepEqual(got, sample) {
				t.Errorf("got %+v, want %+v", got, sample)
			}
			if err := c.Delete(ctx, "views"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := c.Delete(ctx, "views"); err != nil {
				t.Errorf("deleting a missing key: %v", err)
			}
			if _, err := c.Get(ctx, "views"); !errors.Is(err, ErrMiss) {
				t.Errorf("after delete: expected ErrMiss, got %v", err)
			}
		})
	}
	bc.Close()
}

func TestLRUCopiesValues(t *testing.T) {
	c := NewLRUStore(4, time.Minute)
	ctx := context.Background()

	value := []models.ViewRecord{{Slug: "a", Count: 1}}
	c.Set(ctx, "k", value)
	value[0].Count = 99

	got, _ := c.Get(ctx, "k")
	got[0].Slug = "changed"
	again, _ := c.Get(ctx, "k")
	if again[0].Count != 1 || again[0].Slug != "a" {
		t.Errorf("cached value was mutated: %+v", again)
	}
}

func TestRedisStoreExpires(t *testing.T) {
	rs, mr := newRedisStore(t, time.Second)
	ctx := context.Background()

	rs.Set(ctx, "views", sample)
	mr.FastForward(2 * time.Second)
	if _, err := rs.Get(ctx, "views"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected the entry to expire, got %v", err)
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, "127.0.0.1:1", "", 0, time.Minute); err == nil {
		t.Error("expected a ping error")
	}
}
