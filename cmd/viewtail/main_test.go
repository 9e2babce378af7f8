package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"portfolio-views/pubsub"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTailPrintsFlushedSlugs(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ps := pubsub.NewPubSub(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	if err := tail(ctx, ps, pubsub.EventViewsFlushed, &out); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if err := ps.Publish(ctx, "something_else", map[string]interface{}{"x": 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := ps.PublishFlushed(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "2 slugs [a b]") {
		if time.Now().After(deadline) {
			t.Fatalf("expected flushed slugs in output, got %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if strings.Contains(out.String(), "something_else") {
		t.Errorf("unrelated event printed: %q", out.String())
	}
}
