package cache

import (
	"context"
	"time"

	"portfolio-views/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUStore keeps up to size snapshots in process memory, each for ttl.
type LRUStore struct {
	lru *expirable.LRU[string, []models.ViewRecord]
}

func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	return &LRUStore{lru: expirable.NewLRU[string, []models.ViewRecord](size, nil, ttl)}
}

func (l *LRUStore) Set(_ context.Context, key string, value []models.ViewRecord) error {
	// Callers may keep mutating their slice.
	l.lru.Add(key, append([]models.ViewRecord(nil), value...))
	return nil
}

func (l *LRUStore) Get(_ context.Context, key string) ([]models.ViewRecord, error) {
	v, ok := l.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]models.ViewRecord(nil), v...), nil
}

func (l *LRUStore) Delete(_ context.Context, key string) error {
	l.lru.Remove(key)
	return nil
}

func (l *LRUStore) Close() error {
	l.lru.Purge()
	return nil
}
