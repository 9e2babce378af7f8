package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"portfolio-views/models"

	"github.com/allegro/bigcache"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// ViewCache holds snapshots of the view collection.
type ViewCache interface {
	Set(ctx context.Context, key string, value []models.ViewRecord) error
	Get(ctx context.Context, key string) ([]models.ViewRecord, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// BigCacheStore is an implementation of ViewCache using BigCache.
type BigCacheStore struct {
	cache *bigcache.BigCache
}

// NewBigCacheStore initializes a new BigCacheStore whose entries live for ttl.
func NewBigCacheStore(ttl time.Duration) (*BigCacheStore, error) {
	config := bigcache.DefaultConfig(ttl)
	config.Shards = 64
	config.CleanWindow = ttl
	config.HardMaxCacheSize = 64 // MB
	bc, err := bigcache.NewBigCache(config)
	if err != nil {
		return nil, err
	}
	return &BigCacheStore{cache: bc}, nil
}

func (b *BigCacheStore) Set(_ context.Context, key string, value []models.ViewRecord) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.cache.Set(key, data)
}

func (b *BigCacheStore) Get(_ context.Context, key string) ([]models.ViewRecord, error) {
	data, err := b.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var value []models.ViewRecord
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (b *BigCacheStore) Delete(_ context.Context, key string) error {
	err := b.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (b *BigCacheStore) Close() error {
	return b.cache.Close()
}
