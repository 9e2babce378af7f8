package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"portfolio-views/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore is an implementation of ViewCache using Redis. Client is
// shared with the rate limiters and pub/sub.
type RedisStore struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr and pings it. Cached entries expire after
// ttl; zero keeps them until deleted.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return &RedisStore{Client: rdb, ttl: ttl}, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []models.ViewRecord) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]models.ViewRecord, error) {
	data, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var result []models.ViewRecord
	err = json.Unmarshal(data, &result)
	return result, err
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *RedisStore) Close() error {
	return r.Client.Close()
}
