package prefs

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps preferences in Redis so several terminals share them
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a Store under the given key prefix
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pulse"
	}
	return &RedisStore{redis: client, key: prefix + ":" + settingsKey}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisStore(client, ""), nil
}

func (s *RedisStore) Load(ctx context.Context) (Prefs, bool, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Default(), false, nil
	}
	if err != nil {
		return Default(), false, err
	}
	p := Default()
	if err := sonic.Unmarshal(data, &p); err != nil {
		// corrupt value, drop it so the next save starts clean
		_ = s.redis.Del(ctx, s.key).Err()
		return Default(), false, nil
	}
	return p.Normalize(), true, nil
}

func (s *RedisStore) Save(ctx context.Context, p Prefs) error {
	data, err := sonic.Marshal(p)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, s.key, data, 0).Err()
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
