package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// KV is the subset of the redis client the store uses
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps the collection under a single key. SET replaces the
// value atomically.
type RedisStore struct {
	kv      KV
	key     string
	decoder Decoder
	close   func() error
}

// NewRedisStore creates a store over an existing client
func NewRedisStore(kv KV, key string, decoder Decoder) *RedisStore {
	return &RedisStore{kv: kv, key: key, decoder: decoder}
}

// NewRedisStoreFromConfig connects to redis and checks the connection.
func NewRedisStoreFromConfig(ctx context.Context, cfg model.RedisStorage, decoder Decoder) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	s := NewRedisStore(client, cfg.Key, decoder)
	s.close = client.Close
	return s, nil
}

// Save stores the collection
func (s *RedisStore) Save(ctx context.Context, records []model.Record) error {
	if err := s.kv.Set(ctx, s.key, model.EncodeRecords(records), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Load reads the collection back
func (s *RedisStore) Load(ctx context.Context) ([]model.Record, error) {
	data, err := s.kv.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis %s: %w", s.key, harvesterrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return s.decoder.Extract(data)
}

// Close releases the client when the store owns it
func (s *RedisStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
