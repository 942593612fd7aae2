package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"puzzlepals/internal/remote"
)

// Store is a Redis-backed document store
type Store struct {
	client *redis.Client
	cfg    Config
}

// Ensure Store implements the interface
var _ remote.DocumentStore = (*Store)(nil)

// New creates a Redis store. The connection is not checked here; the sync
// orchestrator probes it with its own timeout.
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	return NewWithClient(redis.NewClient(opts), cfg), nil
}

// NewWithClient creates a Redis store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Store {
	return &Store{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Upsert(ctx context.Context, collection, key string, doc []byte) error {
	return s.client.Set(ctx, s.key(collection, key), doc, 0).Err()
}

func (s *Store) Find(ctx context.Context, collection, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(collection, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, remote.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	return s.client.Del(ctx, s.key(collection, key)).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(collection, key string) string {
	prefix := s.cfg.KeyPrefix
	if prefix == "" {
		prefix = "puzzlepals"
	}
	return prefix + ":" + collection + ":" + key
}
