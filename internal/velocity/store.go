package velocity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quent-dev/inventory-system/internal/config"
)

const windowKeyPrefix = "velocity:window"

// Store persists computed windows as opaque blobs keyed by store, solely
// so the cache survives process restarts.
type Store interface {
	Load(ctx context.Context, store string) (*Window, bool, error)
	Save(ctx context.Context, store string, window *Window) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type noopStore struct{}

// NewStore builds the persistence layer for the velocity cache; a disabled
// cache config yields a noop implementation.
func NewStore(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return NewNoopStore(), nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.VelocityTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &redisStore{client: client, ttl: ttl}, nil
}

func NewNoopStore() Store {
	return &noopStore{}
}

func (s *redisStore) Load(ctx context.Context, store string) (*Window, bool, error) {
	payload, err := s.client.Get(ctx, windowKey(store)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var window Window
	if err := json.Unmarshal(payload, &window); err != nil {
		return nil, false, fmt.Errorf("decode velocity window: %w", err)
	}
	return &window, true, nil
}

func (s *redisStore) Save(ctx context.Context, store string, window *Window) error {
	payload, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("encode velocity window: %w", err)
	}
	if err := s.client.Set(ctx, windowKey(store), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopStore) Load(ctx context.Context, store string) (*Window, bool, error) {
	return nil, false, nil
}

func (n *noopStore) Save(ctx context.Context, store string, window *Window) error {
	return nil
}

func windowKey(store string) string {
	return fmt.Sprintf("%s:%s", windowKeyPrefix, store)
}
