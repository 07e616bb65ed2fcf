package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/gomarketplace/cartstore/pkg/redis"
)

// Store keeps snapshots as plain string values under gm:cart:<key>.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Store{client: client}, nil
}

func (s *Store) Name() string { return "redis" }

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.client.CartKey(key))
	if errors.Is(err, redis.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.client.CartKey(key), value, 0); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
