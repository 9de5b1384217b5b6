package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageStore implements fiber.Storage over Redis for the page-cache and
// CSRF middleware. Every key lives under the store's prefix.
type PageStore struct {
	client *redis.Client
	prefix string
}

// NewPageStore returns the storage for cached pages, under "page:".
func NewPageStore(client *redis.Client) *PageStore {
	return &PageStore{client: client, prefix: pageKeyPrefix}
}

// NewTokenStore returns the storage for CSRF tokens, under "csrf:".
func NewTokenStore(client *redis.Client) *PageStore {
	return &PageStore{client: client, prefix: csrfKeyPrefix}
}

// Get returns nil, nil for a missing key, as fiber.Storage requires.
func (s *PageStore) Get(key string) ([]byte, error) {
	b, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (s *PageStore) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return s.client.Set(context.Background(), s.prefix+key, val, exp).Err()
}

func (s *PageStore) Delete(key string) error {
	return s.client.Del(context.Background(), s.prefix+key).Err()
}

// Reset drops every key under the prefix.
func (s *PageStore) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the client is owned by the server.
func (s *PageStore) Close() error {
	return nil
}
