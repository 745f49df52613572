// Package rediskv implements port.Port on a Redis server.
package rediskv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/formsync/internal/port"
)

// DefaultPrefix namespaces formsync keys on a shared server.
const DefaultPrefix = "formsync:"

// Store is a Redis-backed port.Port. Values never expire.
type Store struct {
	client *redis.Client
	prefix string
}

var _ port.Port = (*Store)(nil)

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &port.StorageError{Op: "dial", Key: addr, Err: err}
	}
	return New(client, DefaultPrefix), nil
}

// Put implements port.Port.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return &port.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Get implements port.Port.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &port.StorageError{Op: "get", Key: key, Err: err}
	}
	return v, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
