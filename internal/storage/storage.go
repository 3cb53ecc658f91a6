package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Persistence is a get/put store of opaque values. The store keeps the whole
// fitness log as a single JSON value under one key.
type Persistence interface {
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove does not fail when the key is absent.
	Remove(ctx context.Context, key string) error
}
