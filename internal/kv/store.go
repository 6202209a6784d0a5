// Package kv persists JSON documents under namespaced keys.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv key not found")

// Store is the persisted key-value state of the service.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
