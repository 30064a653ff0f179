// Package store holds the key-value backends that persist serialized collections.
package store

import "context"

// Storage is a flat key-value store. Get returns a nil value and no error when
// the key has never been written.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
