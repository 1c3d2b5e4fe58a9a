// Package preferences is a small persistent key/value store for device-local
// state: the wrapped keyset, the encrypted token snapshot and user settings.
package preferences

import "context"

// Store persists opaque values by key. Get returns (nil, nil) when the key
// is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
