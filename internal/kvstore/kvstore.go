// Package kvstore provides the durable key/value slots the ledger image and
// user settings are written to.
package kvstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is a flat key/value persistence boundary. Save replaces any prior value
// atomically; a reader sees either the old or the new value, never a mix.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}
