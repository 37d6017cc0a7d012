package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

// Entry is one row of the keyed store.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Repository is the persistent keyed store backing client-local state such as
// the auth token and per-user label collections.
type Repository interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
