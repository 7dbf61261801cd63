package cache

import (
	"context"
	"errors"
	"fmt"
)

// Backend persists cache entries. The Store keeps an in-memory mirror and
// writes through to the backend on every mutation.
type Backend interface {
	// Name identifies the backend in logs and stats.
	Name() string

	// LoadAll returns every persisted entry.
	LoadAll(ctx context.Context) ([]Entry, error)

	// Upsert inserts or replaces the entry with the same ID.
	Upsert(ctx context.Context, e Entry) error

	// Delete removes the entries with the given IDs. Missing IDs are ignored.
	Delete(ctx context.Context, ids ...string) error

	// Close releases the backend's resources.
	Close() error
}

// ErrNotFound is returned when a cache entry does not exist.
var ErrNotFound = errors.New("cache entry not found")

// StorageError reports that the persistent backend could not be read or written.
// The in-memory mirror has still been updated when it is returned from a write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
