// Package cache provides a generic, thread-safe LRU cache with statistics
// and optional Prometheus metrics.
package cache

import (
	"fmt"

	"github.com/a6b8/trackerAPI/errors"
)

// Cache represents a generic cache parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a value by key and marks it as recently used.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns all keys, most recently used first.
	Keys() []string

	// Stats returns a snapshot of the counters.
	Stats() Stats

	// Close releases resources held by the cache.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// NewLRU creates an LRU cache holding at most maxSize entries.
func NewLRU[V any](maxSize int, options ...Option[V]) (Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("max size must be positive, got %d", maxSize),
			"cache", "NewLRU", "validate size")
	}
	return newLRUCache[V](maxSize, applyOptions(options...))
}

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(fmt.Errorf("empty key"), "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
