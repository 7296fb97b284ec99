// Package buffer provides a fixed-size, thread-safe ring that keeps the most
// recent items written to it.
package buffer

import (
	"sync"

	"github.com/a6b8/trackerAPI/errors"
)

// DropCallback is called with every item evicted to make room.
type DropCallback[T any] func(item T)

// Ring holds up to capacity items. Writing to a full ring evicts the oldest
// item.
type Ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position

	writes int64
	drops  int64

	metrics *ringMetrics
	onDrop  DropCallback[T]
}

// Stats is a point-in-time view of a ring.
type Stats struct {
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
	Writes   int64 `json:"writes"`
	Drops    int64 `json:"drops"`
}

// NewRing creates a ring. A capacity below one is raised to one.
func NewRing[T any](capacity int, options ...Option[T]) (*Ring[T], error) {
	opts := applyOptions(options...)
	if capacity <= 0 {
		capacity = 1
	}

	r := &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		onDrop:   opts.dropCallback,
	}
	if opts.metricsReg != nil {
		m, err := newRingMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "NewRing", "metrics registration")
		}
		r.metrics = m
	}
	return r, nil
}

// Write appends item, evicting the oldest item when the ring is full.
func (r *Ring[T]) Write(item T) {
	r.mu.Lock()

	var (
		dropped T
		evicted bool
	)
	if r.size == r.capacity {
		dropped = r.items[r.head]
		evicted = true
		r.drops++
	} else {
		r.size++
	}
	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.writes++
	r.metrics.write(r.size, evicted)

	onDrop := r.onDrop
	r.mu.Unlock()

	if evicted && onDrop != nil {
		onDrop(dropped)
	}
}

// Snapshot returns every item, oldest first.
func (r *Ring[T]) Snapshot() []T {
	return r.Last(r.Capacity())
}

// Last returns up to n of the newest items, oldest first.
func (r *Ring[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]T, n)
	start := (r.head - n + r.capacity) % r.capacity
	for i := 0; i < n; i++ {
		out[i] = r.items[(start+i)%r.capacity]
	}
	return out
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of items held.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// Clear removes every item. Counters are kept.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.size = 0
	r.head = 0
	r.metrics.setSize(0)
}

// Stats returns the current counters.
func (r *Ring[T]) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Size: r.size, Capacity: r.capacity, Writes: r.writes, Drops: r.drops}
}
