package natsclient

import (
	"sync"
	"time"
)

const initialBackoff = time.Second

// breaker counts connect failures. After threshold consecutive failures it
// opens for the current backoff, and each opening doubles the backoff up to
// max. A success closes it and resets the backoff.
type breaker struct {
	mu        sync.Mutex
	threshold int
	max       time.Duration

	total   int
	streak  int
	backoff time.Duration
	open    bool
}

func newBreaker(threshold int, max time.Duration) *breaker {
	return &breaker{threshold: threshold, max: max, backoff: initialBackoff}
}

// fail records one failure. When it opens the breaker, wait is the time until
// the breaker may be half-opened.
func (b *breaker) fail() (opened bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	b.streak++
	if b.streak < b.threshold {
		return false, 0
	}

	b.streak = 0
	wait = b.backoff
	b.backoff = min(b.backoff*2, b.max)
	if b.open {
		return false, 0
	}
	b.open = true
	return true, wait
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total, b.streak = 0, 0
	b.backoff = initialBackoff
	b.open = false
}

// halfOpen lets the next attempt through. It reports false if the breaker
// was not open.
func (b *breaker) halfOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return false
	}
	b.open = false
	return true
}

func (b *breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *breaker) failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *breaker) currentBackoff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backoff
}
