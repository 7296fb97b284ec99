// Package cache provides a generic, thread-safe LRU cache.
//
// The stream client keeps its transaction de-duplication state here: every
// transaction id seen on the wire is Set into a bounded LRU, and a Set that
// reports an existing entry marks the message as a duplicate.
//
//	seen, _ := cache.NewLRU[struct{}](10000)
//	created, _ := seen.Set(txID, struct{}{})
//	if !created {
//	    // duplicate
//	}
//
// Stats snapshots are always available. Prometheus metrics are opt-in through
// WithMetrics.
package cache
