// Package buffer keeps a bounded history of recent items.
//
// A Ring never blocks and never rejects a write: once full, each write
// evicts the oldest item. It is used for the recent diagnostics history of a
// stream client.
//
//	ring, err := buffer.NewRing[Diagnostic](256,
//	    buffer.WithMetrics[Diagnostic](registry, "diagnostics"))
//	if err != nil {
//	    return err
//	}
//	ring.Write(d)
//	recent := ring.Last(20) // oldest first
//
// Counters are always kept and returned by Stats; Prometheus metrics are
// exported when WithMetrics is given a registry.
package buffer
