// Package retry provides exponential backoff schedules with jitter.
//
// # Overview
//
// A Config describes a schedule. The same type drives two call sites:
//
//   - the websocket reconnect loop, which asks for Delay(attempt) and Exhausted(attempt)
//     and arms its own timer
//   - Do and DoWithResult, which run a function until it succeeds, the attempts run out
//     or the context is cancelled (used for startup dials such as the NATS bridge)
//
// # Reconnect Schedule
//
// Reconnect(base, max, jitter, maxAttempts) retries the first failure immediately to
// absorb transient startup races. Every later attempt n waits
//
//	min(base * 2^n, max) + uniform(0, delay*jitter)
//
// With base=1s, max=8s and no jitter, attempts 1..4 wait 2s, 4s, 8s, 8s.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a mutex
// guarded random source.
package retry
