// Package natsclient wraps a nats.go connection for publishing stream events.
//
// The client adds a circuit breaker around Connect: after a threshold of
// consecutive failures (default 5) further attempts fail fast with
// ErrCircuitOpen until the breaker's backoff has elapsed. Each time the
// circuit opens again the backoff doubles, up to the maximum set with
// WithBreaker. Once connected, reconnects are handled by nats.go itself and
// published messages are buffered while it reconnects.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithName("trackerstream"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	err = client.Publish(ctx, "tracker.priceUpdates", data)
//
// Connection lifecycle:
//
//	Disconnected -> Connecting -> Connected <-> Reconnecting
//	      ^              |
//	      +-- CircuitOpen (after repeated failures)
//
// Health maps the lifecycle onto a health.Status for the /health endpoint.
// Close drains pending messages and clears credentials from memory.
package natsclient
