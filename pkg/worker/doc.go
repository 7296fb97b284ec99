// Package worker runs work items on a fixed set of goroutines behind a
// bounded queue.
//
// Submit never blocks: when the queue is full the item is dropped and
// ErrQueueFull returned, so a producer on a latency sensitive path (a
// websocket read loop) is never held up by a slow consumer (a broker).
//
//	pool, err := worker.NewPool(4, 1024, func(ctx context.Context, msg Message) error {
//	    return publisher.Publish(ctx, msg.Topic, msg.Data)
//	}, worker.WithMetricsRegistry[Message](registry, "nats_bridge"))
//	if err != nil {
//	    return err
//	}
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Stop closes the queue and lets the workers drain what is left. Statistics
// are always tracked; Prometheus metrics are recorded when a registry is
// configured.
package worker
