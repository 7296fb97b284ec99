// Package stream is the real-time subscription client for the tracker data
// stream.
//
// A Client keeps one websocket connection per configured channel (by default
// "main" and "transaction"). The server pings every channel; a channel is
// ready once it has seen its first ping since the last (re)connect. Room
// requests for a channel that is not ready are queued and replayed in order
// as soon as it becomes ready.
//
// Joined rooms live in a ledger keyed by the resolved room key. Inbound
// message frames are looked up by key, passed through the subscription's
// filter and modifier chain and emitted to the Sink under the room id.
//
//	client, err := stream.New(cfg, stream.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	client.On("priceUpdates", func(event string, payload any) { ... })
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	outcome, err := client.Join("priceUpdates", map[string]any{"poolId": poolID})
//
// Unexpected closes trigger reconnects with exponential backoff and jitter.
// The first retry is immediate. Reconnected channels re-join their ledger
// entries before the queue is flushed. Disconnect is a hard reset that drops
// the ledger, the queue and the de-duplication state.
//
// Concurrency: each connection has one read goroutine and frames from one
// channel are handled in arrival order. Client state is guarded by a single
// mutex that is released before filters, modifiers, the sink and diagnostic
// handlers run, so handlers may call back into the client.
package stream
