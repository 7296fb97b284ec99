// Package sink forwards stream events to message brokers.
//
// A Bridge implements stream.Sink. Each event is wrapped in an Envelope with
// a fresh id and timestamp, encoded with a Codec (JSON or CBOR) and handed to
// a worker pool that publishes it, so a slow broker never stalls the
// websocket read loop. Publish failures are logged and counted; they are
// never reported back to the stream client.
//
//	nc, _ := natsclient.NewClient(cfg.Bridge.NATS.URL)
//	_ = nc.Connect(ctx)
//	bridge, err := sink.NewNATS(nc, "tracker", sink.WithCodec(sink.CBORCodec{}))
//	if err != nil {
//	    return err
//	}
//	_ = bridge.Start(ctx)
//	defer bridge.Close(5 * time.Second)
//
//	client, err := stream.New(cfg, stream.WithSink(sink.Multi{bridge, local}))
//
// NATS subjects are "<prefix>.<event>" and Redis channels "<prefix>:<event>",
// where the event is the room id.
package sink
