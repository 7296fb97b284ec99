package stream

import (
	"time"
)

// route handles one inbound frame of channel name.
func (c *Client) route(name string, conn Conn, epoch uint64, raw []byte) {
	frame, err := ParseFrame(raw)
	if err != nil {
		c.metrics.frame(name, "invalid")
		c.diag.Emit(Diagnostic{
			Level:   LevelWarn,
			Kind:    KindParseError,
			Message: "discarding malformed frame",
			Context: map[string]any{"channel": name, "error": err.Error()},
		})
		return
	}
	c.metrics.frame(name, frame.Type.String())

	switch frame.Type {
	case FramePing:
		c.handlePing(name, conn, epoch)
	case FrameJoined:
		c.handleJoined(name, conn, epoch, frame)
	case FrameLeft:
		c.diag.Emit(Diagnostic{
			Level:   LevelDebug,
			Kind:    KindRoomLeft,
			Message: "leave acknowledged",
			Context: map[string]any{"channel": name, "room": frame.Room},
		})
	case FrameMessage:
		c.handleMessage(name, conn, epoch, frame)
	default:
		c.diag.Emit(Diagnostic{
			Level:   LevelWarn,
			Kind:    KindUnknownFrame,
			Message: "unrecognized frame type",
			Context: map[string]any{"channel": name, "type": frame.RawType},
		})
	}
}

// handlePing marks the channel ready on its first ping, re-joins the ledger
// entries of the channel and replays its queued requests in order. A ledger
// entry with a queued join is left to that join, which carries the newer chain.
func (c *Client) handlePing(name string, conn Conn, epoch uint64) {
	var n notes
	c.mu.Lock()
	ch, ok := c.owns(name, conn, epoch)
	if !ok {
		c.mu.Unlock()
		return
	}
	ch.lastActivity = time.Now()
	if ch.ready {
		c.mu.Unlock()
		return
	}

	ch.ready = true
	c.attempts = 0
	c.exhausted = false
	c.metrics.ready(name, true)
	n.add(LevelInfo, KindChannelReady, "channel ready", "channel", name)

	pending := c.takePendingLocked(name)
	queuedJoins := make(map[string]bool, len(pending))
	for _, p := range pending {
		if p.req.Command == CommandJoin {
			queuedJoins[p.key] = true
		}
	}

	for _, sub := range c.ledger.onChannel(name) {
		if queuedJoins[sub.key] {
			continue
		}
		sub.status = StatusWaiting
		if err := conn.WriteMessage(commandFrame(CommandJoin, sub.key)); err != nil {
			ch.errorCount++
			n.add(LevelWarn, KindSendFailed, "re-join failed", "channel", name, "room", sub.key, "error", err.Error())
			continue
		}
		n.add(LevelDebug, KindResubscribe, "re-joined room after reconnect", "channel", name, "room", sub.key)
	}

	for _, p := range pending {
		c.applyLocked(p, &n)
	}
	c.syncGaugesLocked()
	c.mu.Unlock()

	n.emit(c.diag)
}

func (c *Client) handleJoined(name string, conn Conn, epoch uint64, frame Frame) {
	var n notes
	c.mu.Lock()
	if _, ok := c.owns(name, conn, epoch); !ok {
		c.mu.Unlock()
		return
	}
	if sub := c.ledger.get(frame.Room); sub != nil {
		sub.status = StatusActive
		n.add(LevelInfo, KindRoomActive, "room active", "channel", name, "room", frame.Room)
	} else {
		n.add(LevelWarn, KindRoomNotFound, "join acknowledged for unknown room", "channel", name, "room", frame.Room)
	}
	c.mu.Unlock()

	n.emit(c.diag)
}

// handleMessage runs the subscription pipeline and emits the result under
// the room id. The pipeline and the sink run without the client mutex.
func (c *Client) handleMessage(name string, conn Conn, epoch uint64, frame Frame) {
	payload, perr := frame.Payload()

	var n notes
	c.mu.Lock()
	ch, ok := c.owns(name, conn, epoch)
	if !ok {
		c.mu.Unlock()
		return
	}
	ch.lastActivity = time.Now()

	sub := c.ledger.get(frame.Room)
	if sub == nil {
		c.mu.Unlock()
		c.metrics.dropped("room_not_found")
		c.diag.Emit(Diagnostic{
			Level:   LevelWarn,
			Kind:    KindRoomNotFound,
			Message: "message for unknown room",
			Context: map[string]any{"channel": name, "room": frame.Room},
		})
		return
	}
	sub.count++
	ch.messages++
	roomID := sub.roomID
	chain := sub.chain
	c.mu.Unlock()

	if perr != nil {
		c.metrics.dropped("parse_error")
		n.add(LevelWarn, KindParseError, "discarding message with malformed data",
			"channel", name, "room", frame.Room, "error", perr.Error())
		n.emit(c.diag)
		return
	}

	if tx := transactionID(payload); tx != "" && c.dedup != nil {
		if created, _ := c.dedup.Set(tx, struct{}{}); !created {
			c.metrics.dropped("duplicate")
			c.diag.Emit(Diagnostic{
				Level:   LevelDebug,
				Kind:    KindDuplicate,
				Message: "duplicate transaction dropped",
				Context: map[string]any{"channel": name, "room": frame.Room, "tx": tx},
			})
			return
		}
	}

	out, pass, err := chain.Apply(payload)
	if err != nil {
		c.metrics.dropped("pipeline_error")
		c.diag.Emit(Diagnostic{
			Level:   LevelError,
			Kind:    KindPipelineError,
			Message: "pipeline failed",
			Context: map[string]any{"channel": name, "room": frame.Room, "error": err.Error()},
		})
		return
	}
	if !pass {
		c.metrics.filtered(roomID)
		return
	}

	c.sink.Emit(roomID, out)
	c.metrics.emitted(roomID)
}
