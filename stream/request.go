package stream

import (
	"fmt"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/pipeline"
	"github.com/a6b8/trackerAPI/rooms"
)

// Command is a room command.
type Command string

const (
	CommandJoin  Command = "join"
	CommandLeave Command = "leave"
)

// Outcome tells whether a request went out immediately or was queued.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeSent
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeQueued:
		return "queued"
	default:
		return "rejected"
	}
}

// RoomRequest joins or leaves one room instance. Filters and Modifiers take
// precedence over Strategy; both are ignored on leave.
type RoomRequest struct {
	RoomID    string
	Command   Command
	Params    map[string]any
	Filters   []pipeline.FilterRef
	Modifiers []pipeline.ModifierRef
	Strategy  string
}

// JoinOption attaches a pipeline to a join.
type JoinOption func(*RoomRequest)

// WithFilters attaches filters.
func WithFilters(refs ...pipeline.FilterRef) JoinOption {
	return func(r *RoomRequest) { r.Filters = append(r.Filters, refs...) }
}

// WithModifiers attaches modifiers.
func WithModifiers(refs ...pipeline.ModifierRef) JoinOption {
	return func(r *RoomRequest) { r.Modifiers = append(r.Modifiers, refs...) }
}

// WithStrategy attaches a registered strategy.
func WithStrategy(name string) JoinOption {
	return func(r *RoomRequest) { r.Strategy = name }
}

// pendingRequest is a validated request waiting for its channel.
type pendingRequest struct {
	req   RoomRequest
	room  rooms.Descriptor
	key   string
	chain pipeline.Chain
}

// Join subscribes to roomID.
func (c *Client) Join(roomID string, params map[string]any, opts ...JoinOption) (Outcome, error) {
	req := RoomRequest{RoomID: roomID, Command: CommandJoin, Params: params}
	for _, opt := range opts {
		opt(&req)
	}
	return c.UpdateRoom(req)
}

// Leave unsubscribes from roomID.
func (c *Client) Leave(roomID string, params map[string]any) (Outcome, error) {
	return c.UpdateRoom(RoomRequest{RoomID: roomID, Command: CommandLeave, Params: params})
}

// UpdateRoom validates req and either sends it on the owning channel or
// queues it until that channel is ready. Validation failures return an
// *errors.ValidationError and never reach the wire.
func (c *Client) UpdateRoom(req RoomRequest) (Outcome, error) {
	p, err := c.prepare(req)
	if err != nil {
		return OutcomeRejected, err
	}

	var n notes
	c.mu.Lock()
	outcome := c.applyLocked(p, &n)
	c.syncGaugesLocked()
	c.mu.Unlock()

	n.emit(c.diag)
	return outcome, nil
}

func (c *Client) prepare(req RoomRequest) (pendingRequest, error) {
	var (
		messages []string
		cause    error
	)
	fail := func(err error, msgs ...string) {
		if cause == nil {
			cause = err
		}
		messages = append(messages, msgs...)
	}

	d, lookupErr := c.catalog.Lookup(req.RoomID)
	if lookupErr != nil {
		fail(errors.ErrUnknownRoom, errors.Messages(lookupErr)...)
	}
	if req.Command != CommandJoin && req.Command != CommandLeave {
		fail(errors.ErrUnknownCommand, fmt.Sprintf("cmd '%s' is not 'join' or 'leave'", req.Command))
	}
	if len(messages) > 0 {
		return pendingRequest{}, errors.NewValidation(cause, "stream", "UpdateRoom", messages...)
	}

	key, err := d.Resolve(req.Params)
	if err != nil {
		if ve, ok := errors.AsValidation(err); ok {
			fail(ve.Cause, ve.Messages...)
		} else {
			fail(errors.ErrInvalidParam, err.Error())
		}
	}
	if !c.cfg.hasChannel(d.Channel) {
		fail(errors.ErrUnknownChannel,
			fmt.Sprintf("channel '%s' of room '%s' is not in socketNames", d.Channel, d.ID))
	}

	var chain pipeline.Chain
	if req.Command == CommandJoin {
		chain, err = c.registry.Resolve(req.Filters, req.Modifiers, req.Strategy)
		if err != nil {
			if ve, ok := errors.AsValidation(err); ok {
				fail(ve.Cause, ve.Messages...)
			} else {
				fail(errors.ErrInvalidFilter, err.Error())
			}
		}
	}

	if len(messages) > 0 {
		return pendingRequest{}, errors.NewValidation(cause, "stream", "UpdateRoom", messages...)
	}
	return pendingRequest{req: req, room: d, key: key, chain: chain}, nil
}

// applyLocked sends p or queues it. The caller holds c.mu.
func (c *Client) applyLocked(p pendingRequest, n *notes) Outcome {
	ch := c.channels[p.room.Channel]
	if ch == nil || ch.conn == nil || !ch.ready {
		return c.queueLocked(p, n)
	}

	if err := ch.conn.WriteMessage(commandFrame(p.req.Command, p.key)); err != nil {
		ch.errorCount++
		n.add(LevelWarn, KindSendFailed, "room request could not be sent, queued",
			"channel", ch.name, "room", p.key, "cmd", string(p.req.Command), "error", err.Error())
		return c.queueLocked(p, n)
	}

	switch p.req.Command {
	case CommandJoin:
		c.recordJoinLocked(p)
	case CommandLeave:
		c.ledger.remove(p.key)
	}

	n.add(LevelDebug, KindRequestSent, "room request sent",
		"channel", ch.name, "room", p.key, "cmd", string(p.req.Command))
	return OutcomeSent
}

// recordJoinLocked puts a waiting subscription for p into the ledger,
// replacing any earlier one for the key.
func (c *Client) recordJoinLocked(p pendingRequest) {
	c.ledger.put(&subscription{
		key:     p.key,
		roomID:  p.room.ID,
		channel: p.room.Channel,
		params:  p.req.Params,
		status:  StatusWaiting,
		chain:   p.chain,
	})
}

func (c *Client) queueLocked(p pendingRequest, n *notes) Outcome {
	// Queued requests take effect locally right away: a join is recorded as
	// waiting and a leave stops further events for the key.
	switch p.req.Command {
	case CommandJoin:
		c.recordJoinLocked(p)
	case CommandLeave:
		c.ledger.remove(p.key)
	}
	c.pending = append(c.pending, p)
	n.add(LevelInfo, KindRequestQueued, "channel not ready, room request queued",
		"channel", p.room.Channel, "room", p.key, "cmd", string(p.req.Command), "pending", len(c.pending))
	return OutcomeQueued
}

// takePendingLocked removes and returns the queued requests of channel in
// submission order.
func (c *Client) takePendingLocked(channel string) []pendingRequest {
	var taken, kept []pendingRequest
	for _, p := range c.pending {
		if p.room.Channel == channel {
			taken = append(taken, p)
		} else {
			kept = append(kept, p)
		}
	}
	c.pending = kept
	return taken
}
