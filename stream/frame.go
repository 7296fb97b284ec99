package stream

import (
	"encoding/json"
	"fmt"

	"github.com/a6b8/trackerAPI/errors"
)

// FrameType is the type tag of an inbound frame.
type FrameType int

const (
	FrameUnknown FrameType = iota
	FramePing
	FrameJoined
	FrameLeft
	FrameMessage
)

func (t FrameType) String() string {
	switch t {
	case FramePing:
		return "ping"
	case FrameJoined:
		return "joined"
	case FrameLeft:
		return "left"
	case FrameMessage:
		return "message"
	default:
		return "unknown"
	}
}

func parseFrameType(s string) FrameType {
	switch s {
	case "ping":
		return FramePing
	case "joined":
		return FrameJoined
	case "left":
		return FrameLeft
	case "message":
		return FrameMessage
	default:
		return FrameUnknown
	}
}

// Frame is one decoded inbound frame.
type Frame struct {
	Type    FrameType
	RawType string
	Room    string
	Data    json.RawMessage
}

type wireFrame struct {
	Type string          `json:"type"`
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseFrame decodes an inbound frame. Unrecognised types decode to
// FrameUnknown; only malformed JSON is an error.
func ParseFrame(raw []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return Frame{}, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"stream", "ParseFrame", "decode frame")
	}
	return Frame{
		Type:    parseFrameType(w.Type),
		RawType: w.Type,
		Room:    w.Room,
		Data:    w.Data,
	}, nil
}

// Payload decodes the data field. An absent field yields nil.
func (f Frame) Payload() (any, error) {
	if len(f.Data) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"stream", "Payload", "decode data")
	}
	return payload, nil
}

// commandFrame encodes an outbound join or leave.
func commandFrame(cmd Command, key string) []byte {
	data, _ := json.Marshal(wireFrame{Type: string(cmd), Room: key})
	return data
}

// transactionID returns the "tx" field of an object payload.
func transactionID(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	tx, _ := m["tx"].(string)
	return tx
}
