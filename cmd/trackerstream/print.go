package main

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

type printedEvent struct {
	Event string    `json:"event"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data"`
}

// printer writes every event as one JSON line. Channels emit concurrently,
// so writes are serialized.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w), now: time.Now}
}

func (p *printer) Emit(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.enc.Encode(printedEvent{Event: event, Time: p.now().UTC(), Data: payload})
}
