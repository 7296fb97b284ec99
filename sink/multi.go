package sink

import (
	"github.com/a6b8/trackerAPI/stream"
)

// Multi fans every event out to each sink in order.
type Multi []stream.Sink

// Emit forwards the event to every sink.
func (m Multi) Emit(event string, payload any) {
	for _, s := range m {
		s.Emit(event, payload)
	}
}
