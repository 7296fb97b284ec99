package sink

import (
	"strings"
)

// NATSSubject returns the subject an event is published on: prefix.event.
// Characters NATS treats specially are replaced in the event token.
func NATSSubject(prefix, event string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, event)
	if prefix == "" {
		return token
	}
	return prefix + "." + token
}

// NewNATS creates a bridge publishing on prefix.<event>. pub is normally a
// connected *natsclient.Client.
func NewNATS(pub Publisher, prefix string, opts ...Option) (*Bridge, error) {
	return NewBridge("nats", pub, func(event string) string {
		return NATSSubject(prefix, event)
	}, opts...)
}
