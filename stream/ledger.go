package stream

import (
	"sort"

	"github.com/a6b8/trackerAPI/pipeline"
)

// Status of a subscription.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
)

type subscription struct {
	key     string
	roomID  string
	channel string
	params  map[string]any
	status  Status
	count   uint64
	chain   pipeline.Chain
}

// SubscriptionInfo is a snapshot of one ledger entry.
type SubscriptionInfo struct {
	Key       string         `json:"key"`
	RoomID    string         `json:"room_id"`
	Channel   string         `json:"channel"`
	Params    map[string]any `json:"params,omitempty"`
	Status    Status         `json:"status"`
	Count     uint64         `json:"count"`
	Filters   []string       `json:"filters,omitempty"`
	Modifiers []string       `json:"modifiers,omitempty"`
	Strategy  string         `json:"strategy,omitempty"`
}

// ledger holds the joined rooms by resolved key. It is not safe for
// concurrent use; the client mutex guards it.
type ledger struct {
	subs map[string]*subscription
}

func newLedger() *ledger {
	return &ledger{subs: make(map[string]*subscription)}
}

func (l *ledger) put(s *subscription) {
	l.subs[s.key] = s
}

func (l *ledger) get(key string) *subscription {
	return l.subs[key]
}

func (l *ledger) remove(key string) bool {
	if _, ok := l.subs[key]; !ok {
		return false
	}
	delete(l.subs, key)
	return true
}

func (l *ledger) len() int {
	return len(l.subs)
}

func (l *ledger) clear() {
	l.subs = make(map[string]*subscription)
}

// onChannel returns the entries of channel sorted by key.
func (l *ledger) onChannel(channel string) []*subscription {
	var out []*subscription
	for _, s := range l.subs {
		if s.channel == channel {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func (l *ledger) snapshot() []SubscriptionInfo {
	out := make([]SubscriptionInfo, 0, len(l.subs))
	for _, s := range l.subs {
		params := make(map[string]any, len(s.params))
		for k, v := range s.params {
			params[k] = v
		}
		out = append(out, SubscriptionInfo{
			Key:       s.key,
			RoomID:    s.roomID,
			Channel:   s.channel,
			Params:    params,
			Status:    s.status,
			Count:     s.count,
			Filters:   s.chain.FilterNames(),
			Modifiers: s.chain.ModifierNames(),
			Strategy:  s.chain.Strategy,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
