package stream

import (
	"github.com/a6b8/trackerAPI/metric"
)

// streamMetrics records into the core metrics of a registry. A nil
// *streamMetrics records nothing.
type streamMetrics struct {
	m *metric.Metrics
}

func newStreamMetrics(registry *metric.MetricsRegistry) *streamMetrics {
	if registry == nil {
		return nil
	}
	return &streamMetrics{m: registry.CoreMetrics()}
}

func (s *streamMetrics) frame(channel string, t string) {
	if s != nil {
		s.m.FramesReceived.WithLabelValues(channel, t).Inc()
	}
}

func (s *streamMetrics) emitted(room string) {
	if s != nil {
		s.m.EventsEmitted.WithLabelValues(room).Inc()
	}
}

func (s *streamMetrics) filtered(room string) {
	if s != nil {
		s.m.MessagesFiltered.WithLabelValues(room).Inc()
	}
}

func (s *streamMetrics) dropped(reason string) {
	if s != nil {
		s.m.MessagesDropped.WithLabelValues(reason).Inc()
	}
}

func (s *streamMetrics) reconnectAttempt() {
	if s != nil {
		s.m.ReconnectAttempts.Inc()
	}
}

func (s *streamMetrics) immediateClose(channel string) {
	if s != nil {
		s.m.ImmediateCloses.WithLabelValues(channel).Inc()
	}
}

func (s *streamMetrics) ready(channel string, ready bool) {
	if s == nil {
		return
	}
	v := 0.0
	if ready {
		v = 1
	}
	s.m.ChannelReady.WithLabelValues(channel).Set(v)
}

func (s *streamMetrics) gauges(subscriptions, pending int) {
	if s != nil {
		s.m.Subscriptions.Set(float64(subscriptions))
		s.m.PendingRequests.Set(float64(pending))
	}
}

func (s *streamMetrics) diagnostic(level Level) {
	if s != nil {
		s.m.Diagnostics.WithLabelValues(level.String()).Inc()
	}
}
