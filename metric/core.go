package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trackerapi"

// Metrics holds the collectors shared by the stream client and the event bridges.
type Metrics struct {
	// Stream
	FramesReceived    *prometheus.CounterVec
	EventsEmitted     *prometheus.CounterVec
	MessagesFiltered  *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	ReconnectAttempts prometheus.Counter
	ImmediateCloses   *prometheus.CounterVec
	ChannelReady      *prometheus.GaugeVec
	Subscriptions     prometheus.Gauge
	PendingRequests   prometheus.Gauge
	Diagnostics       *prometheus.CounterVec

	// Bridges
	BridgePublished *prometheus.CounterVec
}

// NewMetrics creates the core collectors. They are not registered anywhere.
func NewMetrics() *Metrics {
	return &Metrics{
		FramesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "frames_received_total",
				Help:      "Frames received per channel and frame type",
			},
			[]string{"channel", "type"},
		),

		EventsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "events_emitted_total",
				Help:      "Events delivered to the sink per room id",
			},
			[]string{"room"},
		),

		MessagesFiltered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "messages_filtered_total",
				Help:      "Messages rejected by a subscription filter",
			},
			[]string{"room"},
		),

		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "messages_dropped_total",
				Help:      "Messages dropped before reaching the pipeline",
			},
			[]string{"reason"},
		),

		ReconnectAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "reconnect_attempts_total",
				Help:      "Reconnect attempts made by the connection pool",
			},
		),

		ImmediateCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "immediate_closes_total",
				Help:      "Connections closed shortly after opening",
			},
			[]string{"channel"},
		),

		ChannelReady: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "channel_ready",
				Help:      "Channel readiness (0=not ready, 1=ready)",
			},
			[]string{"channel"},
		),

		Subscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "subscriptions",
				Help:      "Entries currently held in the subscription ledger",
			},
		),

		PendingRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "pending_requests",
				Help:      "Room requests queued until their channel is ready",
			},
		),

		Diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "diagnostics_total",
				Help:      "Diagnostics raised per severity, including rate-limited ones",
			},
			[]string{"level"},
		),

		BridgePublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "published_total",
				Help:      "Events published to external bridges",
			},
			[]string{"bridge", "result"},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FramesReceived,
		m.EventsEmitted,
		m.MessagesFiltered,
		m.MessagesDropped,
		m.ReconnectAttempts,
		m.ImmediateCloses,
		m.ChannelReady,
		m.Subscriptions,
		m.PendingRequests,
		m.Diagnostics,
		m.BridgePublished,
	}
}
