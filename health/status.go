package health

import (
	"regexp"
	"strings"
	"time"
)

// Status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Websocket URLs carry the API key in their path, so they are scrubbed first.
var (
	wsURLRegex      = regexp.MustCompile(`wss?://[^\s]+`)
	httpURLRegex    = regexp.MustCompile(`https?://[^\s]+`)
	brokerURLRegex  = regexp.MustCompile(`(nats|redis)://[^\s]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a channel, a component or the whole client.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries connection counters alongside a status.
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	ImmediateCloses   int           `json:"immediate_closes,omitempty"`
	ReconnectAttempts int           `json:"reconnect_attempts,omitempty"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached.
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy of the status with subStatus appended.
func (s Status) WithSubStatus(subStatus Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, subStatus)
	return s
}

// FromError builds an unhealthy status whose message is err with URLs,
// addresses and credentials scrubbed. A nil err yields a healthy status.
func FromError(component string, err error) Status {
	if err == nil {
		return NewHealthy(component, "ok")
	}
	return NewUnhealthy(component, SanitizeMessage(err.Error()))
}

// SanitizeMessage removes URLs, IP addresses, ports and credential
// assignments from msg.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	out := wsURLRegex.ReplaceAllString(msg, "[URL]")
	out = httpURLRegex.ReplaceAllString(out, "[URL]")
	out = brokerURLRegex.ReplaceAllString(out, "[URL]")
	out = ipAddrRegex.ReplaceAllString(out, "[IP]")
	out = portRegex.ReplaceAllString(out, "[PORT]")

	lower := strings.ToLower(out)
	for _, word := range []string{"password", "token", "key", "secret"} {
		if strings.Contains(lower, word) {
			out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
			break
		}
	}
	return out
}
