package stream

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/a6b8/trackerAPI/pkg/buffer"
)

// Level is the severity of a Diagnostic.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Diagnostic kinds.
const (
	KindChannelOpen        = "channel_open"
	KindChannelReady       = "channel_ready"
	KindChannelClosed      = "channel_closed"
	KindImmediateClose     = "immediate_close"
	KindDialFailed         = "dial_failed"
	KindReconnect          = "reconnect_scheduled"
	KindReconnectExhausted = "reconnect_exhausted"
	KindParseError         = "parse_error"
	KindUnknownFrame       = "unknown_frame"
	KindRoomNotFound       = "room_not_found"
	KindRoomActive         = "room_active"
	KindRoomLeft           = "room_left"
	KindDuplicate          = "duplicate_tx"
	KindPipelineError      = "pipeline_error"
	KindSendFailed         = "send_failed"
	KindRequestQueued      = "request_queued"
	KindRequestSent        = "request_sent"
	KindResubscribe        = "resubscribe"
)

// Diagnostic is one structured lifecycle or protocol record.
type Diagnostic struct {
	Time    time.Time      `json:"time"`
	Level   Level          `json:"level"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// DiagnosticHandler receives every diagnostic, without rate limiting.
type DiagnosticHandler func(Diagnostic)

// Default log rate per diagnostic kind.
const (
	DefaultDiagnosticRate  = rate.Limit(5)
	DefaultDiagnosticBurst = 10
)

// DefaultDiagnosticHistory is the number of recent diagnostics kept for Recent.
const DefaultDiagnosticHistory = 256

// Diagnostics forwards records to an optional handler and to slog. Logging is
// rate limited per kind; suppressed records are counted and reported on the
// next record of that kind that gets through.
type Diagnostics struct {
	logger  *slog.Logger
	handler DiagnosticHandler
	metrics *streamMetrics
	limit   rate.Limit
	burst   int
	history *buffer.Ring[Diagnostic]

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	suppressed map[string]int
}

func newDiagnostics(logger *slog.Logger, handler DiagnosticHandler, metrics *streamMetrics, history int) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	var ring *buffer.Ring[Diagnostic]
	if history > 0 {
		// NewRing only fails on metrics registration.
		ring, _ = buffer.NewRing[Diagnostic](history)
	}
	return &Diagnostics{
		history:    ring,
		logger:     logger,
		handler:    handler,
		metrics:    metrics,
		limit:      DefaultDiagnosticRate,
		burst:      DefaultDiagnosticBurst,
		limiters:   make(map[string]*rate.Limiter),
		suppressed: make(map[string]int),
	}
}

// Emit delivers d.
func (d *Diagnostics) Emit(diag Diagnostic) {
	if diag.Time.IsZero() {
		diag.Time = time.Now()
	}
	d.metrics.diagnostic(diag.Level)
	if d.history != nil {
		d.history.Write(diag)
	}

	if d.handler != nil {
		d.handler(diag)
	}

	suppressed, ok := d.admit(diag.Kind)
	if !ok {
		return
	}

	attrs := make([]any, 0, 2*len(diag.Context)+4)
	attrs = append(attrs, "kind", diag.Kind)
	keys := make([]string, 0, len(diag.Context))
	for k := range diag.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, diag.Context[k])
	}
	if suppressed > 0 {
		attrs = append(attrs, "suppressed", suppressed)
	}

	d.logger.Log(context.Background(), diag.Level.slog(), diag.Message, attrs...)
}

// Recent returns up to n of the newest diagnostics, oldest first. Rate
// limiting does not apply to the history.
func (d *Diagnostics) Recent(n int) []Diagnostic {
	if d.history == nil {
		return nil
	}
	return d.history.Last(n)
}

// Suppressed returns the number of records of kind dropped since the last
// one that was logged.
func (d *Diagnostics) Suppressed(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suppressed[kind]
}

func (d *Diagnostics) admit(kind string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	limiter, ok := d.limiters[kind]
	if !ok {
		limiter = rate.NewLimiter(d.limit, d.burst)
		d.limiters[kind] = limiter
	}
	if !limiter.Allow() {
		d.suppressed[kind]++
		return 0, false
	}

	n := d.suppressed[kind]
	delete(d.suppressed, kind)
	return n, true
}

// notes collects diagnostics raised while the client mutex is held. They are
// emitted once the mutex is released.
type notes []Diagnostic

func (n *notes) add(level Level, kind, message string, kv ...any) {
	var ctx map[string]any
	if len(kv) > 0 {
		ctx = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				ctx[k] = kv[i+1]
			}
		}
	}
	*n = append(*n, Diagnostic{Level: level, Kind: kind, Message: message, Context: ctx})
}

func (n notes) emit(d *Diagnostics) {
	for _, diag := range n {
		d.Emit(diag)
	}
}
