package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_RateLimitedLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handled := 0
	d := newDiagnostics(logger, func(Diagnostic) { handled++ }, nil, 0)

	for i := 0; i < 20; i++ {
		d.Emit(Diagnostic{Level: LevelWarn, Kind: KindParseError, Message: "discarding malformed frame"})
	}
	assert.Equal(t, 20, handled, "the handler is never throttled")

	logged, reported := 0, 0
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		assert.Equal(t, KindParseError, line["kind"])
		assert.Equal(t, "WARN", line["level"])
		logged++
		if n, ok := line["suppressed"].(float64); ok {
			reported += int(n)
		}
	}
	assert.GreaterOrEqual(t, logged, DefaultDiagnosticBurst)
	assert.Less(t, logged, 20)
	assert.Equal(t, 20, logged+reported+d.Suppressed(KindParseError))

	// kinds are limited independently
	buf.Reset()
	d.Emit(Diagnostic{Level: LevelInfo, Kind: KindChannelReady, Message: "channel ready",
		Context: map[string]any{"channel": "main"}})
	assert.Contains(t, buf.String(), `"channel":"main"`)
}

func TestNotes(t *testing.T) {
	var n notes
	n.add(LevelInfo, KindChannelOpen, "open", "channel", "main", "attempt", 2)
	n.add(LevelDebug, KindRequestSent, "sent")

	var got []Diagnostic
	d := newDiagnostics(discardLogger(), func(diag Diagnostic) { got = append(got, diag) }, nil, 0)
	n.emit(d)

	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"channel": "main", "attempt": 2}, got[0].Context)
	assert.Nil(t, got[1].Context)
}

func TestDiagnostics_Recent(t *testing.T) {
	d := newDiagnostics(discardLogger(), nil, nil, 3)
	assert.Empty(t, d.Recent(10))

	for _, kind := range []string{KindChannelOpen, KindChannelReady, KindRoomActive, KindRoomLeft} {
		d.Emit(Diagnostic{Level: LevelInfo, Kind: kind})
	}

	recent := d.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, KindChannelReady, recent[0].Kind)
	assert.Equal(t, KindRoomLeft, recent[2].Kind)
	assert.False(t, recent[2].Time.IsZero())

	data, err := json.Marshal(recent[2])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"info"`)

	assert.Nil(t, newDiagnostics(discardLogger(), nil, nil, 0).Recent(5))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, slog.LevelError, LevelError.slog())
	assert.Equal(t, slog.LevelInfo, LevelInfo.slog())
}

func TestEmitter(t *testing.T) {
	e := NewEmitter()

	var order []string
	a := e.On("priceUpdates", func(event string, _ any) { order = append(order, "a:"+event) })
	e.On(AnyEvent, func(event string, _ any) { order = append(order, "any:"+event) })
	e.On("priceUpdates", func(event string, _ any) { order = append(order, "b:"+event) })

	e.Emit("priceUpdates", 1)
	e.Emit("graduated", 2)
	assert.Equal(t, []string{
		"a:priceUpdates", "b:priceUpdates", "any:priceUpdates",
		"any:graduated",
	}, order)

	assert.True(t, e.Off("priceUpdates", a))
	assert.False(t, e.Off("priceUpdates", a))

	order = nil
	e.Emit("priceUpdates", 3)
	assert.Equal(t, []string{"b:priceUpdates", "any:priceUpdates"}, order)
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		raw  string
		want FrameType
		room string
	}{
		{`{"type":"ping"}`, FramePing, ""},
		{`{"type":"joined","room":"latest"}`, FrameJoined, "latest"},
		{`{"type":"left","room":"latest"}`, FrameLeft, "latest"},
		{`{"type":"message","room":"price:p1","data":{"price":1.5}}`, FrameMessage, "price:p1"},
		{`{"type":"welcome"}`, FrameUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Type)
			assert.Equal(t, tt.room, f.Room)
		})
	}

	_, err := ParseFrame([]byte(`{"type":`))
	assert.Error(t, err)

	f, _ := ParseFrame([]byte(`{"type":"message","room":"r","data":{"tx":"abc"}}`))
	payload, err := f.Payload()
	require.NoError(t, err)
	assert.Equal(t, "abc", transactionID(payload))
	assert.Equal(t, "", transactionID("abc"))

	assert.Equal(t, `{"type":"join","room":"price:p1"}`, string(commandFrame(CommandJoin, "price:p1")))
}
