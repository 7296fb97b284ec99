package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a6b8/trackerAPI/errors"
	"github.com/a6b8/trackerAPI/metric"
	"github.com/a6b8/trackerAPI/pipeline"
	"github.com/a6b8/trackerAPI/rooms"
)

const (
	testPool  = "pool1"
	testToken = "So11111111111111111111111111111111111111112"
)

func priceParams() map[string]any { return map[string]any{"poolId": testPool} }

func joinFrame(key string) string  { return `{"type":"join","room":"` + key + `"}` }
func leaveFrame(key string) string { return `{"type":"leave","room":"` + key + `"}` }

func messageFrame(key string, data any) map[string]any {
	return map[string]any{"type": "message", "room": key, "data": data}
}

func TestConnect_InvalidURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"", "wsUrl is undefined"},
		{"https://datastream.example.test", "wsUrl is not a valid websocket url"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := testConfig()
			cfg.URL = tt.url
			h := newHarness(t, cfg)

			err := h.client.Connect(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidURL)
			assert.Equal(t, []string{tt.want}, errors.Messages(err))
			assert.Equal(t, 0, h.transport.dialCount())
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SocketNames = []string{"main", "main"}
	cfg.ReconnectDelayMax = time.Millisecond

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Equal(t, []string{
		"socketNames contains 'main' twice",
		"reconnectDelayMax must be >= reconnectDelay",
	}, errors.Messages(err))
}

func TestConnect_OpensEveryChannelOnce(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	h.connect(t)

	assert.Equal(t, 2, h.transport.dialCount())
	assert.Equal(t, 1, h.transport.connCount(rooms.ChannelMain))
	assert.Equal(t, 1, h.transport.connCount(rooms.ChannelTransaction))
	assert.Equal(t, 2, h.diags.count(KindChannelOpen))
}

func TestJoin_SendsOnReadyChannel(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	h.main(t).ping(t)
	require.True(t, h.client.Ready(rooms.ChannelMain))
	require.False(t, h.client.Ready(rooms.ChannelTransaction))

	outcome, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, []string{joinFrame("price:pool1")}, h.main(t).frames())

	subs := h.client.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "price:pool1", subs[0].Key)
	assert.Equal(t, "priceUpdates", subs[0].RoomID)
	assert.Equal(t, StatusWaiting, subs[0].Status)
}

func TestJoin_ValidationNeverReachesWire(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	h.main(t).ping(t)

	tests := []struct {
		name  string
		req   RoomRequest
		cause error
		want  []string
	}{
		{
			name:  "missing param",
			req:   RoomRequest{RoomID: "priceUpdates", Command: CommandJoin},
			cause: errors.ErrMissingParam,
			want:  []string{"Missing parameter: poolId (required)"},
		},
		{
			name:  "unknown room",
			req:   RoomRequest{RoomID: "priceUpdate", Command: CommandJoin, Params: priceParams()},
			cause: errors.ErrUnknownRoom,
			want:  []string{"roomId 'priceUpdate' is unknown. Did you mean 'priceUpdates'?"},
		},
		{
			name:  "unknown command",
			req:   RoomRequest{RoomID: "priceUpdates", Command: "subscribe", Params: priceParams()},
			cause: errors.ErrUnknownCommand,
			want:  []string{"cmd 'subscribe' is not 'join' or 'leave'"},
		},
		{
			name: "unknown strategy",
			req: RoomRequest{
				RoomID: "priceUpdates", Command: CommandJoin, Params: priceParams(), Strategy: "nope",
			},
			cause: errors.ErrUnknownStrategy,
		},
		{
			name: "unknown filter",
			req: RoomRequest{
				RoomID: "priceUpdates", Command: CommandJoin, Params: priceParams(),
				Filters: []pipeline.FilterRef{pipeline.FilterByName("ghost")},
			},
			want: []string{"filter 'ghost' is unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := h.client.UpdateRoom(tt.req)
			require.Error(t, err)
			assert.Equal(t, OutcomeRejected, outcome)
			assert.True(t, errors.IsInvalid(err))
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			if tt.want != nil {
				assert.Equal(t, tt.want, errors.Messages(err))
			}
		})
	}

	assert.Empty(t, h.main(t).frames())
	assert.Empty(t, h.client.Subscriptions())
	assert.Equal(t, 0, h.client.Pending())
}

func TestJoin_UnknownChannel(t *testing.T) {
	cfg := testConfig()
	cfg.SocketNames = []string{rooms.ChannelMain}
	h := newHarness(t, cfg)

	_, err := h.client.Join("transactions", map[string]any{"tokenAddress": testToken})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownChannel)
	assert.Equal(t, 0, h.client.Pending())
}

func TestJoin_QueuedUntilFirstPing(t *testing.T) {
	h := newHarness(t, testConfig())

	// before Connect
	outcome, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	subs := h.client.Subscriptions()
	require.Len(t, subs, 1, "a queued join is recorded right away")
	assert.Equal(t, StatusWaiting, subs[0].Status)

	h.connect(t)

	// connected but not ready
	outcome, err = h.client.Join("transactions", map[string]any{"tokenAddress": testToken})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	outcome, err = h.client.Join("poolChanges", map[string]any{"poolId": "p2"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Equal(t, 3, h.client.Pending())
	assert.Equal(t, 3, h.diags.count(KindRequestQueued))

	assert.Empty(t, h.main(t).frames())
	assert.Empty(t, h.tx(t).frames())

	assert.Len(t, h.client.Subscriptions(), 3)

	h.main(t).ping(t)
	assert.Equal(t, []string{joinFrame("price:pool1"), joinFrame("pool:p2")}, h.main(t).frames())
	assert.Equal(t, 0, h.diags.count(KindResubscribe), "queued joins are not re-joined twice")
	assert.Empty(t, h.tx(t).frames())
	assert.Equal(t, 1, h.client.Pending())

	// later pings do not replay anything
	h.main(t).ping(t)
	assert.Len(t, h.main(t).frames(), 2)

	h.tx(t).ping(t)
	assert.Equal(t, []string{joinFrame("transaction:" + testToken)}, h.tx(t).frames())
	assert.Equal(t, 0, h.client.Pending())
	assert.Len(t, h.client.Subscriptions(), 3)
}

func TestJoined_ActivatesSubscription(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)

	main.push(t, `{"type":"joined","room":"price:pool1"}`)
	subs := h.client.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, StatusActive, subs[0].Status)
	assert.Equal(t, 1, h.diags.count(KindRoomActive))

	main.push(t, `{"type":"joined","room":"price:other"}`)
	assert.Equal(t, 1, h.diags.count(KindRoomNotFound))

	main.push(t, `{"type":"left","room":"price:pool1"}`)
	assert.Equal(t, 1, h.diags.count(KindRoomLeft))
}

func TestMessage_ModifiersRunInOrder(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	double := pipeline.Modifier{Name: "double", Fn: func(d any) any { return d.(float64) * 2 }}
	addOne := pipeline.Modifier{Name: "addOne", Fn: func(d any) any { return d.(float64) + 1 }}
	_, err := h.client.Join("priceUpdates", priceParams(),
		WithModifiers(pipeline.InlineModifier(double), pipeline.InlineModifier(addOne)))
	require.NoError(t, err)

	main.pushJSON(t, messageFrame("price:pool1", 3))

	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, "priceUpdates", events[0].name)
	assert.Equal(t, float64(7), events[0].payload)

	subs := h.client.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, uint64(1), subs[0].Count)
	assert.Equal(t, []string{"double", "addOne"}, subs[0].Modifiers)
}

func TestMessage_FilterShortCircuits(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	var mu sync.Mutex
	calls := map[string]int{}
	count := func(name string, keep bool) pipeline.FilterRef {
		return pipeline.InlineFilter(pipeline.Filter{Name: name, Fn: func(any) bool {
			mu.Lock()
			calls[name]++
			mu.Unlock()
			return keep
		}})
	}

	_, err := h.client.Join("priceUpdates", priceParams(),
		WithFilters(count("f1", true), count("f2", false), count("f3", true)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		main.pushJSON(t, messageFrame("price:pool1", i))
	}

	assert.Empty(t, h.events.all())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"f1": 3, "f2": 3}, calls)
}

func TestMessage_Strategy(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	_, err := h.client.Join("latestTokensPools", nil, WithStrategy(pipeline.StrategyPumpFunNewTokens))
	require.NoError(t, err)

	token := func(createdOn string) map[string]any {
		return map[string]any{
			"token": map[string]any{"name": "Example", "mint": "Mint111", "createdOn": createdOn},
			"pools": []any{map[string]any{"openTime": 0, "deployer": "Deployer111"}},
		}
	}
	main.pushJSON(t, messageFrame("latest", token("https://pump.fun")))
	main.pushJSON(t, messageFrame("latest", token("https://other.xyz")))

	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, "latestTokensPools", events[0].name)
	out, ok := events[0].payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Mint111", out["mint"])
	assert.Equal(t, "https://pump.fun/coin/Mint111", out["pumpFun"])

	subs := h.client.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, pipeline.StrategyPumpFunNewTokens, subs[0].Strategy)
	assert.Equal(t, uint64(2), subs[0].Count)
}

func TestMessage_UnknownRoomAndBadFrames(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	main.pushJSON(t, messageFrame("price:nobody", 1))
	assert.Equal(t, 1, h.diags.count(KindRoomNotFound))

	main.push(t, `not json`)
	assert.Equal(t, 1, h.diags.count(KindParseError))

	main.push(t, `{"type":"hello"}`)
	assert.Equal(t, 1, h.diags.count(KindUnknownFrame))
	d, ok := h.diags.last(KindUnknownFrame)
	require.True(t, ok)
	assert.Equal(t, "hello", d.Context["type"])

	assert.Empty(t, h.events.all())
	assert.True(t, h.client.Ready(rooms.ChannelMain), "bad frames do not close the channel")
}

func TestMessage_PipelinePanicIsContained(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	boom := pipeline.Modifier{Name: "boom", Fn: func(any) any { panic("bad payload") }}
	_, err := h.client.Join("priceUpdates", priceParams(), WithModifiers(pipeline.InlineModifier(boom)))
	require.NoError(t, err)

	main.pushJSON(t, messageFrame("price:pool1", 1))
	main.pushJSON(t, messageFrame("price:pool1", 2))

	assert.Empty(t, h.events.all())
	assert.Equal(t, 2, h.diags.count(KindPipelineError))
	d, _ := h.diags.last(KindPipelineError)
	assert.Equal(t, LevelError, d.Level)
}

func TestMessage_DuplicateTransactions(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	tx := h.tx(t)
	tx.ping(t)

	_, err := h.client.Join("transactions", map[string]any{"tokenAddress": testToken})
	require.NoError(t, err)

	key := "transaction:" + testToken
	tx.pushJSON(t, messageFrame(key, map[string]any{"tx": "sig1", "type": "buy"}))
	tx.pushJSON(t, messageFrame(key, map[string]any{"tx": "sig1", "type": "buy"}))
	tx.pushJSON(t, messageFrame(key, map[string]any{"tx": "sig2", "type": "sell"}))

	assert.Len(t, h.events.all(), 2)
	assert.Equal(t, 1, h.diags.count(KindDuplicate))
}

func TestLeave(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)

	main.pushJSON(t, messageFrame("price:pool1", 1))
	require.Len(t, h.events.all(), 1)

	outcome, err := h.client.Leave("priceUpdates", priceParams())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, outcome)
	assert.Equal(t, []string{joinFrame("price:pool1"), leaveFrame("price:pool1")}, main.frames())
	assert.Empty(t, h.client.Subscriptions())

	main.pushJSON(t, messageFrame("price:pool1", 2))
	assert.Len(t, h.events.all(), 1, "nothing is emitted after the leave")
	assert.Equal(t, 1, h.diags.count(KindRoomNotFound))
}

func TestLeave_QueuedRemovesImmediately(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)

	main.drop()
	require.Eventually(t, func() bool {
		return h.transport.connCount(rooms.ChannelMain) == 2
	}, 2*time.Second, 5*time.Millisecond)

	outcome, err := h.client.Leave("priceUpdates", priceParams())
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Empty(t, h.client.Subscriptions())

	h.main(t).ping(t)
	assert.Equal(t, []string{leaveFrame("price:pool1")}, h.main(t).frames())
}

func TestLeave_FromEventHandler(t *testing.T) {
	var client *Client
	var mu sync.Mutex
	var got []any
	sink := SinkFunc(func(event string, payload any) {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
		_, _ = client.Leave("priceUpdates", priceParams())
	})

	h := newHarness(t, testConfig(), WithSink(sink))
	client = h.client
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	_, err := client.Join("priceUpdates", priceParams())
	require.NoError(t, err)

	main.pushJSON(t, messageFrame("price:pool1", 1))
	main.pushJSON(t, messageFrame("price:pool1", 2))

	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
	assert.Equal(t, leaveFrame("price:pool1"), main.frames()[1])
}

func TestSendFailure_Requeues(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	main.mu.Lock()
	main.writeErr = errors.ErrConnectionLost
	main.mu.Unlock()

	outcome, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Equal(t, 1, h.client.Pending())
	assert.Equal(t, 1, h.diags.count(KindSendFailed))
}

func TestDisconnect_HardReset(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)
	_, err = h.client.Join("transactions", map[string]any{"tokenAddress": testToken})
	require.NoError(t, err)
	require.Equal(t, 1, h.client.Pending())

	h.client.mu.Lock()
	oldEpoch := h.client.epoch
	h.client.mu.Unlock()

	require.NoError(t, h.client.Disconnect())

	assert.Empty(t, h.client.Subscriptions())
	assert.Equal(t, 0, h.client.Pending())
	assert.False(t, h.client.Ready(rooms.ChannelMain))

	// a frame from the old session is ignored
	h.client.route(rooms.ChannelMain, main, oldEpoch, []byte(`{"type":"message","room":"price:pool1","data":1}`))
	assert.Empty(t, h.events.all())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, h.transport.dialCount(), "no reconnect after Disconnect")
	assert.True(t, h.client.Health().IsUnhealthy())

	// a fresh Connect starts over
	h.connect(t)
	assert.Equal(t, 4, h.transport.dialCount())
	assert.Empty(t, h.client.Subscriptions())
}

func TestReconnect_RejoinsLedger(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	first := h.main(t)
	first.ping(t)

	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)
	_, err = h.client.Join("poolChanges", map[string]any{"poolId": "p2"})
	require.NoError(t, err)
	first.push(t, `{"type":"joined","room":"price:pool1"}`)

	first.drop()
	require.Eventually(t, func() bool {
		return h.transport.connCount(rooms.ChannelMain) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.diags.count(KindChannelClosed))
	assert.Equal(t, 0, h.diags.count(KindImmediateClose))

	// queued while reconnecting, replayed after the re-joins
	_, err = h.client.Join("graduatingTokens", nil)
	require.NoError(t, err)

	second := h.main(t)
	assert.Empty(t, second.frames())
	second.ping(t)
	assert.Equal(t, []string{
		joinFrame("pool:p2"),
		joinFrame("price:pool1"),
		joinFrame("graduating"),
	}, second.frames())

	for _, sub := range h.client.Subscriptions() {
		assert.Equal(t, StatusWaiting, sub.Status, sub.Key)
	}
	assert.Equal(t, 2, h.diags.count(KindResubscribe))

	second.pushJSON(t, messageFrame("price:pool1", 5))
	assert.Len(t, h.events.all(), 1)

	// the other channel was never touched
	assert.Equal(t, 1, h.transport.connCount(rooms.ChannelTransaction))
}

func TestReconnect_QueuedJoinReplacesRejoin(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	first := h.main(t)
	first.ping(t)

	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)

	first.drop()
	require.Eventually(t, func() bool {
		return h.transport.connCount(rooms.ChannelMain) == 2
	}, 2*time.Second, 5*time.Millisecond)

	doubled := pipeline.InlineModifier(pipeline.Modifier{Name: "double", Fn: func(d any) any { return d.(float64) * 2 }})
	outcome, err := h.client.Join("priceUpdates", priceParams(), WithModifiers(doubled))
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)

	second := h.main(t)
	second.ping(t)
	assert.Equal(t, []string{joinFrame("price:pool1")}, second.frames(), "one join per key")
	assert.Equal(t, 0, h.diags.count(KindResubscribe))
	assert.Equal(t, 0, h.client.Pending())

	subs := h.client.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"double"}, subs[0].Modifiers)

	second.pushJSON(t, messageFrame("price:pool1", 5))
	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, float64(10), events[0].payload, "the queued join's chain wins")
}

func TestReconnect_ImmediateClose(t *testing.T) {
	cfg := testConfig()
	cfg.ImmediateCloseThreshold = time.Hour
	h := newHarness(t, cfg)
	h.connect(t)

	h.main(t).drop()
	require.Eventually(t, func() bool {
		return h.diags.count(KindImmediateClose) == 1
	}, 2*time.Second, 5*time.Millisecond)

	d, _ := h.diags.last(KindImmediateClose)
	assert.Equal(t, LevelError, d.Level)
	assert.Equal(t, rooms.ChannelMain, d.Context["channel"])
	assert.Equal(t, 0, h.diags.count(KindChannelClosed))
}

func TestReconnect_Exhausted(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	h := newHarness(t, cfg)
	h.transport.setDialErr(errors.ErrConnectionLost)

	require.NoError(t, h.client.Connect(context.Background()), "dial failures are not returned")

	require.Eventually(t, func() bool {
		return h.diags.count(KindReconnectExhausted) == 1
	}, 2*time.Second, 5*time.Millisecond)

	dials := h.transport.dialCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, dials, h.transport.dialCount(), "no dials after giving up")
	assert.LessOrEqual(t, dials, 4)
	assert.Equal(t, 1, h.diags.count(KindReconnectExhausted))

	status := h.client.Health()
	assert.True(t, status.IsUnhealthy())
	for _, sub := range status.SubStatuses {
		assert.True(t, sub.IsUnhealthy(), sub.Component)
	}

	// Connect resets the budget
	h.transport.setDialErr(nil)
	h.connect(t)
	require.Eventually(t, func() bool {
		return h.transport.connCount(rooms.ChannelMain) == 1 && h.transport.connCount(rooms.ChannelTransaction) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConfig_BackoffSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReconnectDelay = time.Second
	cfg.ReconnectDelayMax = 8 * time.Second
	cfg.RandomizationFactor = 0
	b := cfg.Backoff()

	assert.Equal(t, time.Duration(0), b.Delay(0))
	for i, want := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second} {
		assert.Equal(t, want, b.Delay(i+1))
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testConfig())
	assert.True(t, h.client.Health().IsUnhealthy())

	h.connect(t)
	status := h.client.Health()
	assert.True(t, status.IsDegraded())
	require.Len(t, status.SubStatuses, 2)

	h.main(t).ping(t)
	h.tx(t).ping(t)
	status = h.client.Health()
	assert.True(t, status.IsHealthy())
	assert.Equal(t, "stream", status.Component)
	require.NotNil(t, status.SubStatuses[0].Metrics)
}

func TestMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	h := newHarness(t, testConfig(), WithMetrics(registry))
	m := registry.CoreMetrics()

	h.connect(t)
	main := h.main(t)
	main.ping(t)
	_, err := h.client.Join("priceUpdates", priceParams())
	require.NoError(t, err)
	main.pushJSON(t, messageFrame("price:pool1", 1))
	main.push(t, `garbage`)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChannelReady.WithLabelValues(rooms.ChannelMain)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ChannelReady.WithLabelValues(rooms.ChannelTransaction)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsEmitted.WithLabelValues("priceUpdates")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FramesReceived.WithLabelValues(rooms.ChannelMain, "ping")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FramesReceived.WithLabelValues(rooms.ChannelMain, "invalid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Subscriptions))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.PendingRequests))

	tx := map[string]any{"tx": "sig1", "price": 1.5}
	main.pushJSON(t, messageFrame("price:pool1", tx))
	main.pushJSON(t, messageFrame("price:pool1", tx))
	assert.Equal(t, float64(2), gatheredValue(t, registry, "trackerapi_cache_sets_total", "dedup"))
	assert.Equal(t, float64(1), gatheredValue(t, registry, "trackerapi_cache_size", "dedup"))

	// a second client on the same registry still works without cache metrics
	other := newHarness(t, testConfig(), WithMetrics(registry))
	assert.NotNil(t, other.client.dedup)
}

// gatheredValue reads a counter or gauge by name and component label.
func gatheredValue(t *testing.T, registry *metric.MetricsRegistry, name, component string) float64 {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "component" && label.GetValue() == component {
					if m.GetCounter() != nil {
						return m.GetCounter().GetValue()
					}
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{component=%q} not gathered", name, component)
	return 0
}

func TestClient_OnOff(t *testing.T) {
	transport := newFakeTransport()
	client, err := New(testConfig(), WithTransport(transport), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer client.Disconnect()

	var mu sync.Mutex
	var specific, all int
	id, err := client.On("priceUpdates", func(string, any) { mu.Lock(); specific++; mu.Unlock() })
	require.NoError(t, err)
	_, err = client.On(AnyEvent, func(string, any) { mu.Lock(); all++; mu.Unlock() })
	require.NoError(t, err)

	require.NoError(t, client.Connect(context.Background()))
	main := transport.conn(t, rooms.ChannelMain)
	main.ping(t)
	_, err = client.Join("priceUpdates", priceParams())
	require.NoError(t, err)

	main.pushJSON(t, messageFrame("price:pool1", 1))
	assert.True(t, client.Off("priceUpdates", id))
	main.pushJSON(t, messageFrame("price:pool1", 2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, specific)
	assert.Equal(t, 2, all)

	external, err := New(testConfig(), WithSink(&recorder{}))
	require.NoError(t, err)
	_, err = external.On("priceUpdates", func(string, any) {})
	assert.True(t, errors.IsInvalid(err))
	assert.False(t, external.Off("priceUpdates", 1))
}

func TestClient_AddStrategy(t *testing.T) {
	h := newHarness(t, testConfig())
	h.connect(t)
	main := h.main(t)
	main.ping(t)

	positive := pipeline.Filter{Name: "positive", Fn: func(d any) bool { return d.(float64) > 0 }}
	require.NoError(t, h.client.AddStrategy("positiveOnly", []pipeline.FilterRef{pipeline.InlineFilter(positive)}, nil))

	_, err := h.client.Join("priceUpdates", priceParams(), WithStrategy("positiveOnly"))
	require.NoError(t, err)

	main.pushJSON(t, messageFrame("price:pool1", -1))
	main.pushJSON(t, messageFrame("price:pool1", 2))

	events := h.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, float64(2), events[0].payload)
}
