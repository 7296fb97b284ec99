package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection lost", ErrConnectionLost, true},
		{"not connected", ErrNotConnected, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"unknown room", ErrUnknownRoom, false},
		{"timeout in message", fmt.Errorf("i/o timeout"), true},
		{"broken pipe", fmt.Errorf("write: broken pipe"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(ErrReconnectExhausted))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", ErrInvalidConfig)))
	assert.True(t, IsFatal(WrapFatal(errors.New("boom"), "stream", "reconnect", "schedule")))
	assert.False(t, IsFatal(ErrConnectionLost))
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.True(t, IsInvalid(ErrUnknownRoom))
	assert.True(t, IsInvalid(ErrInvalidURL))
	assert.True(t, IsInvalid(NewValidation(ErrMissingParam, "stream", "UpdateRoom", "Missing parameter: poolId (required)")))
	assert.True(t, IsInvalid(WrapInvalid(errors.New("bad"), "config", "Load", "decode")))
	assert.True(t, IsInvalid(fmt.Errorf("join: %w", ErrUnknownChannel)))
	assert.False(t, IsInvalid(ErrConnectionLost))
	assert.False(t, IsInvalid(errors.New("invalid looking text")), "text alone never classifies as invalid")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"validation", NewValidation(ErrInvalidURL, "stream", "Connect", "wsUrl is not a valid websocket url"), ErrorInvalid},
		{"exhausted", ErrReconnectExhausted, ErrorFatal},
		{"lost", ErrConnectionLost, ErrorTransient},
		{"unknown", errors.New("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.err))
		})
	}
}

func TestNewValidation(t *testing.T) {
	t.Run("no messages yields nil", func(t *testing.T) {
		assert.NoError(t, NewValidation(ErrUnknownRoom, "stream", "UpdateRoom"))
	})

	t.Run("messages are preserved", func(t *testing.T) {
		err := NewValidation(ErrUnknownRoom, "stream", "UpdateRoom",
			"roomId 'x' is unknown. Did you mean 'latest'?", "cmd is not 'join' or 'leave'")
		require.Error(t, err)

		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Len(t, ve.Messages, 2)
		assert.ErrorIs(t, err, ErrUnknownRoom)
		assert.Contains(t, err.Error(), "stream.UpdateRoom")
		assert.Contains(t, err.Error(), "Did you mean 'latest'?")
	})
}

func TestMessages(t *testing.T) {
	assert.Nil(t, Messages(nil))
	assert.Equal(t, []string{"plain"}, Messages(errors.New("plain")))

	err := NewValidation(ErrMissingParam, "stream", "UpdateRoom", "a", "b")
	msgs := Messages(err)
	assert.Equal(t, []string{"a", "b"}, msgs)

	// returned slice is a copy
	msgs[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, Messages(err))
}

func TestWrap(t *testing.T) {
	base := errors.New("refused")

	assert.Nil(t, Wrap(nil, "c", "m", "a"))
	assert.Nil(t, WrapTransient(nil, "c", "m", "a"))

	err := WrapTransient(base, "stream", "dial", "open websocket")
	assert.Equal(t, "stream.dial: open websocket failed: refused", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsTransient(err))

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "stream", ce.Component)
	assert.Equal(t, "dial", ce.Operation)
}

func TestAsValidation(t *testing.T) {
	_, ok := AsValidation(errors.New("plain"))
	assert.False(t, ok)

	err := fmt.Errorf("outer: %w", NewValidation(ErrUnknownRoom, "rooms", "Lookup", "roomId 'x' is unknown"))
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "rooms", ve.Component)
	assert.Equal(t, []string{"roomId 'x' is unknown"}, ve.Messages)
}
