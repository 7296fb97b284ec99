package rooms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a6b8/trackerAPI/errors"
)

const (
	testToken  = "So11111111111111111111111111111111111111112"
	testWallet = "9xxoUCtd9FASN8Xg6UttonrgZcbWfwmFTJoZovbwpump"
)

func TestDefault_Resolve(t *testing.T) {
	tests := []struct {
		room    string
		params  map[string]any
		key     string
		channel string
	}{
		{"latestTokensPools", nil, "latest", ChannelMain},
		{"poolChanges", map[string]any{"poolId": "abc123"}, "pool:abc123", ChannelMain},
		{"pairTransactions", map[string]any{"tokenAddress": testToken, "poolId": "p1"}, "transaction:" + testToken + ":p1", ChannelTransaction},
		{"transactions", map[string]any{"tokenAddress": testToken}, "transaction:" + testToken, ChannelTransaction},
		{
			"pairAndWalletTransactions",
			map[string]any{"tokenAddress": testToken, "poolId": "p1", "walletAddress": testWallet},
			"transaction:" + testToken + ":p1:" + testWallet,
			ChannelTransaction,
		},
		{"priceUpdates", map[string]any{"poolId": "pool1"}, "price:pool1", ChannelMain},
		{"priceByToken", map[string]any{"tokenId": "tok"}, "price-by-token:tok", ChannelMain},
		{"walletTransactions", map[string]any{"walletAddress": testWallet}, "wallet:" + testWallet, ChannelMain},
		{"graduatingTokens", nil, "graduating", ChannelMain},
		{"graduatingTokensWithCap", map[string]any{"token": "abc", "marketCap": 175}, "graduating:abc:175", ChannelMain},
		{"graduatedTokens", map[string]any{"ignored": "x"}, "graduated", ChannelMain},
	}

	for _, tt := range tests {
		t.Run(tt.room, func(t *testing.T) {
			d, key, err := Default().Resolve(tt.room, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.channel, d.Channel)
			assert.Equal(t, tt.room, d.ID)
		})
	}
}

func TestResolve_NumberFormatting(t *testing.T) {
	d, err := Default().Lookup("graduatingTokensWithCap")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"float without fraction", float64(175), "graduating:abc:175"},
		{"decimal", 12.5, "graduating:abc:12.5"},
		{"string", "300.25", "graduating:abc:300.25"},
		{"json number", json.Number("42"), "graduating:abc:42"},
		{"int64", int64(9), "graduating:abc:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := d.Resolve(map[string]any{"token": "abc", "marketCap": tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestResolve_MissingParam(t *testing.T) {
	_, _, err := Default().Resolve("priceUpdates", map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingParam)
	assert.Equal(t, []string{"Missing parameter: poolId (required)"}, errors.Messages(err))

	_, _, err = Default().Resolve("poolChanges", map[string]any{"poolId": ""})
	assert.ErrorIs(t, err, errors.ErrMissingParam)
}

func TestResolve_InvalidParam(t *testing.T) {
	_, _, err := Default().Resolve("transactions", map[string]any{"tokenAddress": "not-base58-0OIl"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidParam)
	assert.Equal(t, []string{
		"Invalid parameter: tokenAddress. Input must be a valid Solana address in Base58 format, 32-44 characters long",
	}, errors.Messages(err))

	_, _, err = Default().Resolve("graduatingTokensWithCap", map[string]any{"token": "abc", "marketCap": "-1"})
	assert.Equal(t, []string{
		"Invalid parameter: marketCap. Input must be a valid integer or decimal number",
	}, errors.Messages(err))
}

func TestResolve_CollectsEveryProblem(t *testing.T) {
	_, _, err := Default().Resolve("pairAndWalletTransactions", map[string]any{"poolId": "bad:id"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, []string{
		"Missing parameter: tokenAddress (required)",
		"Invalid parameter: poolId. Input must be a string containing alphanumeric characters or spaces",
		"Missing parameter: walletAddress (required)",
	}, errors.Messages(err))
}

func TestLookup_UnknownSuggestsClosest(t *testing.T) {
	_, err := Default().Lookup("priceUpdate")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownRoom)
	assert.Equal(t, []string{"roomId 'priceUpdate' is unknown. Did you mean 'priceUpdates'?"}, errors.Messages(err))

	_, err = Default().Lookup("")
	assert.Equal(t, []string{"roomId is undefined"}, errors.Messages(err))
}

func TestClosest(t *testing.T) {
	got, ok := Closest("graduted", []string{"graduating", "graduated"})
	assert.True(t, ok)
	assert.Equal(t, "graduated", got)

	// ties keep the first candidate
	got, _ = Closest("ab", []string{"aa", "bb"})
	assert.Equal(t, "aa", got)

	_, ok = Closest("x", nil)
	assert.False(t, ok)
}

func TestNewCatalog_Checks(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"empty id", Descriptor{Template: "x", Channel: "main"}},
		{"empty channel", Descriptor{ID: "r", Template: "x"}},
		{"undeclared placeholder", Descriptor{ID: "r", Template: "x:{{a}}", Channel: "main"}},
		{"unused param", Descriptor{ID: "r", Template: "x", Params: []Param{{"a", TypeString}}, Channel: "main"}},
		{"unknown type", Descriptor{ID: "r", Template: "x:{{a}}", Params: []Param{{"a", "date"}}, Channel: "main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.d)
			assert.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}

	_, err := NewCatalog(
		Descriptor{ID: "r", Template: "x", Channel: "main"},
		Descriptor{ID: "r", Template: "y", Channel: "main"},
	)
	assert.Error(t, err)
}

func TestCatalog_Listing(t *testing.T) {
	ids := Default().IDs()
	assert.Len(t, ids, 11)
	assert.Equal(t, "latestTokensPools", ids[0])

	ids[0] = "mutated"
	assert.Equal(t, "latestTokensPools", Default().IDs()[0])

	assert.Equal(t, []string{ChannelMain, ChannelTransaction}, Default().Channels())
}

func TestParamType(t *testing.T) {
	assert.True(t, TypeString.Match("hello world_1"))
	assert.False(t, TypeString.Match("a-b"))
	assert.True(t, TypeNumber.Match("10.5"))
	assert.False(t, TypeNumber.Match("1e5"))
	assert.True(t, TypeSolanaAddress.Match(testToken))
	assert.False(t, TypeSolanaAddress.Match("short"))
	assert.False(t, ParamType("date").Match("2024"))
	assert.False(t, ParamType("date").Valid())
}
