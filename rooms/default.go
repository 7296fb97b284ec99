package rooms

var defaultCatalog = mustCatalog(
	Descriptor{ID: "latestTokensPools", Template: "latest", Channel: ChannelMain},
	Descriptor{
		ID:       "poolChanges",
		Template: "pool:{{poolId}}",
		Params:   []Param{{"poolId", TypeString}},
		Channel:  ChannelMain,
	},
	Descriptor{
		ID:       "pairTransactions",
		Template: "transaction:{{tokenAddress}}:{{poolId}}",
		Params:   []Param{{"tokenAddress", TypeSolanaAddress}, {"poolId", TypeString}},
		Channel:  ChannelTransaction,
	},
	Descriptor{
		ID:       "transactions",
		Template: "transaction:{{tokenAddress}}",
		Params:   []Param{{"tokenAddress", TypeSolanaAddress}},
		Channel:  ChannelTransaction,
	},
	Descriptor{
		ID:       "pairAndWalletTransactions",
		Template: "transaction:{{tokenAddress}}:{{poolId}}:{{walletAddress}}",
		Params: []Param{
			{"tokenAddress", TypeSolanaAddress},
			{"poolId", TypeString},
			{"walletAddress", TypeSolanaAddress},
		},
		Channel: ChannelTransaction,
	},
	Descriptor{
		ID:       "priceUpdates",
		Template: "price:{{poolId}}",
		Params:   []Param{{"poolId", TypeString}},
		Channel:  ChannelMain,
	},
	Descriptor{
		ID:       "priceByToken",
		Template: "price-by-token:{{tokenId}}",
		Params:   []Param{{"tokenId", TypeString}},
		Channel:  ChannelMain,
	},
	Descriptor{
		ID:       "walletTransactions",
		Template: "wallet:{{walletAddress}}",
		Params:   []Param{{"walletAddress", TypeSolanaAddress}},
		Channel:  ChannelMain,
	},
	Descriptor{ID: "graduatingTokens", Template: "graduating", Channel: ChannelMain},
	Descriptor{
		ID:       "graduatingTokensWithCap",
		Template: "graduating:{{token}}:{{marketCap}}",
		Params:   []Param{{"token", TypeString}, {"marketCap", TypeNumber}},
		Channel:  ChannelMain,
	},
	Descriptor{ID: "graduatedTokens", Template: "graduated", Channel: ChannelMain},
)

// Default returns the catalog of rooms served by the data stream.
func Default() *Catalog {
	return defaultCatalog
}

func mustCatalog(descriptors ...Descriptor) *Catalog {
	c, err := NewCatalog(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}
