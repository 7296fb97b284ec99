package pipeline

// Built-in names seeded by NewDefaultRegistry.
const (
	FilterIsPumpFun            = "isPumpFun"
	FilterNewToken             = "newToken"
	FilterHasSocialMedia       = "hasSocialMedia"
	ModifierEssentialData      = "essentialData"
	ModifierShrinkTransactions = "shrinkTransactions"
	StrategyPumpFunNewTokens   = "pumpFunNewTokens"
)

const pumpFunOrigin = "https://pump.fun"

// NewDefaultRegistry creates a registry seeded with the built-in filters,
// modifiers and the pumpFunNewTokens strategy.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.filters[FilterIsPumpFun] = Filter{Name: FilterIsPumpFun, Fn: isPumpFun}
	r.filters[FilterNewToken] = Filter{Name: FilterNewToken, Fn: isNewToken}
	r.filters[FilterHasSocialMedia] = Filter{Name: FilterHasSocialMedia, Fn: hasSocialMedia}
	r.modifiers[ModifierEssentialData] = Modifier{Name: ModifierEssentialData, Fn: essentialData}
	r.modifiers[ModifierShrinkTransactions] = Modifier{Name: ModifierShrinkTransactions, Fn: shrinkTransactions}

	r.strategies[StrategyPumpFunNewTokens] = Strategy{
		Name:      StrategyPumpFunNewTokens,
		Filters:   []string{FilterIsPumpFun, FilterNewToken},
		Modifiers: []string{ModifierEssentialData},
	}
	return r
}

// field walks nested maps and slices by key or index.
func field(data any, path ...any) any {
	current := data
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return nil
			}
			current = m[key]
		case int:
			s, ok := current.([]any)
			if !ok || key < 0 || key >= len(s) {
				return nil
			}
			current = s[key]
		}
	}
	return current
}

func stringField(data any, path ...any) string {
	s, _ := field(data, path...).(string)
	return s
}

func isPumpFun(data any) bool {
	return stringField(data, "token", "createdOn") == pumpFunOrigin
}

func isNewToken(data any) bool {
	switch v := field(data, "pools", 0, "openTime").(type) {
	case float64:
		return v == 0
	case int:
		return v == 0
	case string:
		return v == "0"
	default:
		return false
	}
}

func hasSocialMedia(data any) bool {
	for _, key := range []string{"twitter", "telegram", "website"} {
		if stringField(data, "token", key) != "" {
			return true
		}
	}
	return false
}

func essentialData(data any) any {
	mint := stringField(data, "token", "mint")
	return map[string]any{
		"name":     stringField(data, "token", "name"),
		"mint":     mint,
		"twitter":  stringField(data, "token", "twitter"),
		"website":  stringField(data, "token", "website"),
		"pumpFun":  pumpFunOrigin + "/coin/" + mint,
		"deployer": stringField(data, "pools", 0, "deployer"),
	}
}

// shrinkTransactions reduces a transaction list to [buys, sells]. Payloads
// that are not lists pass through unchanged.
func shrinkTransactions(data any) any {
	txs, ok := data.([]any)
	if !ok {
		return data
	}
	counts := []int{0, 0}
	for _, tx := range txs {
		switch stringField(tx, "type") {
		case "buy":
			counts[0]++
		case "sell":
			counts[1]++
		}
	}
	return counts
}
