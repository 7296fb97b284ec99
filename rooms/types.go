package rooms

import (
	"fmt"
	"regexp"
	"strconv"
)

// ParamType is the primitive validation type of a template variable.
type ParamType string

const (
	TypeString        ParamType = "string"
	TypeNumber        ParamType = "number"
	TypeSolanaAddress ParamType = "solanaAddress"
)

type paramRule struct {
	pattern     *regexp.Regexp
	description string
}

var paramRules = map[ParamType]paramRule{
	TypeString: {
		pattern:     regexp.MustCompile(`^[\w\s]+$`),
		description: "Input must be a string containing alphanumeric characters or spaces",
	},
	TypeNumber: {
		pattern:     regexp.MustCompile(`^\d+(\.\d+)?$`),
		description: "Input must be a valid integer or decimal number",
	},
	TypeSolanaAddress: {
		pattern:     regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`),
		description: "Input must be a valid Solana address in Base58 format, 32-44 characters long",
	},
}

// Valid reports whether t is a known type.
func (t ParamType) Valid() bool {
	_, ok := paramRules[t]
	return ok
}

// Match reports whether value satisfies the type's pattern.
func (t ParamType) Match(value string) bool {
	rule, ok := paramRules[t]
	return ok && rule.pattern.MatchString(value)
}

// Description is the human readable rule used in validation messages.
func (t ParamType) Description() string {
	return paramRules[t].description
}

// Param is one template variable.
type Param struct {
	Name string
	Type ParamType
}

// formatParam renders a parameter value for template substitution. Numbers
// decoded from JSON or YAML arrive as float64 or int and are printed without
// exponent or trailing zeros; json.Number goes through fmt.Stringer. The
// second result is false for empty values.
func formatParam(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	default:
		s := fmt.Sprint(val)
		return s, s != ""
	}
}
