package expr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Resolve resolves an operand against the state variables.
//
// Resolution order: quoted strings, boolean/null literals, and numbers
// are literals; anything else is a state lookup. Dotted names descend
// into nested maps, so "tools_output.calculator" reads the calculator
// tool's result and "metadata.tier" reads a metadata entry. A name whose
// first segment is not a state key falls back to a string literal; a
// name whose first segment exists but whose deeper segments do not
// resolves to nil.
func Resolve(s string, vars map[string]any) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Quoted string (single or double quotes)
	if (strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")) ||
		(strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"")) {
		if len(s) < 2 {
			return ""
		}
		return s[1 : len(s)-1]
	}

	// Boolean and null literals
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null", "nil":
		return nil
	}

	// Number (json.Number for precise parsing)
	var num json.Number
	if err := json.Unmarshal([]byte(s), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	// State lookup, descending dotted paths
	if vars != nil {
		segments := strings.Split(s, ".")
		if val, ok := lookupPath(vars, segments); ok {
			return val
		}
		// Root segment exists but the path dead-ends inside it
		if _, ok := vars[segments[0]]; ok {
			return nil
		}
	}

	// Unresolved name: treat as string literal
	return s
}

// lookupPath walks the segments through nested string-keyed maps.
// State values deserialized from a checkpoint arrive as map[string]any,
// so only that shape is descended.
func lookupPath(vars map[string]any, segments []string) (any, bool) {
	var current any = vars
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// IsTruthy returns whether a value is truthy.
// nil is false, bools return their value, empty strings are false, zero
// numbers are false, empty slices and maps are false (matching how
// message lists and tool-output maps read in conditions), everything
// else is true.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case int32:
		return val != 0
	case float64:
		return val != 0
	case float32:
		return val != 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// ToFloat64 converts a value to float64 for numeric comparison.
// Returns 0 for values that cannot be converted.
func ToFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
