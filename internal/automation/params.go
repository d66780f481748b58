package automation

import (
	"fmt"
	"time"
)

// Parameter extraction helpers for loosely typed maps (YAML steps, MCP
// tool arguments).

func StringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		// YAML and JSON may decode bare values as numbers or bools.
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func IntParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

func FloatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return defaultVal
}

func BoolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// MillisParam reads a millisecond count as a duration.
func MillisParam(params map[string]interface{}, key string, defaultVal time.Duration) time.Duration {
	if _, ok := params[key]; !ok {
		return defaultVal
	}
	return time.Duration(FloatParam(params, key, 0) * float64(time.Millisecond))
}

// HasParam reports whether key is present.
func HasParam(params map[string]interface{}, key string) bool {
	_, ok := params[key]
	return ok
}
