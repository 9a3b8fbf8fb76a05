package llmgateway

import "fmt"

// flattenArguments normalizes the raw argument map a vendor SDK hands back
// (wire-level scalar/list variants) into native scalars, string arrays,
// bools, or numbers. Unknown variants coerce to their string representation
// rather than being dropped, so downstream validation still sees a value
// for every key the model supplied.
func flattenArguments(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = flattenValue(v)
	}
	return out
}

func flattenValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool, float64, int, int64:
		return val
	case []any:
		out := make([]string, 0, len(val))
		allScalar := true
		for _, item := range val {
			s, ok := scalarToString(item)
			if !ok {
				allScalar = false
				break
			}
			out = append(out, s)
		}
		if allScalar {
			return out
		}
		// Mixed/nested list: coerce every element to string individually.
		strs := make([]string, len(val))
		for i, item := range val {
			strs[i] = fmt.Sprintf("%v", item)
		}
		return strs
	case map[string]any:
		return flattenArguments(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func scalarToString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return fmt.Sprintf("%t", t), true
	case float64:
		return fmt.Sprintf("%g", t), true
	case int:
		return fmt.Sprintf("%d", t), true
	case int64:
		return fmt.Sprintf("%d", t), true
	default:
		return "", false
	}
}
