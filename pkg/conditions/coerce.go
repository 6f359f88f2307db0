package conditions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// equalValues implements the coerced equality used by equals/not_equals and
// set membership: numeric strings compare numerically, RFC 3339 strings as
// timestamps, other strings case-insensitively.
func equalValues(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	if ln, lok := asNumber(left); lok {
		if rn, rok := asNumber(right); rok {
			return ln == rn
		}
	}

	if lt, lok := asTime(left); lok {
		if rt, rok := asTime(right); rok {
			return lt.Equal(rt)
		}
	}

	if lb, lok := left.(bool); lok {
		if rb, rok := right.(bool); rok {
			return lb == rb
		}
	}

	return strings.EqualFold(stringify(left), stringify(right))
}

// compareValues orders two values. Ordering operators are restricted to
// numeric and timestamp operands; anything else is not comparable.
func compareValues(left, right any) (int, bool) {
	if ln, lok := asNumber(left); lok {
		if rn, rok := asNumber(right); rok {
			switch {
			case ln < rn:
				return -1, true
			case ln > rn:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	if lt, lok := asTime(left); lok {
		if rt, rok := asTime(right); rok {
			switch {
			case lt.Before(rt):
				return -1, true
			case lt.After(rt):
				return 1, true
			default:
				return 0, true
			}
		}
	}

	return 0, false
}

// isEmpty treats nil, empty strings, empty slices and empty maps as empty.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}

		return t, true
	default:
		return time.Time{}, false
	}
}

// asList normalizes the literal side of in/not_in conditions.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = item
		}

		return list, true
	default:
		return nil, false
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
