package metatree

import (
	"fmt"
	"strconv"
	"strings"
)

// String coerces a leaf value to a non-empty string. Numbers are
// formatted; lists and subtrees do not coerce.
func String(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// Stringify renders any leaf value for flat projection. Lists join with
// ", "; absent values render empty.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(val, ", ")
	default:
		if s, ok := String(v); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
}

// StringList coerces a leaf value to a list of strings. Comma-separated
// scalars split into trimmed non-empty elements; an absent or
// uncoercible value yields an empty list.
func StringList(v any) []string {
	switch val := v.(type) {
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		s, ok := String(v)
		if !ok {
			return nil
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
}

// Float coerces a leaf value to a float64.
func Float(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// IntList coerces a leaf value to a list of integers via StringList.
// The second return is false when any element fails to parse.
func IntList(v any) ([]int, bool) {
	parts := StringList(v)
	if len(parts) == 0 {
		return nil, false
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// IntSet coerces a leaf value to a normalized set of integers (trimmed,
// integer-cast, deduplicated). Used for identity consistency checks.
func IntSet(v any) (map[int]struct{}, bool) {
	list, ok := IntList(v)
	if !ok {
		return nil, false
	}
	set := make(map[int]struct{}, len(list))
	for _, n := range list {
		set[n] = struct{}{}
	}
	return set, true
}
