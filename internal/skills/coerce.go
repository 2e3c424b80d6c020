package skills

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerceLevel converts a raw level to an integer in [MinLevel, MaxLevel].
// Fractional numbers are truncated toward zero before clamping.
func coerceLevel(v any) (int, error) {
	var f float64
	switch t := v.(type) {
	case int:
		return clampLevel(t), nil
	case int64:
		f = float64(t)
	case int32:
		return clampLevel(int(t)), nil
	case uint:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float32:
		f = float64(t)
	case float64:
		f = t
	case bool:
		if t {
			return clampLevel(1), nil
		}
		return clampLevel(0), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			f = float64(i)
			break
		}
		parsed, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("level %q is not numeric", t.String())
		}
		f = parsed
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("level %q is not an integer", t)
		}
		f = float64(i)
	default:
		return 0, fmt.Errorf("level has unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("level %v is not finite", f)
	}
	f = math.Trunc(f)
	switch {
	case f < MinLevel:
		return MinLevel, nil
	case f > MaxLevel:
		return MaxLevel, nil
	default:
		return int(f), nil
	}
}

// coerceConfidence converts a raw confidence without changing its unit.
func coerceConfidence(v any) (Confidence, error) {
	switch t := v.(type) {
	case Confidence:
		return parseConfidence(string(t))
	case json.Number:
		return parseConfidence(t.String())
	case string:
		return parseConfidence(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", fmt.Errorf("confidence %v is not finite", t)
		}
		return ConfidenceOf(t), nil
	case float32:
		return coerceConfidence(float64(t))
	case int:
		return Confidence(strconv.Itoa(t)), nil
	case int64:
		return Confidence(strconv.FormatInt(t, 10)), nil
	default:
		return "", fmt.Errorf("confidence has unsupported type %T", v)
	}
}

// coerceList converts a raw knowledge/task value to a string list.
// Lists are kept in order, falsy scalars become empty lists and any other
// scalar becomes a one-element list.
func coerceList(field string, v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			if item == nil {
				continue
			}
			s, ok := scalarString(item)
			if !ok {
				return nil, fmt.Errorf("%s[%d] has unsupported type %T", field, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case map[string]any:
		if len(t) == 0 {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%s is a non-empty mapping", field)
	}

	if isFalsy(v) {
		return []string{}, nil
	}
	s, ok := scalarString(v)
	if !ok {
		return nil, fmt.Errorf("%s has unsupported type %T", field, v)
	}
	return []string{s}, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	default:
		return "", false
	}
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case float32:
		return t == 0
	default:
		return false
	}
}
