package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// nullish values the model writes instead of JSON null
var nullish = map[string]struct{}{
	"":          {},
	"null":      {},
	"none":      {},
	"not found": {},
	"n/a":       {},
}

// normalizeValue coerces a decoded JSON value into a field value. nil means "not found".
func normalizeValue(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if p := normalizeValue(e); p != nil {
				parts = append(parts, *p)
			}
		}
		s = strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	if _, ok := nullish[strings.ToLower(s)]; ok {
		return nil
	}
	return &s
}

// parseConfidence accepts integers, floats, numeric strings and "85%".
// Fractions strictly between 0 and 1 are read as ratios (0.85 -> 85).
func parseConfidence(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	return clampConfidence(int(math.Round(f))), true
}

func clampConfidence(c int) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}
