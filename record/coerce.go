package record

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gridbase/gridbase/schema"
)

// Coerce normalizes a value to its column's logical type before it is
// stored in the record's JSON blob. Unparseable numerics become nil rather
// than erroring, matching the write-side leniency the read-side cast
// (NULLIF before CAST) expects.
func Coerce(col *schema.Column, v any) any {
	if v == nil {
		return nil
	}
	switch col.Kind {
	case schema.KindCheckbox:
		return coerceBool(v)
	case schema.KindNumber, schema.KindRating, schema.KindDuration, schema.KindAutoNumber:
		return coerceNumber(v)
	case schema.KindDecimal, schema.KindCurrency, schema.KindPercent:
		return coerceDecimal(v)
	case schema.KindJSON:
		return coerceJSON(v)
	case schema.KindMultiSelect:
		return coerceMultiSelect(v)
	default:
		return v
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on", "checked":
			return true
		}
		return false
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

func coerceNumber(v any) any {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return nil
	}
}

// coerceDecimal keeps exact precision for decimal, currency, and percent
// columns; the value round-trips the JSON blob as a decimal string and the
// read-side cast turns it back into NUMERIC.
func coerceDecimal(v any) any {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil
		}
		return d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		return d
	default:
		return nil
	}
}

func coerceJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return s
	}
	return parsed
}

func coerceMultiSelect(v any) any {
	switch m := v.(type) {
	case []any:
		return m
	case []string:
		out := make([]any, len(m))
		for i, s := range m {
			out[i] = s
		}
		return out
	case string:
		var parsed []any
		if err := json.Unmarshal([]byte(m), &parsed); err == nil {
			return parsed
		}
		parts := strings.Split(m, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return []any{m}
	}
}
