package aggregation

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ExtractDecimal pulls a numeric value from the event's Data map by field name.
// ok is false when the field is missing, null, or not a recognized numeric type;
// such rows are null inputs and never reach the aggregate.
// Ingested events keep JSON numbers as json.Number, so every digit the client sent
// survives. float64 values (decoded without UseNumber) convert through their shortest
// representation.
func ExtractDecimal(data map[string]interface{}, field string) (decimal.Decimal, bool) {
	if field == "" {
		return decimal.Decimal{}, false
	}
	v, ok := data[field]
	if !ok || v == nil {
		return decimal.Decimal{}, false
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt32(val), true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err == nil {
			return d, true
		}
	case string:
		d, err := decimal.NewFromString(val)
		if err == nil {
			return d, true
		}
	case decimal.Decimal:
		return val, true
	}
	return decimal.Decimal{}, false
}
