// Package coerce converts the loosely-typed values that arrive on the webhook
// boundary (numbers sent as strings, nested payloads, double-encoded JSON)
// into the strict types used inside the aggregator and negotiation engine.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Float extracts a float64 from a JSON-ish value: numbers pass through,
// numeric strings are parsed, everything else is absent.
func Float(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// Int extracts an int the same way Float does, truncating fractional input.
func Int(v interface{}) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String extracts a non-empty trimmed string, or absent.
func String(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Bool extracts a bool, also accepting the string forms the workflow builder
// sends ("true"/"True").
func Bool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// FlexFloat is a float64 that unmarshals from a JSON number or a numeric
// string. Zero value means absent.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := Float(raw); ok {
		*f = FlexFloat(v)
	}
	return nil
}

// FlexInt is an int that unmarshals from a JSON number or a numeric string.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := Int(raw); ok {
		*f = FlexInt(v)
	}
	return nil
}

// PayloadMap normalizes a stored payload to a map. Handles payloads sent as
// JSON strings, including one extra level of encoding.
func PayloadMap(raw interface{}) map[string]interface{} {
	switch x := raw.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return x
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(x), &parsed); err != nil {
			return map[string]interface{}{}
		}
		if m, ok := parsed.(map[string]interface{}); ok {
			return m
		}
		if s, ok := parsed.(string); ok {
			// One more level of encoding.
			return PayloadMap(s)
		}
	}
	return map[string]interface{}{}
}
