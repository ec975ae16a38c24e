package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Value is the closed set of scalar types a slot may hold.
// Slot-kind metadata validates candidates before they ever enter a FieldMap.
type Value interface {
	isValue()
	String() string
}

// StringValue holds free text or an enumerated choice.
type StringValue string

func (StringValue) isValue() {}

func (v StringValue) String() string { return string(v) }

// NumberValue holds a numeric slot value.
type NumberValue float64

func (NumberValue) isValue() {}

func (v NumberValue) String() string {
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

// BoolValue holds a yes/no slot value.
type BoolValue bool

func (BoolValue) isValue() {}

func (v BoolValue) String() string { return strconv.FormatBool(bool(v)) }

// IsEmpty reports whether v carries no usable content. Nil values and
// blank strings are empty; numbers and booleans never are.
func IsEmpty(v Value) bool {
	if v == nil {
		return true
	}
	s, ok := v.(StringValue)
	return ok && strings.TrimSpace(string(s)) == ""
}

// FieldMap is the slot name to value dictionary flowing through the pipeline.
type FieldMap map[string]Value

// Clone returns an independent copy. Values are immutable, so a shallow
// copy of the map is sufficient.
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return nil
	}
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (m FieldMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString returns the value under key rendered as text.
func (m FieldMap) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok || IsEmpty(v) {
		return "", false
	}
	return v.String(), true
}

// MarshalJSON renders each value as its native JSON type.
func (m FieldMap) MarshalJSON() ([]byte, error) {
	plain := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case StringValue:
			plain[k] = string(t)
		case NumberValue:
			plain[k] = float64(t)
		case BoolValue:
			plain[k] = bool(t)
		}
	}
	return json.Marshal(plain)
}

// UnmarshalJSON rebuilds typed values from native JSON types.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	var plain map[string]any
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	*m = FieldsFromAny(plain)
	return nil
}

// FieldsFromAny converts a loosely typed map (JSON decoding, template output)
// into a FieldMap. Unsupported value types are silently skipped.
func FieldsFromAny(plain map[string]any) FieldMap {
	out := make(FieldMap, len(plain))
	for k, v := range plain {
		switch t := v.(type) {
		case string:
			out[k] = StringValue(t)
		case float64:
			out[k] = NumberValue(t)
		case int:
			out[k] = NumberValue(t)
		case int64:
			out[k] = NumberValue(t)
		case bool:
			out[k] = BoolValue(t)
		}
	}
	return out
}
