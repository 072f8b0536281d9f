package results

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// DefaultDelimiter separates the elements of a multi-valued field when it is
// rendered as a single string, and splits a single string into an array.
const DefaultDelimiter = ","

// FieldValue is the value of one event field. It holds either a single
// (possibly delimited) string or a native array of strings, never both.
// The zero value is an empty single string.
type FieldValue struct {
	single  string
	array   []string
	isArray bool
}

// NewValue returns a single-valued FieldValue.
func NewValue(s string) FieldValue {
	return FieldValue{single: s}
}

// NewArrayValue returns a multi-valued FieldValue holding a copy of values.
// An empty or nil slice yields an empty array, which is distinct from
// NewValue("").
func NewArrayValue(values []string) FieldValue {
	array := make([]string, len(values))
	copy(array, values)
	return FieldValue{array: array, isArray: true}
}

// IsArray reports whether the value was built from a native array.
func (v FieldValue) IsArray() bool {
	return v.isArray
}

// Array returns the elements of the value, splitting a single value on
// DefaultDelimiter.
func (v FieldValue) Array() []string {
	return v.ArrayDelim(DefaultDelimiter)
}

// ArrayDelim returns the native array unchanged when present, otherwise the
// single value split on delim. The returned slice is a copy.
func (v FieldValue) ArrayDelim(delim string) []string {
	if v.isArray {
		return slices.Clone(v.array)
	}
	return strings.Split(v.single, delim)
}

// String renders the value, joining an array with DefaultDelimiter.
func (v FieldValue) String() string {
	if v.isArray {
		return strings.Join(v.array, DefaultDelimiter)
	}
	return v.single
}

// Int parses the string rendering as a base 10 int.
func (v FieldValue) Int() (int, error) {
	return strconv.Atoi(v.String())
}

// Int64 parses the string rendering as a base 10 int64.
func (v FieldValue) Int64() (int64, error) {
	return strconv.ParseInt(v.String(), 10, 64)
}

// Uint64 parses the string rendering as a base 10 uint64.
func (v FieldValue) Uint64() (uint64, error) {
	return strconv.ParseUint(v.String(), 10, 64)
}

// Float32 parses the string rendering as a float32.
func (v FieldValue) Float32() (float32, error) {
	f, err := strconv.ParseFloat(v.String(), 32)
	return float32(f), err
}

// Float64 parses the string rendering as a float64.
func (v FieldValue) Float64() (float64, error) {
	return strconv.ParseFloat(v.String(), 64)
}

// Bool parses the string rendering with strconv.ParseBool.
func (v FieldValue) Bool() (bool, error) {
	return strconv.ParseBool(v.String())
}

// MarshalJSON encodes a single value as a JSON string and an array as a JSON
// array of strings.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.isArray {
		if v.array == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.array)
	}
	return json.Marshal(v.single)
}

// UnmarshalJSON accepts a JSON string, an array of strings or null.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*v = FieldValue{}
		return nil
	case strings.HasPrefix(trimmed, "["):
		var array []string
		if err := json.Unmarshal(data, &array); err != nil {
			return err
		}
		*v = NewArrayValue(array)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = NewValue(s)
		return nil
	}
}
