package liquid

import (
	"fmt"
	"strconv"
)

// Data is a single cell value: an Int, Float, Bool or String, or Null.
// The zero value is Null.
type Data struct {
	valid bool
	kind  DataType
	i     int64
	f     float64
	b     bool
	s     string
}

// Null returns a null Data
func Null() Data {
	return Data{}
}

// IntData wraps an int64
func IntData(v int64) Data {
	return Data{valid: true, kind: Int, i: v}
}

// FloatData wraps a float64
func FloatData(v float64) Data {
	return Data{valid: true, kind: Float, f: v}
}

// BoolData wraps a bool
func BoolData(v bool) Data {
	return Data{valid: true, kind: Bool, b: v}
}

// StringData wraps a string
func StringData(v string) Data {
	return Data{valid: true, kind: String, s: v}
}

// IsNull returns true iff this Data holds no value
func (d Data) IsNull() bool {
	return !d.valid
}

// Type returns the DataType of the held value. It is meaningless for Null.
func (d Data) Type() DataType {
	return d.kind
}

// AsInt returns the held int64, if this Data is a non-null Int
func (d Data) AsInt() (int64, bool) {
	return d.i, d.valid && d.kind == Int
}

// AsFloat returns the held float64, if this Data is a non-null Float
func (d Data) AsFloat() (float64, bool) {
	return d.f, d.valid && d.kind == Float
}

// AsBool returns the held bool, if this Data is a non-null Bool
func (d Data) AsBool() (bool, bool) {
	return d.b, d.valid && d.kind == Bool
}

// AsString returns the held string, if this Data is a non-null String
func (d Data) AsString() (string, bool) {
	return d.s, d.valid && d.kind == String
}

// String produces a textual representation of this Data
func (d Data) String() string {
	if !d.valid {
		return "<null>"
	}
	switch d.kind {
	case Int:
		return strconv.FormatInt(d.i, 10)
	case Float:
		return strconv.FormatFloat(d.f, 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(d.b)
	default:
		return fmt.Sprintf("%q", d.s)
	}
}
