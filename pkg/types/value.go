// Package types provides the core value and identity types shared by the
// Pulse facade and every delivery sink.
package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind identifies the primitive kind carried by a Value.
type Kind int

const (
	// KindString is a UTF-8 string value.
	KindString Kind = iota

	// KindInt32 is a 32-bit signed integer value.
	KindInt32

	// KindInt64 is a 64-bit signed integer value.
	KindInt64

	// KindFloat64 is a double-precision floating point value.
	KindFloat64

	// KindFloat32 is a single-precision floating point value.
	KindFloat32

	// KindBool is a boolean value.
	KindBool
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindFloat32:
		return "float32"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the closed set of primitive kinds that may
// cross the sink boundary. Sinks switch on Kind to map a parameter onto
// platform types; a kind a sink does not handle must degrade to the String
// form rather than being dropped.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
}

// String returns a Value holding a string.
func String(v string) Value {
	return Value{kind: KindString, str: v}
}

// Int32 returns a Value holding a 32-bit integer.
func Int32(v int32) Value {
	return Value{kind: KindInt32, num: int64(v)}
}

// Int64 returns a Value holding a 64-bit integer.
func Int64(v int64) Value {
	return Value{kind: KindInt64, num: v}
}

// Float64 returns a Value holding a double-precision float.
func Float64(v float64) Value {
	return Value{kind: KindFloat64, flt: v}
}

// Float32 returns a Value holding a single-precision float.
func Float32(v float32) Value {
	return Value{kind: KindFloat32, flt: float64(v)}
}

// Bool returns a Value holding a boolean.
func Bool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// Kind returns the kind tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Int64Value returns the integer payload. Valid for KindInt32 and KindInt64.
func (v Value) Int64Value() int64 {
	return v.num
}

// Float64Value returns the float payload. Valid for KindFloat32 and KindFloat64.
func (v Value) Float64Value() float64 {
	return v.flt
}

// BoolValue returns the boolean payload. Valid for KindBool.
func (v Value) BoolValue() bool {
	return v.b
}

// String returns the uniform string form of the value. Every kind has one;
// it is the fallback representation for sinks without a native mapping.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt32, KindInt64:
		return strconv.FormatInt(v.num, 10)
	case KindFloat64:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindFloat32:
		return strconv.FormatFloat(v.flt, 'g', -1, 32)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// MarshalJSON encodes the value as its native JSON form (string, number, or
// boolean). Serializing sinks rely on this to keep numeric parameters numeric
// on the wire. Kinds are not round-trip stable: JSON has one number type, so
// a whole-number Float64 or any Int32 decodes back as KindInt64 and a
// Float32 as KindFloat64.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt32, KindInt64:
		return json.Marshal(v.num)
	case KindFloat64:
		return json.Marshal(v.flt)
	case KindFloat32:
		return json.Marshal(float32(v.flt))
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.String())
	}
}

// UnmarshalJSON decodes a native JSON value back into the union. JSON
// numbers with no fractional part become int64; anything outside the six
// kinds degrades to the string form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			*v = Int64(int64(t))
		} else {
			*v = Float64(t)
		}
	default:
		*v = String(string(data))
	}
	return nil
}
