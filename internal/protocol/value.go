package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Kind identifies the concrete type carried by a Value
type Kind uint8

const (
	KindInvalid Kind = iota
	KindEnum
	KindSInt8
	KindUInt8
	KindUInt8z
	KindSInt16
	KindUInt16
	KindUInt16z
	KindSInt32
	KindUInt32
	KindUInt32z
	KindSInt64
	KindUInt64
	KindUInt64z
	KindFloat32
	KindFloat64
	KindString
	KindTimestamp
	KindBytes
	KindArray
)

var kindNames = map[Kind]string{
	KindInvalid:   "invalid",
	KindEnum:      "enum",
	KindSInt8:     "sint8",
	KindUInt8:     "uint8",
	KindUInt8z:    "uint8z",
	KindSInt16:    "sint16",
	KindUInt16:    "uint16",
	KindUInt16z:   "uint16z",
	KindSInt32:    "sint32",
	KindUInt32:    "uint32",
	KindUInt32z:   "uint32z",
	KindSInt64:    "sint64",
	KindUInt64:    "uint64",
	KindUInt64z:   "uint64z",
	KindFloat32:   "float32",
	KindFloat64:   "float64",
	KindString:    "string",
	KindTimestamp: "timestamp",
	KindBytes:     "bytes",
	KindArray:     "array",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a decoded field value. The zero Value has KindInvalid.
type Value struct {
	kind  Kind
	bits  uint64
	float float64
	str   string
	ts    time.Time
	raw   []byte
	elems []Value
}

func Enum(v uint8) Value     { return Value{kind: KindEnum, bits: uint64(v)} }
func SInt8(v int8) Value     { return Value{kind: KindSInt8, bits: uint64(int64(v))} }
func UInt8(v uint8) Value    { return Value{kind: KindUInt8, bits: uint64(v)} }
func UInt8z(v uint8) Value   { return Value{kind: KindUInt8z, bits: uint64(v)} }
func SInt16(v int16) Value   { return Value{kind: KindSInt16, bits: uint64(int64(v))} }
func UInt16(v uint16) Value  { return Value{kind: KindUInt16, bits: uint64(v)} }
func UInt16z(v uint16) Value { return Value{kind: KindUInt16z, bits: uint64(v)} }
func SInt32(v int32) Value   { return Value{kind: KindSInt32, bits: uint64(int64(v))} }
func UInt32(v uint32) Value  { return Value{kind: KindUInt32, bits: uint64(v)} }
func UInt32z(v uint32) Value { return Value{kind: KindUInt32z, bits: uint64(v)} }
func SInt64(v int64) Value   { return Value{kind: KindSInt64, bits: uint64(v)} }
func UInt64(v uint64) Value  { return Value{kind: KindUInt64, bits: v} }
func UInt64z(v uint64) Value { return Value{kind: KindUInt64z, bits: v} }
func Float32(v float32) Value {
	return Value{kind: KindFloat32, float: float64(v)}
}
func Float64(v float64) Value     { return Value{kind: KindFloat64, float: v} }
func String(v string) Value       { return Value{kind: KindString, str: v} }
func Timestamp(v time.Time) Value { return Value{kind: KindTimestamp, ts: v} }

// Bytes returns a byte-array value holding a copy of v.
func Bytes(v []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte(nil), v...)}
}

// Array returns an array value of the given elements.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, elems: append([]Value(nil), elems...)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) isSigned() bool {
	switch v.kind {
	case KindSInt8, KindSInt16, KindSInt32, KindSInt64:
		return true
	}
	return false
}

func (v Value) isUnsigned() bool {
	switch v.kind {
	case KindEnum, KindUInt8, KindUInt8z, KindUInt16, KindUInt16z,
		KindUInt32, KindUInt32z, KindUInt64, KindUInt64z:
		return true
	}
	return false
}

// Int returns the value as int64 for signed and unsigned integer kinds.
// Unsigned values above math.MaxInt64 are reported as not ok.
func (v Value) Int() (int64, bool) {
	switch {
	case v.isSigned():
		return int64(v.bits), true
	case v.isUnsigned():
		if v.bits > math.MaxInt64 {
			return 0, false
		}
		return int64(v.bits), true
	}
	return 0, false
}

// Uint returns the value as uint64 for unsigned kinds and non-negative
// signed ones.
func (v Value) Uint() (uint64, bool) {
	switch {
	case v.isUnsigned():
		return v.bits, true
	case v.isSigned():
		if int64(v.bits) < 0 {
			return 0, false
		}
		return v.bits, true
	}
	return 0, false
}

// Float returns any numeric scalar as float64.
func (v Value) Float() (float64, bool) {
	switch {
	case v.kind == KindFloat32 || v.kind == KindFloat64:
		return v.float, true
	case v.isSigned():
		return float64(int64(v.bits)), true
	case v.isUnsigned():
		return float64(v.bits), true
	}
	return 0, false
}

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Time() (time.Time, bool) {
	return v.ts, v.kind == KindTimestamp
}

func (v Value) Raw() ([]byte, bool) {
	return v.raw, v.kind == KindBytes
}

func (v Value) Elems() []Value {
	return v.elems
}

// IsUnset reports whether v holds the invalid sentinel of its kind: zero for
// the z variants, all ones for unsigned types, the maximum positive value for
// signed types, NaN for floats and the empty string.
func (v Value) IsUnset() bool {
	switch v.kind {
	case KindInvalid:
		return true
	case KindUInt8z, KindUInt16z, KindUInt32z, KindUInt64z:
		return v.bits == 0
	case KindEnum, KindUInt8:
		return v.bits == math.MaxUint8
	case KindUInt16:
		return v.bits == math.MaxUint16
	case KindUInt32:
		return v.bits == math.MaxUint32
	case KindUInt64:
		return v.bits == math.MaxUint64
	case KindSInt8:
		return int64(v.bits) == math.MaxInt8
	case KindSInt16:
		return int64(v.bits) == math.MaxInt16
	case KindSInt32:
		return int64(v.bits) == math.MaxInt32
	case KindSInt64:
		return int64(v.bits) == math.MaxInt64
	case KindFloat32, KindFloat64:
		return math.IsNaN(v.float)
	case KindString:
		return v.str == ""
	case KindBytes:
		for _, b := range v.raw {
			if b != 0xFF {
				return false
			}
		}
		return true
	case KindArray:
		for _, e := range v.elems {
			if !e.IsUnset() {
				return false
			}
		}
		return true
	}
	return false
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFloat32, KindFloat64:
		return v.float == o.float || (math.IsNaN(v.float) && math.IsNaN(o.float))
	case KindString:
		return v.str == o.str
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindArray:
		if len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	}
	return v.bits == o.bits
}

// Interface returns the natural Go representation of v, suitable for any
// structured encoder.
func (v Value) Interface() any {
	switch v.kind {
	case KindEnum, KindUInt8, KindUInt8z:
		return uint8(v.bits)
	case KindUInt16, KindUInt16z:
		return uint16(v.bits)
	case KindUInt32, KindUInt32z:
		return uint32(v.bits)
	case KindUInt64, KindUInt64z:
		return v.bits
	case KindSInt8:
		return int8(v.bits)
	case KindSInt16:
		return int16(v.bits)
	case KindSInt32:
		return int32(v.bits)
	case KindSInt64:
		return int64(v.bits)
	case KindFloat32:
		return float32(v.float)
	case KindFloat64:
		return v.float
	case KindString:
		return v.str
	case KindTimestamp:
		return v.ts
	case KindBytes:
		return v.raw
	case KindArray:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Interface()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

func (v Value) String() string {
	switch v.kind {
	case KindTimestamp:
		return v.ts.Format(time.RFC3339)
	case KindInvalid:
		return "<invalid>"
	}
	return fmt.Sprint(v.Interface())
}
