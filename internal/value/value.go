// Package value implements the FAST value model: the discriminated value
// union, the normalized-decimal contract, and the operator primitives
// (increment, delta, tail) that the codec engine's operator pipeline
// drives in both directions. Grounded on the teacher's logix.TagValue
// type-asserting accessor pattern (logix/value.go) and its Kind/type-code
// table (logix/types.go), generalized from "PLC tag bytes" to the FAST
// wire's eight primitive kinds.
package value

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which of the eight FAST primitive value kinds a Value holds.
type Kind int

const (
	UInt32 Kind = iota
	Int32
	UInt64
	Int64
	DecimalKind
	AsciiString
	UnicodeString
	BytesKind
)

func (k Kind) String() string {
	switch k {
	case UInt32:
		return "uInt32"
	case Int32:
		return "int32"
	case UInt64:
		return "uInt64"
	case Int64:
		return "int64"
	case DecimalKind:
		return "decimal"
	case AsciiString:
		return "asciiString"
	case UnicodeString:
		return "unicodeString"
	case BytesKind:
		return "bytes"
	default:
		return "unknown"
	}
}

// IsIntegral reports whether the kind supports increment/integer-delta semantics.
func (k Kind) IsIntegral() bool {
	switch k {
	case UInt32, Int32, UInt64, Int64:
		return true
	default:
		return false
	}
}

// IsStringOrBytes reports whether the kind supports tail/byte-delta semantics.
func (k Kind) IsStringOrBytes() bool {
	switch k {
	case AsciiString, UnicodeString, BytesKind:
		return true
	default:
		return false
	}
}

// Value is a tagged variant over the eight FAST primitive kinds. Only the
// field matching Kind is meaningful; zero values in the others are ignored.
type Value struct {
	Kind    Kind
	U       uint64  // UInt32, UInt64
	I       int64   // Int32, Int64
	Dec     Decimal // DecimalKind
	Str     string  // AsciiString, UnicodeString
	Buf     []byte  // BytesKind
}

func NewUInt32(v uint32) Value { return Value{Kind: UInt32, U: uint64(v)} }
func NewUInt64(v uint64) Value { return Value{Kind: UInt64, U: v} }
func NewInt32(v int32) Value   { return Value{Kind: Int32, I: int64(v)} }
func NewInt64(v int64) Value   { return Value{Kind: Int64, I: v} }
func NewDecimalValue(d Decimal) Value { return Value{Kind: DecimalKind, Dec: d} }
func NewAscii(s string) Value  { return Value{Kind: AsciiString, Str: s} }
func NewUnicode(s string) Value { return Value{Kind: UnicodeString, Str: s} }
func NewBytes(b []byte) Value  { return Value{Kind: BytesKind, Buf: append([]byte(nil), b...)} }

// Default returns the base value used when an operator needs one but no
// context entry and no initial value are available (spec.md §4.2).
func Default(k Kind) Value {
	switch k {
	case UInt32:
		return NewUInt32(0)
	case UInt64:
		return NewUInt64(0)
	case Int32:
		return NewInt32(0)
	case Int64:
		return NewInt64(0)
	case DecimalKind:
		return NewDecimalValue(Decimal{})
	case AsciiString:
		return NewAscii("")
	case UnicodeString:
		return NewUnicode("")
	case BytesKind:
		return NewBytes(nil)
	default:
		return Value{}
	}
}

// Equal is structural equality, respecting Kind.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case UInt32, UInt64:
		return v.U == o.U
	case Int32, Int64:
		return v.I == o.I
	case DecimalKind:
		return v.Dec == o.Dec
	case AsciiString, UnicodeString:
		return v.Str == o.Str
	case BytesKind:
		return string(v.Buf) == string(o.Buf)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case UInt32, UInt64:
		return fmt.Sprintf("%d", v.U)
	case Int32, Int64:
		return fmt.Sprintf("%d", v.I)
	case DecimalKind:
		return v.Dec.String()
	case AsciiString, UnicodeString:
		return v.Str
	case BytesKind:
		return fmt.Sprintf("% X", v.Buf)
	default:
		return "<invalid>"
	}
}

// Len returns the character/byte length relevant to tail/delta discovery.
func (v Value) Len() int {
	switch v.Kind {
	case AsciiString, UnicodeString:
		return len(v.Str)
	case BytesKind:
		return len(v.Buf)
	default:
		return 0
	}
}

// AsInt64 exposes integral kinds as a signed 64-bit integer, for JSON
// rendering and the TUI inspector — the domain-stack equivalent of the
// teacher's TagValue.Int()/Uint() accessors.
func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case Int32, Int64:
		return v.I, true
	case UInt32, UInt64:
		return int64(v.U), true
	default:
		return 0, false
	}
}

// AsUint64 exposes integral kinds as an unsigned 64-bit integer.
func (v Value) AsUint64() (uint64, bool) {
	switch v.Kind {
	case UInt32, UInt64:
		return v.U, true
	case Int32, Int64:
		return uint64(v.I), true
	default:
		return 0, false
	}
}

// AsDecimalString renders a DecimalKind value as a plain decimal literal.
func (v Value) AsDecimalString() (string, bool) {
	if v.Kind != DecimalKind {
		return "", false
	}
	return v.Dec.String(), true
}

// AsString exposes the two string kinds.
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case AsciiString, UnicodeString:
		return v.Str, true
	default:
		return "", false
	}
}

// AsBytes exposes BytesKind's raw payload.
func (v Value) AsBytes() ([]byte, bool) {
	if v.Kind != BytesKind {
		return nil, false
	}
	return v.Buf, true
}

// MarshalJSON renders a Value as the plain JSON scalar its kind maps to:
// numbers as JSON numbers, decimals and strings as JSON strings (decimals
// as strings to avoid float64 precision loss), bytes as a hex string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case UInt32, UInt64:
		return json.Marshal(v.U)
	case Int32, Int64:
		return json.Marshal(v.I)
	case DecimalKind:
		return json.Marshal(v.Dec.String())
	case AsciiString, UnicodeString:
		return json.Marshal(v.Str)
	case BytesKind:
		return json.Marshal(fmt.Sprintf("%x", v.Buf))
	default:
		return json.Marshal(nil)
	}
}
