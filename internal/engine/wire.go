package engine

import (
	"math"

	"fastcodec/internal/bitio"
	"fastcodec/internal/fasterr"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

// readWireValue reads one field's value directly off the wire (the "none"
// operator path, and the "value follows" branch of default/copy/
// increment), dispatching on the instruction's kind. nullable selects the
// nullable wire encoding, used whenever the field is optional.
func readWireValue(instr *tmpl.Instruction, r *bitio.Reader, nullable bool) (*value.Value, error) {
	switch instr.Kind {
	case value.UInt32, value.UInt64:
		if nullable {
			n, ok, err := r.ReadUintNullable()
			if err != nil || !ok {
				return nil, err
			}
			return uintValue(instr.Kind, n), nil
		}
		n, err := r.ReadUint()
		if err != nil {
			return nil, err
		}
		return uintValue(instr.Kind, n), nil

	case value.Int32, value.Int64:
		if nullable {
			n, ok, err := r.ReadIntNullable()
			if err != nil || !ok {
				return nil, err
			}
			return intValue(instr, n, r.Pos())
		}
		n, err := r.ReadInt()
		if err != nil {
			return nil, err
		}
		return intValue(instr, n, r.Pos())

	case value.AsciiString:
		if nullable {
			s, ok, err := r.ReadAsciiStringNullable()
			if err != nil || !ok {
				return nil, err
			}
			v := value.NewAscii(s)
			return &v, nil
		}
		s, err := r.ReadAsciiString()
		if err != nil {
			return nil, err
		}
		v := value.NewAscii(s)
		return &v, nil

	case value.UnicodeString:
		if nullable {
			s, ok, err := r.ReadUnicodeStringNullable()
			if err != nil || !ok {
				return nil, err
			}
			v := value.NewUnicode(s)
			return &v, nil
		}
		s, err := r.ReadUnicodeString()
		if err != nil {
			return nil, err
		}
		v := value.NewUnicode(s)
		return &v, nil

	case value.BytesKind:
		if nullable {
			b, ok, err := r.ReadBytesNullable()
			if err != nil || !ok {
				return nil, err
			}
			v := value.NewBytes(b)
			return &v, nil
		}
		b, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		v := value.NewBytes(b)
		return &v, nil

	case value.DecimalKind:
		return readDecimalWire(r, nullable)

	default:
		return nil, fasterr.Runtimef(instr.Name, "unsupported wire kind %s", instr.Kind)
	}
}

func uintValue(k value.Kind, n uint64) *value.Value {
	var v value.Value
	if k == value.UInt32 {
		v = value.NewUInt32(uint32(n))
	} else {
		v = value.NewUInt64(n)
	}
	return &v
}

func intValue(instr *tmpl.Instruction, n int64, pos int) (*value.Value, error) {
	if instr.Kind == value.Int32 {
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fasterr.Dynamicf("D2", instr.Name, pos, "signed value %d out of int32 range", n)
		}
		v := value.NewInt32(int32(n))
		return &v, nil
	}
	v := value.NewInt64(n)
	return &v, nil
}

// readDecimalWire reads an atomically-handled decimal: a (nullable, if the
// field is optional) exponent followed — only when the exponent is
// present — by a mandatory mantissa.
func readDecimalWire(r *bitio.Reader, nullable bool) (*value.Value, error) {
	var exp int64
	if nullable {
		e, ok, err := r.ReadIntNullable()
		if err != nil || !ok {
			return nil, err
		}
		exp = e
	} else {
		e, err := r.ReadInt()
		if err != nil {
			return nil, err
		}
		exp = e
	}
	if exp < value.MinExponent || exp > value.MaxExponent {
		return nil, fasterr.Dynamicf("R1", "decimal", r.Pos(), "decoded exponent %d out of range", exp)
	}
	man, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	d := value.Normalize(man, int32(exp))
	v := value.NewDecimalValue(d)
	return &v, nil
}

// writeWireValue is the encoder-side mirror of readWireValue. v == nil
// writes the field's null/absent wire representation (nullable must be
// true in that case).
func writeWireValue(instr *tmpl.Instruction, w *bitio.Writer, v *value.Value, nullable bool) error {
	switch instr.Kind {
	case value.UInt32, value.UInt64:
		if nullable {
			if v == nil {
				w.WriteUintNullable(0, false)
				return nil
			}
			w.WriteUintNullable(v.U, true)
			return nil
		}
		w.WriteUint(v.U)
		return nil

	case value.Int32, value.Int64:
		if nullable {
			if v == nil {
				w.WriteIntNullable(0, false)
				return nil
			}
			w.WriteIntNullable(v.I, true)
			return nil
		}
		w.WriteInt(v.I)
		return nil

	case value.AsciiString:
		if nullable {
			if v == nil {
				return w.WriteAsciiStringNullable("", false)
			}
			return w.WriteAsciiStringNullable(v.Str, true)
		}
		return w.WriteAsciiString(v.Str)

	case value.UnicodeString:
		if nullable {
			if v == nil {
				w.WriteUnicodeStringNullable("", false)
				return nil
			}
			w.WriteUnicodeStringNullable(v.Str, true)
			return nil
		}
		w.WriteUnicodeString(v.Str)
		return nil

	case value.BytesKind:
		if nullable {
			if v == nil {
				w.WriteBytesNullable(nil, false)
				return nil
			}
			w.WriteBytesNullable(v.Buf, true)
			return nil
		}
		w.WriteBytes(v.Buf)
		return nil

	case value.DecimalKind:
		return writeDecimalWire(w, v, nullable)

	default:
		return fasterr.Runtimef(instr.Name, "unsupported wire kind %s", instr.Kind)
	}
}

func writeDecimalWire(w *bitio.Writer, v *value.Value, nullable bool) error {
	if v == nil {
		if !nullable {
			return fasterr.Runtimef("decimal", "cannot write absent value for a mandatory field")
		}
		w.WriteIntNullable(0, false)
		return nil
	}
	if nullable {
		w.WriteIntNullable(int64(v.Dec.Exponent), true)
	} else {
		w.WriteInt(int64(v.Dec.Exponent))
	}
	w.WriteInt(v.Dec.Mantissa)
	return nil
}
