package engine

import (
	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/fasterr"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

// decodeField runs the operator pipeline (spec.md §4.5) for one primitive
// or atomic-decimal instruction and returns its decoded value (nil means
// absent/None).
func decodeField(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader) (*value.Value, error) {
	nullable := instr.Presence == tmpl.Optional
	switch instr.Operator {
	case tmpl.OpNone:
		return readWireValue(instr, r, nullable)

	case tmpl.OpConstant:
		if instr.Presence == tmpl.Mandatory {
			v := *instr.Initial
			return &v, nil
		}
		if ctx.currentPMap().ReadBit() {
			v := *instr.Initial
			return &v, nil
		}
		return nil, nil

	case tmpl.OpDefault:
		if !ctx.currentPMap().ReadBit() {
			if instr.Initial != nil {
				v := *instr.Initial
				return &v, nil
			}
			return nil, nil
		}
		return readWireValue(instr, r, nullable)

	case tmpl.OpCopy:
		return decodeReplay(instr, ctx, r, false)

	case tmpl.OpIncrement:
		return decodeReplay(instr, ctx, r, true)

	case tmpl.OpDelta:
		return decodeDelta(instr, ctx, r)

	case tmpl.OpTail:
		return decodeTail(instr, ctx, r)

	default:
		return nil, fasterr.Runtimef(instr.Name, "unknown operator %s", instr.Operator)
	}
}

// decodeReplay implements copy (isIncrement=false) and increment
// (isIncrement=true): both read a fresh value off the wire when the pmap
// bit is 1, and otherwise replay/advance the dictionary entry per the
// prev-state table in spec.md §4.5.
func decodeReplay(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader, isIncrement bool) (*value.Value, error) {
	key := dictKeyFor(instr, ctx)
	nullable := instr.Presence == tmpl.Optional

	if ctx.currentPMap().ReadBit() {
		v, err := readWireValue(instr, r, nullable)
		if err != nil {
			return nil, err
		}
		if v == nil {
			ctx.Store.SetEmpty(key)
			return nil, nil
		}
		ctx.Store.SetValue(key, *v)
		return v, nil
	}

	state, stored := ctx.Store.Get(key)
	switch state {
	case dict.Undefined:
		if instr.Presence == tmpl.Mandatory {
			if instr.Initial == nil {
				return nil, fasterr.Dynamicf("D5", instr.Name, r.Pos(), "operator requires an initial value and none exists")
			}
			v := *instr.Initial
			ctx.Store.SetValue(key, v)
			return &v, nil
		}
		if instr.Initial != nil {
			v := *instr.Initial
			ctx.Store.SetValue(key, v)
			return &v, nil
		}
		ctx.Store.SetEmpty(key)
		return nil, nil

	case dict.Empty:
		if instr.Presence == tmpl.Mandatory {
			return nil, fasterr.Dynamicf("D6", instr.Name, r.Pos(), "operator requires a previous value but dictionary entry is empty")
		}
		return nil, nil

	default: // dict.Assigned
		if stored.Kind != instr.Kind {
			return nil, fasterr.Dynamicf("D4", instr.Name, r.Pos(), "dictionary entry kind %s does not match field kind %s", stored.Kind, instr.Kind)
		}
		if !isIncrement {
			v := stored
			return &v, nil
		}
		nv, err := value.ApplyIncrement(stored)
		if err != nil {
			return nil, fasterr.Wrap(err, "increment")
		}
		ctx.Store.SetValue(key, nv)
		return &nv, nil
	}
}

// deltaBase resolves the base value a delta or tail is applied against,
// per the shared priority: Assigned -> stored, Empty -> [D6], Undefined ->
// initial or the kind's type-default.
func deltaBase(instr *tmpl.Instruction, ctx *Context, key dict.Key, pos int) (value.Value, error) {
	state, stored := ctx.Store.Get(key)
	switch state {
	case dict.Assigned:
		if stored.Kind != instr.Kind {
			return value.Value{}, fasterr.Dynamicf("D4", instr.Name, pos, "dictionary entry kind %s does not match field kind %s", stored.Kind, instr.Kind)
		}
		return stored, nil
	case dict.Empty:
		return value.Value{}, fasterr.Dynamicf("D6", instr.Name, pos, "delta/tail base is empty")
	default: // dict.Undefined
		if instr.Initial != nil {
			return *instr.Initial, nil
		}
		return value.Default(instr.Kind), nil
	}
}

func decodeDelta(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader) (*value.Value, error) {
	key := dictKeyFor(instr, ctx)
	nullable := instr.Presence == tmpl.Optional

	readSub := func() (int64, bool, error) {
		if nullable {
			return r.ReadIntNullable()
		}
		v, err := r.ReadInt()
		return v, true, err
	}

	if instr.Kind.IsIntegral() {
		d, present, err := readSub()
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		base, err := deltaBase(instr, ctx, key, r.Pos())
		if err != nil {
			return nil, err
		}
		combined, err := value.ApplyIntDelta(base, d)
		if err != nil {
			return nil, fasterr.Dynamicf("D2", instr.Name, r.Pos(), "%v", err)
		}
		ctx.Store.SetValue(key, combined)
		return &combined, nil
	}

	sub, present, err := readSub()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	base, err := deltaBase(instr, ctx, key, r.Pos())
	if err != nil {
		return nil, err
	}

	var combined value.Value
	switch instr.Kind {
	case value.AsciiString:
		diff, err := r.ReadAsciiString()
		if err != nil {
			return nil, err
		}
		s, err := value.StringTailDelta(base.Str, sub, diff)
		if err != nil {
			return nil, fasterr.Dynamicf("D7", instr.Name, r.Pos(), "%v", err)
		}
		combined = value.NewAscii(s)
	case value.UnicodeString:
		diff, err := r.ReadUnicodeString()
		if err != nil {
			return nil, err
		}
		s, err := value.StringTailDelta(base.Str, sub, diff)
		if err != nil {
			return nil, fasterr.Dynamicf("D7", instr.Name, r.Pos(), "%v", err)
		}
		combined = value.NewUnicode(s)
	case value.BytesKind:
		diff, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		b, err := value.BytesTailDelta(base.Buf, sub, diff)
		if err != nil {
			return nil, fasterr.Dynamicf("D7", instr.Name, r.Pos(), "%v", err)
		}
		combined = value.NewBytes(b)
	default:
		return nil, fasterr.Runtimef(instr.Name, "delta not defined for kind %s", instr.Kind)
	}
	ctx.Store.SetValue(key, combined)
	return &combined, nil
}

func decodeTail(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader) (*value.Value, error) {
	key := dictKeyFor(instr, ctx)
	nullable := instr.Presence == tmpl.Optional

	if ctx.currentPMap().ReadBit() {
		tail, err := readWireValue(instr, r, nullable)
		if err != nil {
			return nil, err
		}
		if tail == nil {
			ctx.Store.SetEmpty(key)
			return nil, nil
		}
		base, err := deltaBase(instr, ctx, key, r.Pos())
		if err != nil {
			return nil, err
		}
		var combined value.Value
		switch instr.Kind {
		case value.AsciiString:
			combined = value.NewAscii(value.ApplyTail(base.Str, tail.Str))
		case value.UnicodeString:
			combined = value.NewUnicode(value.ApplyTail(base.Str, tail.Str))
		case value.BytesKind:
			combined = value.NewBytes(value.ApplyBytesTail(base.Buf, tail.Buf))
		default:
			return nil, fasterr.Runtimef(instr.Name, "tail not defined for kind %s", instr.Kind)
		}
		ctx.Store.SetValue(key, combined)
		return &combined, nil
	}

	state, stored := ctx.Store.Get(key)
	switch state {
	case dict.Assigned:
		v := stored
		return &v, nil
	case dict.Empty:
		if instr.Presence == tmpl.Mandatory {
			return nil, fasterr.Dynamicf("D7", instr.Name, r.Pos(), "mandatory tail base is empty")
		}
		return nil, nil
	default: // dict.Undefined
		var v value.Value
		if instr.Initial != nil {
			v = *instr.Initial
		} else {
			v = value.Default(instr.Kind)
		}
		ctx.Store.SetValue(key, v)
		return &v, nil
	}
}
