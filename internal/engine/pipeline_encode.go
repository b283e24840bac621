package engine

import (
	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/fasterr"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

func valuesEqual(a, b *value.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// encodeField is the encoder-side mirror of decodeField: given the value
// the source supplied for instr, it appends whatever pmap bit the operator
// needs, writes wire bytes, and updates the dictionary — always choosing
// the canonical (shortest) encoding spec.md §8 requires.
func encodeField(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, v *value.Value) error {
	nullable := instr.Presence == tmpl.Optional
	switch instr.Operator {
	case tmpl.OpNone:
		if v == nil && !nullable {
			return fasterr.Runtimef(instr.Name, "mandatory field has no value to encode")
		}
		return writeWireValue(instr, w, v, nullable)

	case tmpl.OpConstant:
		return encodeConstant(instr, ctx, v)

	case tmpl.OpDefault:
		return encodeDefault(instr, ctx, w, v, nullable)

	case tmpl.OpCopy:
		return encodeReplay(instr, ctx, w, v, false)

	case tmpl.OpIncrement:
		return encodeReplay(instr, ctx, w, v, true)

	case tmpl.OpDelta:
		return encodeDelta(instr, ctx, w, v, nullable)

	case tmpl.OpTail:
		return encodeTail(instr, ctx, w, v, nullable)

	default:
		return fasterr.Runtimef(instr.Name, "unknown operator %s", instr.Operator)
	}
}

func encodeConstant(instr *tmpl.Instruction, ctx *Context, v *value.Value) error {
	if instr.Presence == tmpl.Mandatory {
		if v == nil || !v.Equal(*instr.Initial) {
			return fasterr.Runtimef(instr.Name, "mandatory constant field value does not match its initial value")
		}
		return nil
	}
	if v == nil {
		ctx.currentPMap().AppendBit(false)
		return nil
	}
	if !v.Equal(*instr.Initial) {
		return fasterr.Runtimef(instr.Name, "optional constant field value does not match its initial value")
	}
	ctx.currentPMap().AppendBit(true)
	return nil
}

func encodeDefault(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, v *value.Value, nullable bool) error {
	if valuesEqual(instr.Initial, v) {
		ctx.currentPMap().AppendBit(false)
		return nil
	}
	ctx.currentPMap().AppendBit(true)
	if v == nil && !nullable {
		return fasterr.Runtimef(instr.Name, "mandatory field has no value to encode")
	}
	return writeWireValue(instr, w, v, nullable)
}

// peekReplay predicts what the pmap-bit-0 path of copy/increment would
// decode to, without mutating the dictionary, so the encoder can compare
// it against the value it actually needs to transmit.
func peekReplay(instr *tmpl.Instruction, ctx *Context, key dict.Key, isIncrement bool) (predicted *value.Value, viable bool) {
	state, stored := ctx.Store.Get(key)
	switch state {
	case dict.Undefined:
		if instr.Presence == tmpl.Mandatory {
			if instr.Initial == nil {
				return nil, false
			}
			v := *instr.Initial
			return &v, true
		}
		if instr.Initial != nil {
			v := *instr.Initial
			return &v, true
		}
		return nil, true
	case dict.Empty:
		if instr.Presence == tmpl.Mandatory {
			return nil, false
		}
		return nil, true
	default: // dict.Assigned
		if stored.Kind != instr.Kind {
			return nil, false
		}
		if !isIncrement {
			v := stored
			return &v, true
		}
		nv, err := value.ApplyIncrement(stored)
		if err != nil {
			return nil, false
		}
		return &nv, true
	}
}

// commitReplayBit0 performs the dictionary mutation the pmap-bit-0 path of
// copy/increment implies, mirroring decodeReplay's corresponding branch.
func commitReplayBit0(instr *tmpl.Instruction, ctx *Context, key dict.Key, isIncrement bool) {
	state, stored := ctx.Store.Get(key)
	switch state {
	case dict.Undefined:
		if instr.Presence == tmpl.Mandatory {
			ctx.Store.SetValue(key, *instr.Initial)
			return
		}
		if instr.Initial != nil {
			ctx.Store.SetValue(key, *instr.Initial)
			return
		}
		ctx.Store.SetEmpty(key)
	case dict.Empty:
		// optional: stays Empty, no-op.
	default: // dict.Assigned
		if isIncrement {
			nv, _ := value.ApplyIncrement(stored)
			ctx.Store.SetValue(key, nv)
		}
	}
}

func encodeReplay(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, v *value.Value, isIncrement bool) error {
	key := dictKeyFor(instr, ctx)
	nullable := instr.Presence == tmpl.Optional

	if predicted, viable := peekReplay(instr, ctx, key, isIncrement); viable && valuesEqual(predicted, v) {
		ctx.currentPMap().AppendBit(false)
		commitReplayBit0(instr, ctx, key, isIncrement)
		return nil
	}

	ctx.currentPMap().AppendBit(true)
	if v == nil {
		if !nullable {
			return fasterr.Runtimef(instr.Name, "mandatory field has no value to encode")
		}
		if err := writeWireValue(instr, w, nil, true); err != nil {
			return err
		}
		ctx.Store.SetEmpty(key)
		return nil
	}
	if err := writeWireValue(instr, w, v, nullable); err != nil {
		return err
	}
	ctx.Store.SetValue(key, *v)
	return nil
}

func encodeDelta(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, v *value.Value, nullable bool) error {
	key := dictKeyFor(instr, ctx)
	if v == nil {
		if !nullable {
			return fasterr.Runtimef(instr.Name, "mandatory field has no value to encode")
		}
		w.WriteIntNullable(0, false)
		return nil
	}

	base, err := deltaBase(instr, ctx, key, -1)
	if err != nil {
		return err
	}

	if instr.Kind.IsIntegral() {
		d, err := value.FindIntDelta(*v, base)
		if err != nil {
			return fasterr.Wrap(err, "delta discovery")
		}
		if nullable {
			w.WriteIntNullable(d, true)
		} else {
			w.WriteInt(d)
		}
		ctx.Store.SetValue(key, *v)
		return nil
	}

	switch instr.Kind {
	case value.AsciiString:
		sub, diff := value.FindStringDelta(v.Str, base.Str)
		writeDeltaSub(w, sub, nullable)
		if err := w.WriteAsciiString(diff); err != nil {
			return err
		}
	case value.UnicodeString:
		sub, diff := value.FindStringDelta(v.Str, base.Str)
		writeDeltaSub(w, sub, nullable)
		w.WriteUnicodeString(diff)
	case value.BytesKind:
		sub, diff := value.FindBytesDelta(v.Buf, base.Buf)
		writeDeltaSub(w, sub, nullable)
		w.WriteBytes(diff)
	default:
		return fasterr.Runtimef(instr.Name, "delta not defined for kind %s", instr.Kind)
	}
	ctx.Store.SetValue(key, *v)
	return nil
}

func writeDeltaSub(w *bitio.Writer, sub int64, nullable bool) {
	if nullable {
		w.WriteIntNullable(sub, true)
		return
	}
	w.WriteInt(sub)
}

func encodeTail(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, v *value.Value, nullable bool) error {
	key := dictKeyFor(instr, ctx)
	state, stored := ctx.Store.Get(key)

	var candidate0 *value.Value
	viable0 := true
	switch state {
	case dict.Assigned:
		c := stored
		candidate0 = &c
	case dict.Empty:
		if instr.Presence == tmpl.Mandatory {
			viable0 = false
		}
	default: // dict.Undefined
		var iv value.Value
		if instr.Initial != nil {
			iv = *instr.Initial
		} else {
			iv = value.Default(instr.Kind)
		}
		candidate0 = &iv
	}

	if viable0 && valuesEqual(candidate0, v) {
		ctx.currentPMap().AppendBit(false)
		if state == dict.Undefined {
			ctx.Store.SetValue(key, *candidate0)
		}
		return nil
	}

	ctx.currentPMap().AppendBit(true)
	if v == nil {
		if !nullable {
			return fasterr.Runtimef(instr.Name, "mandatory field has no value to encode")
		}
		if err := writeWireValue(instr, w, nil, true); err != nil {
			return err
		}
		ctx.Store.SetEmpty(key)
		return nil
	}

	base, err := deltaBase(instr, ctx, key, -1)
	if err != nil {
		return err
	}
	var tailVal value.Value
	switch instr.Kind {
	case value.AsciiString:
		t, err := value.FindTail(v.Str, base.Str)
		if err != nil {
			return fasterr.Dynamicf("D7", instr.Name, -1, "%v", err)
		}
		tailVal = value.NewAscii(t)
	case value.UnicodeString:
		t, err := value.FindTail(v.Str, base.Str)
		if err != nil {
			return fasterr.Dynamicf("D7", instr.Name, -1, "%v", err)
		}
		tailVal = value.NewUnicode(t)
	case value.BytesKind:
		t, err := value.FindBytesTail(v.Buf, base.Buf)
		if err != nil {
			return fasterr.Dynamicf("D7", instr.Name, -1, "%v", err)
		}
		tailVal = value.NewBytes(t)
	default:
		return fasterr.Runtimef(instr.Name, "tail not defined for kind %s", instr.Kind)
	}
	if err := writeWireValue(instr, w, &tailVal, nullable); err != nil {
		return err
	}
	ctx.Store.SetValue(key, *v)
	return nil
}
