package engine

import (
	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/fasterr"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

// templateIDField is the implicit mandatory uInt32 copy-operator field every
// FAST message opens with (spec.md §4.2). It lives in the global dictionary
// under a fixed key and never appears in a compiled template's own
// instruction tree, so it is built once, ad hoc, rather than run through
// tmpl's finalize pass; RequiresBit is set directly since nothing else
// computes it for this field.
var templateIDField = &tmpl.Instruction{
	Tag:         tmpl.TagPrimitive,
	Name:        "templateId",
	Kind:        value.UInt32,
	Presence:    tmpl.Mandatory,
	Operator:    tmpl.OpCopy,
	DictDecl:    tmpl.DictDecl{Kind: tmpl.DictGlobal},
	Key:         "templateId",
	RequiresBit: true,
}

// Decode reads one FAST message from r and drives sink through its
// instruction tree (spec.md §4.2, §6). A clean end of stream between
// messages surfaces as fasterr.ErrEof.
func Decode(templates *tmpl.TemplateSet, store *dict.Store, r *bitio.Reader, sink Sink) error {
	pmap, err := r.ReadPMap()
	if err != nil {
		return err
	}
	ctx := NewContext(templates, store)
	ctx.pushPMap(pmap)

	idv, err := decodeField(templateIDField, ctx, r)
	if err != nil {
		return err
	}
	if idv == nil {
		return fasterr.Dynamicf("D9", "templateId", r.Pos(), "decoded template id is absent")
	}
	id := uint32(idv.U)
	tpl, ok := templates.ByID[id]
	if !ok {
		return fasterr.Dynamicf("D9", "templateId", r.Pos(), "unknown template id %d", id)
	}

	if err := decodeTemplateBody(tpl, ctx, r, sink); err != nil {
		return err
	}
	ctx.popPMap()
	return nil
}

// decodeTemplateBody pushes the template-scope context, walks the
// template's instructions against the currently-active pmap segment, and
// pops the scope back off. Used both for the outer message and for a
// static template-ref; decodeTemplateRef reads the ref's own pmap segment
// first when the ref's HasPmap is set, and otherwise shares the enclosing
// segment's pmap.
func decodeTemplateBody(tpl *tmpl.Template, ctx *Context, r *bitio.Reader, sink Sink) error {
	ctx.pushTemplateID(tpl.ID)
	ctx.pushDictScope(resolveScope(tpl.DictDecl, ctx))
	ctx.pushTypeName(resolveTypeNameFromRef(tpl.TypeRef, ctx))

	sink.StartTemplate(tpl.ID, tpl.Name)
	err := decodeInstructions(tpl.Instructions, ctx, r, sink)
	sink.StopTemplate()

	ctx.popTypeName()
	ctx.popDictScope()
	ctx.popTemplateID()
	return err
}

func decodeInstructions(instrs []*tmpl.Instruction, ctx *Context, r *bitio.Reader, sink Sink) error {
	for _, instr := range instrs {
		if err := decodeInstruction(instr, ctx, r, sink); err != nil {
			return err
		}
	}
	return nil
}

func decodeInstruction(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader, sink Sink) error {
	switch instr.Tag {
	case tmpl.TagPrimitive:
		v, err := decodeField(instr, ctx, r)
		if err != nil {
			return err
		}
		sink.SetValue(instr.ID, instr.Name, v)
		return nil

	case tmpl.TagDecimal:
		return decodeDecimal(instr, ctx, r, sink)

	case tmpl.TagGroup:
		return decodeGroup(instr, ctx, r, sink)

	case tmpl.TagSequence:
		return decodeSequence(instr, ctx, r, sink)

	case tmpl.TagTemplateRef:
		return decodeTemplateRef(instr, ctx, r, sink)

	default:
		return fasterr.Runtimef(instr.Name, "unknown instruction tag")
	}
}

// decimalIsAtomic reports whether a decimal's exponent/mantissa stayed
// unsplit (the operator, if any, runs at the decimal level). Both
// subcomponents carry OpNone in every case where splitting would be a
// no-op anyway (no operator given, or an explicit-subcomponent decimal
// whose children were never given their own operator), so the atomic wire
// path is always bit-for-bit identical to decoding them independently.
func decimalIsAtomic(d *tmpl.Instruction) bool {
	return d.Children[0].Operator == tmpl.OpNone && d.Children[1].Operator == tmpl.OpNone
}

func decodeDecimal(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader, sink Sink) error {
	if decimalIsAtomic(instr) {
		v, err := decodeField(instr, ctx, r)
		if err != nil {
			return err
		}
		sink.SetValue(instr.ID, instr.Name, v)
		return nil
	}

	exp, man := instr.Children[0], instr.Children[1]
	expVal, err := decodeField(exp, ctx, r)
	if err != nil {
		return err
	}
	if expVal == nil {
		sink.SetValue(instr.ID, instr.Name, nil)
		return nil
	}
	manVal, err := decodeField(man, ctx, r)
	if err != nil {
		return err
	}
	d := value.Normalize(manVal.I, int32(expVal.I))
	v := value.NewDecimalValue(d)
	sink.SetValue(instr.ID, instr.Name, &v)
	return nil
}

func decodeGroup(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader, sink Sink) error {
	if instr.Presence == tmpl.Optional {
		if !ctx.currentPMap().ReadBit() {
			return nil
		}
	}

	sink.StartGroup(instr.Name)
	ctx.pushDictScope(resolveScope(instr.DictDecl, ctx))
	ctx.pushTypeName(resolveTypeName(instr, ctx))

	var err error
	if instr.HasPmap {
		var pmap *bitio.PMap
		pmap, err = r.ReadPMap()
		if err == nil {
			ctx.pushPMap(pmap)
			err = decodeInstructions(instr.Children, ctx, r, sink)
			ctx.popPMap()
		}
	} else {
		err = decodeInstructions(instr.Children, ctx, r, sink)
	}

	ctx.popTypeName()
	ctx.popDictScope()
	sink.StopGroup()
	return err
}

func decodeSequence(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader, sink Sink) error {
	lengthInstr := instr.SequenceLength()
	lengthVal, err := decodeField(lengthInstr, ctx, r)
	if err != nil {
		return err
	}
	if lengthVal == nil {
		sink.StartSequence(instr.ID, instr.Name, 0)
		sink.StopSequence()
		return nil
	}
	length := uint32(lengthVal.U)

	sink.StartSequence(instr.ID, instr.Name, length)
	ctx.pushDictScope(resolveScope(instr.DictDecl, ctx))
	ctx.pushTypeName(resolveTypeName(instr, ctx))

	body := instr.SequenceBody()
	for i := uint32(0); i < length; i++ {
		sink.StartSequenceItem(int(i))
		var itemErr error
		if instr.HasPmap {
			var pmap *bitio.PMap
			pmap, itemErr = r.ReadPMap()
			if itemErr == nil {
				ctx.pushPMap(pmap)
				itemErr = decodeInstructions(body, ctx, r, sink)
				ctx.popPMap()
			}
		} else {
			itemErr = decodeInstructions(body, ctx, r, sink)
		}
		sink.StopSequenceItem()
		if itemErr != nil {
			ctx.popTypeName()
			ctx.popDictScope()
			return itemErr
		}
	}

	ctx.popTypeName()
	ctx.popDictScope()
	sink.StopSequence()
	return nil
}

func decodeTemplateRef(instr *tmpl.Instruction, ctx *Context, r *bitio.Reader, sink Sink) error {
	if instr.RefName != "" {
		target, ok := ctx.Templates.ByName[instr.RefName]
		if !ok {
			return fasterr.Runtimef(instr.RefName, "static templateRef to unknown template")
		}
		sink.StartTemplateRef(instr.RefName, false)
		var err error
		if instr.HasPmap {
			var pmap *bitio.PMap
			pmap, err = r.ReadPMap()
			if err == nil {
				ctx.pushPMap(pmap)
				err = decodeTemplateBody(target, ctx, r, sink)
				ctx.popPMap()
			}
		} else {
			err = decodeTemplateBody(target, ctx, r, sink)
		}
		sink.StopTemplateRef()
		return err
	}

	sink.StartTemplateRef("", true)
	pmap, err := r.ReadPMap()
	if err != nil {
		return err
	}
	ctx.pushPMap(pmap)

	idv, err := decodeField(templateIDField, ctx, r)
	if err != nil {
		ctx.popPMap()
		return err
	}
	if idv == nil {
		ctx.popPMap()
		return fasterr.Dynamicf("D9", "templateId", r.Pos(), "decoded dynamic template id is absent")
	}
	id := uint32(idv.U)
	target, ok := ctx.Templates.ByID[id]
	if !ok {
		ctx.popPMap()
		return fasterr.Dynamicf("D9", "templateId", r.Pos(), "unknown dynamic template id %d", id)
	}

	err = decodeTemplateBody(target, ctx, r, sink)
	ctx.popPMap()
	sink.StopTemplateRef()
	return err
}
