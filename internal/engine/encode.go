package engine

import (
	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/fasterr"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

// Encode pulls one message's values from source and writes it to w
// (spec.md §4.2, §4.6, §6). Per §9's encoder staging discipline, each
// nested segment (message, group, sequence item, dynamic template-ref)
// stages its body into its own bitio.Writer so its presence-map bytes can
// be prepended once the segment's bit count is known.
func Encode(templates *tmpl.TemplateSet, store *dict.Store, w *bitio.Writer, source Source) error {
	tpl, ok := templates.ByName[source.TemplateName()]
	if !ok {
		return fasterr.Runtimef(source.TemplateName(), "unknown template name")
	}

	bodyW := bitio.NewWriter()
	pmap := bitio.NewEmptyPMap()
	ctx := NewContext(templates, store)
	ctx.pushPMap(pmap)

	idVal := value.NewUInt32(tpl.ID)
	if err := encodeField(templateIDField, ctx, bodyW, &idVal); err != nil {
		return err
	}
	if err := encodeTemplateBody(tpl, ctx, bodyW, source); err != nil {
		return err
	}
	ctx.popPMap()

	w.WritePMap(pmap)
	w.Append(bodyW.Bytes())
	return nil
}

func encodeTemplateBody(tpl *tmpl.Template, ctx *Context, w *bitio.Writer, source Source) error {
	ctx.pushTemplateID(tpl.ID)
	ctx.pushDictScope(resolveScope(tpl.DictDecl, ctx))
	ctx.pushTypeName(resolveTypeNameFromRef(tpl.TypeRef, ctx))

	err := encodeInstructions(tpl.Instructions, ctx, w, source)

	ctx.popTypeName()
	ctx.popDictScope()
	ctx.popTemplateID()
	return err
}

func encodeInstructions(instrs []*tmpl.Instruction, ctx *Context, w *bitio.Writer, source Source) error {
	for _, instr := range instrs {
		if err := encodeInstruction(instr, ctx, w, source); err != nil {
			return err
		}
	}
	return nil
}

func encodeInstruction(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, source Source) error {
	switch instr.Tag {
	case tmpl.TagPrimitive:
		v := source.GetValue(instr.Name)
		return encodeField(instr, ctx, w, v)

	case tmpl.TagDecimal:
		return encodeDecimal(instr, ctx, w, source)

	case tmpl.TagGroup:
		return encodeGroup(instr, ctx, w, source)

	case tmpl.TagSequence:
		return encodeSequence(instr, ctx, w, source)

	case tmpl.TagTemplateRef:
		return encodeTemplateRef(instr, ctx, w, source)

	default:
		return fasterr.Runtimef(instr.Name, "unknown instruction tag")
	}
}

func encodeDecimal(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, source Source) error {
	v := source.GetValue(instr.Name)
	if decimalIsAtomic(instr) {
		return encodeField(instr, ctx, w, v)
	}

	exp, man := instr.Children[0], instr.Children[1]
	if v == nil {
		return encodeField(exp, ctx, w, nil)
	}
	expVal := value.NewInt32(v.Dec.Exponent)
	if err := encodeField(exp, ctx, w, &expVal); err != nil {
		return err
	}
	manVal := value.NewInt64(v.Dec.Mantissa)
	return encodeField(man, ctx, w, &manVal)
}

func encodeGroup(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, source Source) error {
	present := source.SelectGroup(instr.Name)
	if instr.Presence == tmpl.Optional {
		ctx.currentPMap().AppendBit(present)
	} else if !present {
		return fasterr.Runtimef(instr.Name, "mandatory group has no value to encode")
	}
	if !present {
		return nil
	}

	ctx.pushDictScope(resolveScope(instr.DictDecl, ctx))
	ctx.pushTypeName(resolveTypeName(instr, ctx))

	var err error
	if instr.HasPmap {
		segW := bitio.NewWriter()
		segPmap := bitio.NewEmptyPMap()
		ctx.pushPMap(segPmap)
		err = encodeInstructions(instr.Children, ctx, segW, source)
		ctx.popPMap()
		if err == nil {
			w.WritePMap(segPmap)
			w.Append(segW.Bytes())
		}
	} else {
		err = encodeInstructions(instr.Children, ctx, w, source)
	}

	ctx.popTypeName()
	ctx.popDictScope()
	source.ReleaseGroup()
	return err
}

func encodeSequence(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, source Source) error {
	lengthInstr := instr.SequenceLength()
	length, ok := source.SelectSequence(instr.Name)
	if !ok {
		return encodeField(lengthInstr, ctx, w, nil)
	}
	lengthVal := value.NewUInt32(length)
	if err := encodeField(lengthInstr, ctx, w, &lengthVal); err != nil {
		return err
	}

	ctx.pushDictScope(resolveScope(instr.DictDecl, ctx))
	ctx.pushTypeName(resolveTypeName(instr, ctx))

	body := instr.SequenceBody()
	for i := uint32(0); i < length; i++ {
		source.SelectSequenceItem(int(i))
		var err error
		if instr.HasPmap {
			itemW := bitio.NewWriter()
			itemPmap := bitio.NewEmptyPMap()
			ctx.pushPMap(itemPmap)
			err = encodeInstructions(body, ctx, itemW, source)
			ctx.popPMap()
			if err == nil {
				w.WritePMap(itemPmap)
				w.Append(itemW.Bytes())
			}
		} else {
			err = encodeInstructions(body, ctx, w, source)
		}
		source.ReleaseSequenceItem()
		if err != nil {
			ctx.popTypeName()
			ctx.popDictScope()
			return err
		}
	}

	ctx.popTypeName()
	ctx.popDictScope()
	source.ReleaseSequence()
	return nil
}

func encodeTemplateRef(instr *tmpl.Instruction, ctx *Context, w *bitio.Writer, source Source) error {
	if instr.RefName != "" {
		name, ok := source.SelectTemplateRef(instr.RefName, false)
		if !ok {
			return fasterr.Runtimef(instr.RefName, "static templateRef source did not select a template")
		}
		target, ok := ctx.Templates.ByName[name]
		if !ok {
			return fasterr.Runtimef(name, "static templateRef to unknown template")
		}
		var err error
		if instr.HasPmap {
			segW := bitio.NewWriter()
			segPmap := bitio.NewEmptyPMap()
			ctx.pushPMap(segPmap)
			err = encodeTemplateBody(target, ctx, segW, source)
			ctx.popPMap()
			if err == nil {
				w.WritePMap(segPmap)
				w.Append(segW.Bytes())
			}
		} else {
			err = encodeTemplateBody(target, ctx, w, source)
		}
		source.ReleaseTemplateRef()
		return err
	}

	name, ok := source.SelectTemplateRef("", true)
	if !ok {
		return fasterr.Runtimef(instr.Name, "dynamic templateRef source did not select a template")
	}
	target, ok := ctx.Templates.ByName[name]
	if !ok {
		return fasterr.Runtimef(name, "dynamic templateRef to unknown template")
	}

	segW := bitio.NewWriter()
	segPmap := bitio.NewEmptyPMap()
	ctx.pushPMap(segPmap)
	idVal := value.NewUInt32(target.ID)
	if err := encodeField(templateIDField, ctx, segW, &idVal); err != nil {
		ctx.popPMap()
		return err
	}
	err := encodeTemplateBody(target, ctx, segW, source)
	ctx.popPMap()
	if err != nil {
		return err
	}

	w.WritePMap(segPmap)
	w.Append(segW.Bytes())
	source.ReleaseTemplateRef()
	return nil
}
