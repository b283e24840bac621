package tmpl

// finalizeTemplate computes RequiresBit/HasPmap for every instruction in t
// and then t's own requiresOuterPmap, per spec.md §4.3. Templates are
// processed in declaration order (Compile's loop), so static template-ref
// instructions here only ever look up templates earlier in ts.Order,
// which are therefore already finalized.
func finalizeTemplate(t *Template, ts *TemplateSet) error {
	for _, instr := range t.Instructions {
		if err := finalizeInstruction(instr, ts); err != nil {
			return err
		}
	}
	t.requiresOuterPmap = anyRequiresBit(t.Instructions)
	t.requiresOuterPmapSet = true
	return nil
}

func anyRequiresBit(instrs []*Instruction) bool {
	for _, i := range instrs {
		if i.RequiresBit {
			return true
		}
	}
	return false
}

func finalizeInstruction(i *Instruction, ts *TemplateSet) error {
	switch i.Tag {
	case TagPrimitive:
		i.RequiresBit = kindRequiresBitBase(i.Operator, i.Presence)
		i.HasPmap = false

	case TagDecimal:
		for _, c := range i.Children {
			if err := finalizeInstruction(c, ts); err != nil {
				return err
			}
		}
		childBit := anyRequiresBit(i.Children)
		ownBit := kindRequiresBitBase(i.Operator, i.Presence)
		i.RequiresBit = childBit || ownBit
		i.HasPmap = childBit

	case TagGroup:
		for _, c := range i.Children {
			if err := finalizeInstruction(c, ts); err != nil {
				return err
			}
		}
		childBit := anyRequiresBit(i.Children)
		i.RequiresBit = i.Presence == Optional || childBit
		i.HasPmap = childBit

	case TagSequence:
		length := i.SequenceLength()
		if err := finalizeInstruction(length, ts); err != nil {
			return err
		}
		for _, c := range i.SequenceBody() {
			if err := finalizeInstruction(c, ts); err != nil {
				return err
			}
		}
		i.RequiresBit = length.RequiresBit
		i.HasPmap = anyRequiresBit(i.SequenceBody())

	case TagTemplateRef:
		if i.RefName == "" {
			// Dynamic ref: carries its own outer segment, no bit of the
			// enclosing one.
			i.RequiresBit = false
			i.HasPmap = false
			return nil
		}
		target, ok := ts.ByName[i.RefName]
		if !ok {
			return staticf("", i.RefName, "templateRef references unknown template %q", i.RefName)
		}
		if !target.requiresOuterPmapSet {
			return staticf("S2", i.RefName, "templateRef to %q declared later in the document (forward references are not allowed)", i.RefName)
		}
		req := target.RequiresOuterPmap()
		i.RequiresBit = req
		i.HasPmap = req
	}
	return nil
}
