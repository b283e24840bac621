package tmpl

import (
	"strconv"
	"strings"

	"fastcodec/internal/value"
)

// Compile parses a FAST 1.1 templates XML document and returns the
// compiled, finalized TemplateSet. Grounded on the teacher's
// logix/template.go parseDefinition + calculateOffsets two-pass shape:
// build the raw tree first, then a second pass (finalize.go) derives the
// presence-map bit predicates.
func Compile(xmlDoc []byte) (*TemplateSet, error) {
	root, err := parseXML(xmlDoc)
	if err != nil {
		return nil, err
	}
	if root.Name != "templates" {
		return nil, staticf("", "", "root element must be <templates>, got <%s>", root.Name)
	}

	ts := &TemplateSet{ByID: map[uint32]*Template{}, ByName: map[string]*Template{}}
	for _, tn := range root.Children {
		if tn.Name != "template" {
			return nil, staticf("", "", "unexpected element <%s> under <templates>", tn.Name)
		}
		t, err := buildTemplate(tn)
		if err != nil {
			return nil, err
		}
		if _, dup := ts.ByName[t.Name]; dup {
			return nil, staticf("", t.Name, "duplicate template name %q", t.Name)
		}
		if t.ID != 0 {
			if _, dup := ts.ByID[t.ID]; dup {
				return nil, staticf("", t.Name, "duplicate template id %d", t.ID)
			}
			ts.ByID[t.ID] = t
		}
		ts.ByName[t.Name] = t
		ts.Order = append(ts.Order, t)
	}

	for _, t := range ts.Order {
		if err := finalizeTemplate(t, ts); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

func buildTemplate(tn *node) (*Template, error) {
	name, ok := tn.attr("name")
	if !ok || name == "" {
		return nil, staticf("", "", "template missing required name attribute")
	}
	var id uint32
	if v, ok := tn.attr("id"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, staticf("", name, "template id %q is not an unsigned integer", v)
		}
		id = uint32(n)
	}
	t := &Template{
		ID:       id,
		Name:     name,
		TypeRef:  parseTypeRef(tn.attrOr("typeRef", "")),
		DictDecl: parseDictDecl(tn.attrOr("dictionary", "global")),
	}
	for _, fn := range tn.Children {
		instr, err := buildInstruction(fn)
		if err != nil {
			return nil, err
		}
		t.Instructions = append(t.Instructions, instr)
	}
	if err := checkDuplicateInstructionIDs(t); err != nil {
		return nil, err
	}
	return t, nil
}

// checkDuplicateInstructionIDs enforces [S2]: a field id must be unique
// within the template that declares it, checked across the whole
// instruction tree (group and sequence bodies included), not just the
// template's top-level fields.
func checkDuplicateInstructionIDs(t *Template) error {
	seen := map[uint32]string{}
	var walk func(instrs []*Instruction) error
	walk = func(instrs []*Instruction) error {
		for _, instr := range instrs {
			if instr.Tag != TagTemplateRef && instr.ID != 0 {
				if prev, dup := seen[instr.ID]; dup {
					return staticf("S2", t.Name, "duplicate field id %d (%q and %q)", instr.ID, prev, instr.Name)
				}
				seen[instr.ID] = instr.Name
			}
			if err := walk(instr.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.Instructions)
}

func parseTypeRef(v string) TypeRef {
	if v == "" {
		return TypeRef{Kind: TypeRefAny}
	}
	return TypeRef{Kind: TypeRefNamed, Name: v}
}

func parseDictDecl(v string) DictDecl {
	switch strings.ToLower(v) {
	case "", "inherit":
		return DictDecl{Kind: DictInherit}
	case "global":
		return DictDecl{Kind: DictGlobal}
	case "template":
		return DictDecl{Kind: DictTemplate}
	case "type":
		return DictDecl{Kind: DictType}
	default:
		return DictDecl{Kind: DictUserDefined, Name: v}
	}
}

func parsePresence(v string) (Presence, error) {
	switch strings.ToLower(v) {
	case "", "mandatory":
		return Mandatory, nil
	case "optional":
		return Optional, nil
	default:
		return Mandatory, staticf("", "", "unknown presence %q", v)
	}
}

func parseCharset(v, fieldName string) (value.Kind, error) {
	switch strings.ToLower(v) {
	case "", "ascii":
		return value.AsciiString, nil
	case "unicode":
		return value.UnicodeString, nil
	default:
		return 0, staticf("S2", fieldName, "unknown charset %q", v)
	}
}

func parseOperatorTag(name string) (Operator, bool) {
	switch name {
	case "none":
		return OpNone, true
	case "constant":
		return OpConstant, true
	case "default":
		return OpDefault, true
	case "copy":
		return OpCopy, true
	case "increment":
		return OpIncrement, true
	case "delta":
		return OpDelta, true
	case "tail":
		return OpTail, true
	default:
		return OpNone, false
	}
}

// operatorChild finds the at-most-one operator element among a field's
// children and reports its operator and optional "value" attribute. A
// field with no operator element defaults to OpNone.
func operatorChild(fn *node, fieldKindName string) (Operator, string, bool, error) {
	var found *node
	for _, c := range fn.Children {
		if _, isOp := parseOperatorTag(c.Name); !isOp {
			return OpNone, "", false, staticf("S2", fn.attrOr("name", fieldKindName), "unknown element <%s> in operator position", c.Name)
		}
		if found != nil {
			return OpNone, "", false, staticf("", fn.attrOr("name", fieldKindName), "field has more than one operator element")
		}
		found = c
	}
	if found == nil {
		return OpNone, "", false, nil
	}
	op, _ := parseOperatorTag(found.Name)
	v, hasValue := found.attr("value")
	return op, v, hasValue, nil
}

// operatorApplicable enforces [S2]: operator must be compatible with kind.
func operatorApplicable(op Operator, k value.Kind) bool {
	switch op {
	case OpNone, OpConstant, OpDefault, OpCopy:
		return true
	case OpIncrement:
		// A decimal's own increment is never executed atomically: the
		// compiler always pushes it down to the (integral) exponent and
		// mantissa subcomponents, so decimal-kind is accepted here purely
		// to let that split happen.
		return k.IsIntegral() || k == value.DecimalKind
	case OpDelta:
		return k.IsIntegral() || k.IsStringOrBytes() || k == value.DecimalKind
	case OpTail:
		return k.IsStringOrBytes()
	default:
		return false
	}
}

func kindRequiresBitBase(op Operator, presence Presence) bool {
	switch op {
	case OpNone, OpDelta:
		return false
	case OpConstant:
		return presence == Optional
	default: // default, copy, increment, tail
		return true
	}
}

func buildInstruction(fn *node) (*Instruction, error) {
	switch fn.Name {
	case "uInt32":
		return buildPrimitive(fn, value.UInt32)
	case "int32":
		return buildPrimitive(fn, value.Int32)
	case "uInt64":
		return buildPrimitive(fn, value.UInt64)
	case "int64":
		return buildPrimitive(fn, value.Int64)
	case "length":
		return buildPrimitive(fn, value.UInt32)
	case "string":
		k, err := parseCharset(fn.attrOr("charset", "ascii"), fn.attrOr("name", ""))
		if err != nil {
			return nil, err
		}
		return buildPrimitive(fn, k)
	case "byteVector":
		return buildPrimitive(fn, value.BytesKind)
	case "decimal":
		return buildDecimal(fn)
	case "sequence":
		return buildSequence(fn)
	case "group":
		return buildGroup(fn)
	case "templateRef":
		return buildTemplateRef(fn)
	default:
		return nil, staticf("", "", "unknown field type tag <%s>", fn.Name)
	}
}

func buildPrimitive(fn *node, k value.Kind) (*Instruction, error) {
	name := fn.attrOr("name", "")
	idStr, hasID := fn.attr("id")
	if !hasID {
		return nil, staticf("", name, "field <%s name=%q> missing required id attribute", fn.Name, name)
	}
	id64, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return nil, staticf("", name, "field id %q is not an unsigned integer", idStr)
	}
	if name == "" {
		return nil, staticf("", "", "field <%s id=%d> missing required name attribute", fn.Name, id64)
	}
	presence, err := parsePresence(fn.attrOr("presence", "mandatory"))
	if err != nil {
		return nil, err
	}
	op, opValue, hasOpValue, err := operatorChild(fn, fn.Name)
	if err != nil {
		return nil, err
	}
	if !operatorApplicable(op, k) {
		return nil, staticf("S2", name, "operator %s is not applicable to %s", op, k)
	}
	instr := &Instruction{
		Tag:      TagPrimitive,
		ID:       uint32(id64),
		Name:     name,
		Kind:     k,
		Presence: presence,
		Operator: op,
		DictDecl: parseDictDecl(fn.attrOr("dictionary", "inherit")),
		TypeRef:  parseTypeRef(fn.attrOr("typeRef", "")),
		Key:      fn.attrOr("key", name),
	}
	if hasOpValue {
		iv, err := parseInitialLiteral(opValue, k)
		if err != nil {
			return nil, staticf("S3", name, "initial value %q cannot be parsed as %s: %v", opValue, k, err)
		}
		instr.Initial = &iv
	}
	if err := checkInitialRequirements(op, presence, instr.Initial, name); err != nil {
		return nil, err
	}
	return instr, nil
}

func checkInitialRequirements(op Operator, presence Presence, initial *value.Value, field string) error {
	if op == OpConstant && initial == nil {
		return staticf("S4", field, "constant operator without initial value")
	}
	if op == OpDefault && presence == Mandatory && initial == nil {
		return staticf("S5", field, "mandatory default operator without initial value")
	}
	return nil
}

func parseInitialLiteral(s string, k value.Kind) (value.Value, error) {
	switch k {
	case value.UInt32, value.UInt64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		if k == value.UInt32 {
			return value.NewUInt32(uint32(n)), nil
		}
		return value.NewUInt64(n), nil
	case value.Int32, value.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		if k == value.Int32 {
			return value.NewInt32(int32(n)), nil
		}
		return value.NewInt64(n), nil
	case value.DecimalKind:
		d, err := value.ParseDecimal(s)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewDecimalValue(d), nil
	case value.AsciiString:
		return value.NewAscii(s), nil
	case value.UnicodeString:
		return value.NewUnicode(s), nil
	case value.BytesKind:
		return value.NewBytes([]byte(s)), nil
	default:
		return value.Value{}, staticf("", "", "unsupported kind for initial value: %s", k)
	}
}

// buildDecimal implements the three decimal-composition cases of §4.3.
func buildDecimal(fn *node) (*Instruction, error) {
	name := fn.attrOr("name", "")
	idStr, hasID := fn.attr("id")
	if !hasID {
		return nil, staticf("", name, "decimal field name=%q missing required id attribute", name)
	}
	id64, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return nil, staticf("", name, "field id %q is not an unsigned integer", idStr)
	}
	if name == "" {
		return nil, staticf("", "", "decimal field id=%d missing required name attribute", id64)
	}
	presence, err := parsePresence(fn.attrOr("presence", "mandatory"))
	if err != nil {
		return nil, err
	}
	key := fn.attrOr("key", name)

	var explicitExp, explicitMan *node
	for _, c := range fn.Children {
		switch c.Name {
		case "exponent":
			explicitExp = c
		case "mantissa":
			explicitMan = c
		}
	}

	instr := &Instruction{
		Tag:      TagDecimal,
		ID:       uint32(id64),
		Name:     name,
		Kind:     value.DecimalKind,
		Presence: presence,
		DictDecl: parseDictDecl(fn.attrOr("dictionary", "inherit")),
		TypeRef:  parseTypeRef(fn.attrOr("typeRef", "")),
		Key:      key,
	}

	switch {
	case explicitExp != nil || explicitMan != nil:
		// Case (c): explicit subcomponents, each walked independently.
		if explicitExp == nil || explicitMan == nil {
			return nil, staticf("", name, "decimal with an explicit subcomponent must declare both <exponent> and <mantissa>")
		}
		exp, err := buildDecimalSubcomponent(explicitExp, value.Int32, presence, key+":exponent")
		if err != nil {
			return nil, err
		}
		man, err := buildDecimalSubcomponent(explicitMan, value.Int64, Mandatory, key+":mantissa")
		if err != nil {
			return nil, err
		}
		instr.Operator = OpNone
		instr.Children = []*Instruction{exp, man}
	default:
		op, opValue, hasOpValue, err := operatorChild(fn, "decimal")
		if err != nil {
			return nil, err
		}
		if !operatorApplicable(op, value.DecimalKind) {
			return nil, staticf("S2", name, "operator %s is not applicable to decimal", op)
		}
		exp := &Instruction{Tag: TagPrimitive, Name: "", Kind: value.Int32, Presence: presence, Key: key + ":exponent"}
		man := &Instruction{Tag: TagPrimitive, Name: "", Kind: value.Int64, Presence: Mandatory, Key: key + ":mantissa"}
		if op == OpDelta || op == OpIncrement {
			// Case (b), delta/increment: pushed down to both subcomponents.
			exp.Operator = op
			man.Operator = op
			instr.Operator = OpNone
		} else {
			// Case (a)/(b) non-split operators: stay atomic at decimal level.
			instr.Operator = op
		}
		if hasOpValue {
			d, err := value.ParseDecimal(opValue)
			if err != nil {
				return nil, staticf("S3", name, "initial value %q cannot be parsed as decimal: %v", opValue, err)
			}
			iv := value.NewDecimalValue(d)
			instr.Initial = &iv
			expInitial := value.NewInt32(d.Exponent)
			manInitial := value.NewInt64(d.Mantissa)
			exp.Initial = &expInitial
			man.Initial = &manInitial
		}
		if err := checkInitialRequirements(instr.Operator, presence, instr.Initial, name); err != nil {
			return nil, err
		}
		if exp.Operator == OpIncrement || exp.Operator == OpDelta {
			if err := checkInitialRequirements(exp.Operator, exp.Presence, exp.Initial, name+":exponent"); err != nil {
				return nil, err
			}
			if err := checkInitialRequirements(man.Operator, man.Presence, man.Initial, name+":mantissa"); err != nil {
				return nil, err
			}
		}
		instr.Children = []*Instruction{exp, man}
	}
	return instr, nil
}

func buildDecimalSubcomponent(fn *node, k value.Kind, presence Presence, defaultKey string) (*Instruction, error) {
	op, opValue, hasOpValue, err := operatorChild(fn, fn.Name)
	if err != nil {
		return nil, err
	}
	if !operatorApplicable(op, k) {
		return nil, staticf("S2", fn.Name, "operator %s is not applicable to %s", op, k)
	}
	instr := &Instruction{
		Tag:      TagPrimitive,
		Kind:     k,
		Presence: presence,
		Operator: op,
		Key:      fn.attrOr("key", defaultKey),
	}
	if hasOpValue {
		iv, err := parseInitialLiteral(opValue, k)
		if err != nil {
			return nil, staticf("S3", fn.Name, "initial value %q cannot be parsed as %s: %v", opValue, k, err)
		}
		instr.Initial = &iv
	}
	if err := checkInitialRequirements(op, presence, instr.Initial, fn.Name); err != nil {
		return nil, err
	}
	return instr, nil
}

// buildSequence implements §4.3's sequence composition: a synthesized or
// explicit length field followed by the per-item body instructions.
func buildSequence(fn *node) (*Instruction, error) {
	name := fn.attrOr("name", "")
	idStr, hasID := fn.attr("id")
	var id uint64
	if hasID {
		var err error
		id, err = strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, staticf("", name, "field id %q is not an unsigned integer", idStr)
		}
	}
	presence, err := parsePresence(fn.attrOr("presence", "mandatory"))
	if err != nil {
		return nil, err
	}

	var lengthNode *node
	bodyNodes := fn.Children
	if len(fn.Children) > 0 && fn.Children[0].Name == "length" {
		lengthNode = fn.Children[0]
		bodyNodes = fn.Children[1:]
	}

	var length *Instruction
	if lengthNode != nil {
		length, err = buildSequenceLength(lengthNode, presence, name)
		if err != nil {
			return nil, err
		}
	} else {
		length = &Instruction{
			Tag:      TagPrimitive,
			Name:     name + ":length",
			Kind:     value.UInt32,
			Presence: presence,
			Operator: OpNone,
			Key:      name + ":length",
		}
	}

	instr := &Instruction{
		Tag:      TagSequence,
		ID:       uint32(id),
		Name:     name,
		Presence: presence,
		DictDecl: parseDictDecl(fn.attrOr("dictionary", "inherit")),
		TypeRef:  parseTypeRef(fn.attrOr("typeRef", "")),
		Key:      fn.attrOr("key", name),
	}
	instr.Children = append(instr.Children, length)
	for _, c := range bodyNodes {
		bi, err := buildInstruction(c)
		if err != nil {
			return nil, err
		}
		instr.Children = append(instr.Children, bi)
	}
	return instr, nil
}

func buildSequenceLength(fn *node, seqPresence Presence, seqName string) (*Instruction, error) {
	name := fn.attrOr("name", seqName+":length")
	presence := seqPresence
	if v, ok := fn.attr("presence"); ok {
		p, err := parsePresence(v)
		if err != nil {
			return nil, err
		}
		presence = p
	}
	op, opValue, hasOpValue, err := operatorChild(fn, "length")
	if err != nil {
		return nil, err
	}
	if !operatorApplicable(op, value.UInt32) {
		return nil, staticf("S2", name, "operator %s is not applicable to length", op)
	}
	instr := &Instruction{
		Tag:      TagPrimitive,
		Name:     name,
		Kind:     value.UInt32,
		Presence: presence,
		Operator: op,
		DictDecl: parseDictDecl(fn.attrOr("dictionary", "inherit")),
		Key:      fn.attrOr("key", name),
	}
	if hasOpValue {
		iv, err := parseInitialLiteral(opValue, value.UInt32)
		if err != nil {
			return nil, staticf("S3", name, "initial value %q cannot be parsed as uInt32: %v", opValue, err)
		}
		instr.Initial = &iv
	}
	if err := checkInitialRequirements(op, presence, instr.Initial, name); err != nil {
		return nil, err
	}
	return instr, nil
}

func buildGroup(fn *node) (*Instruction, error) {
	name := fn.attrOr("name", "")
	if name == "" {
		return nil, staticf("", "", "group missing required name attribute")
	}
	var id uint64
	if idStr, ok := fn.attr("id"); ok {
		var err error
		id, err = strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			return nil, staticf("", name, "field id %q is not an unsigned integer", idStr)
		}
	}
	presence, err := parsePresence(fn.attrOr("presence", "mandatory"))
	if err != nil {
		return nil, err
	}
	instr := &Instruction{
		Tag:      TagGroup,
		ID:       uint32(id),
		Name:     name,
		Presence: presence,
		DictDecl: parseDictDecl(fn.attrOr("dictionary", "inherit")),
		TypeRef:  parseTypeRef(fn.attrOr("typeRef", "")),
		Key:      fn.attrOr("key", name),
	}
	for _, c := range fn.Children {
		ci, err := buildInstruction(c)
		if err != nil {
			return nil, err
		}
		instr.Children = append(instr.Children, ci)
	}
	return instr, nil
}

func buildTemplateRef(fn *node) (*Instruction, error) {
	name := fn.attrOr("name", "")
	return &Instruction{
		Tag:     TagTemplateRef,
		Name:    name,
		RefName: name,
	}, nil
}
