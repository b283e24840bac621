package fast

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"fastcodec/internal/engine"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

// TreeToJSON renders a decoded TreeNode as a plain JSON-friendly value:
// scalar fields marshal through value.Value's own MarshalJSON, groups and
// template refs become nested objects, sequences become arrays. Shared by
// internal/api's decode endpoint and the decode CLI subcommand.
func TreeToJSON(n *TreeNode) map[string]interface{} {
	out := make(map[string]interface{}, len(n.Values)+len(n.Groups)+len(n.Sequences))
	for name, v := range n.Values {
		out[name] = v
	}
	for name, g := range n.Groups {
		out[name] = TreeToJSON(g)
	}
	for name, items := range n.Sequences {
		arr := make([]map[string]interface{}, len(items))
		for i, item := range items {
			arr[i] = TreeToJSON(item)
		}
		out[name] = arr
	}
	for _, ref := range n.Refs {
		out[ref.TemplateName] = TreeToJSON(ref)
	}
	return out
}

// JSONToTree builds a TreeNode from a caller-supplied JSON object, guided
// by kindOf (typically a closure over a compiled Template's Instructions)
// so scalar JSON values decode into the correctly-typed value.Value for
// the encoder's operator pipeline. Fields kindOf doesn't recognize as
// scalar are left for the caller to wire as nested groups/sequences.
func JSONToTree(templateName string, fields map[string]interface{}, kindOf func(field string) (value.Kind, bool)) (*TreeNode, error) {
	node := engine.NewTreeNode(templateName)
	for name, raw := range fields {
		kind, ok := kindOf(name)
		if !ok {
			continue
		}
		v, err := jsonScalarToValue(raw, kind)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		node.Values[name] = &v
	}
	return node, nil
}

func jsonScalarToValue(raw interface{}, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.UInt32, value.UInt64:
		n, ok := raw.(json.Number)
		if !ok {
			return value.Value{}, fmt.Errorf("expected a number")
		}
		u, err := n.Int64()
		if err != nil || u < 0 {
			return value.Value{}, fmt.Errorf("expected a non-negative integer")
		}
		if kind == value.UInt32 {
			return value.NewUInt32(uint32(u)), nil
		}
		return value.NewUInt64(uint64(u)), nil
	case value.Int32, value.Int64:
		n, ok := raw.(json.Number)
		if !ok {
			return value.Value{}, fmt.Errorf("expected a number")
		}
		i, err := n.Int64()
		if err != nil {
			return value.Value{}, fmt.Errorf("expected an integer")
		}
		if kind == value.Int32 {
			return value.NewInt32(int32(i)), nil
		}
		return value.NewInt64(i), nil
	case value.DecimalKind:
		s, ok := raw.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected a decimal string")
		}
		d, err := value.ParseDecimal(s)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewDecimalValue(d), nil
	case value.AsciiString:
		s, ok := raw.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected a string")
		}
		return value.NewAscii(s), nil
	case value.UnicodeString:
		s, ok := raw.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected a string")
		}
		return value.NewUnicode(s), nil
	case value.BytesKind:
		s, ok := raw.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected a hex string")
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBytes(b), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported kind %v", kind)
	}
}

// KindOf returns a lookup closure over tpl's instructions, the shape
// JSONToTree needs to type scalar fields by name.
func KindOf(tpl *Template) func(field string) (value.Kind, bool) {
	return func(field string) (value.Kind, bool) {
		for _, instr := range tpl.Instructions {
			if instr.Name == field && (instr.Tag == tmpl.TagPrimitive || instr.Tag == tmpl.TagDecimal) {
				return instr.Kind, true
			}
		}
		return 0, false
	}
}
