package tmpl

import (
	"encoding/xml"
	"io"
	"strings"
)

// node is a generic XML element tree used to walk the FAST templates
// document without a rigid per-element Go struct for every field/operator
// shape — the FAST template grammar nests operator and type elements
// polymorphically in a way that a single fixed struct can't capture
// cleanly. This mirrors the teacher's approach of parsing a raw byte
// layout (logix/template.go's parseDefinition) into a generic member list
// before interpreting type-specific meaning.
type node struct {
	Name     string
	Attrs    map[string]string
	Children []*node
}

func (n *node) attr(name string) (string, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

func (n *node) attrOr(name, def string) string {
	if v, ok := n.attr(name); ok {
		return v
	}
	return def
}

// parseXML decodes a FAST templates document into a generic node tree
// rooted at <templates>, using encoding/xml's streaming token decoder
// (see DESIGN.md for why no third-party XML library is used: the FAST
// template grammar is a small, fixed schema and none of the example
// repos pull in a third-party XML parser).
func parseXML(data []byte) (*node, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	var stack []*node
	var root *node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, staticf("", "", "malformed templates XML: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{Name: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			if root == nil {
				root = n
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if root == nil {
		return nil, errNoRoot
	}
	return root, nil
}
