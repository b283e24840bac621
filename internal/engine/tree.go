package engine

import "fastcodec/internal/value"

// TreeNode is a generic in-memory message representation: the
// object-mapping bridge collaborator spec.md §6 calls out as out of
// engine's scope but necessary for anything above it (tests, the root
// fast.Codec convenience API) to exercise Sink/Source without a
// generated, template-specific message type.
type TreeNode struct {
	TemplateName string
	Values       map[string]*value.Value
	Groups       map[string]*TreeNode
	Sequences    map[string][]*TreeNode
	Refs         []*TreeNode

	refCursor int
}

// NewTreeNode returns an empty node ready for Values/Groups/Sequences/Refs
// to be filled in, either by hand or by a TreeSink during decode.
func NewTreeNode(templateName string) *TreeNode {
	return &TreeNode{
		TemplateName: templateName,
		Values:       make(map[string]*value.Value),
		Groups:       make(map[string]*TreeNode),
		Sequences:    make(map[string][]*TreeNode),
	}
}

// TreeSink builds a TreeNode tree as the decoder walks a message.
type TreeSink struct {
	Root  *TreeNode
	stack []*TreeNode
	seqs  []*seqBuild
}

type seqBuild struct {
	name  string
	items []*TreeNode
}

func NewTreeSink() *TreeSink { return &TreeSink{} }

func (s *TreeSink) top() *TreeNode { return s.stack[len(s.stack)-1] }

func (s *TreeSink) StartTemplate(id uint32, name string) {
	node := NewTreeNode(name)
	if len(s.stack) == 0 {
		s.Root = node
	} else {
		parent := s.top()
		parent.Refs = append(parent.Refs, node)
	}
	s.stack = append(s.stack, node)
}

func (s *TreeSink) StopTemplate() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *TreeSink) SetValue(id uint32, name string, v *value.Value) {
	s.top().Values[name] = v
}

func (s *TreeSink) StartSequence(id uint32, name string, length uint32) {
	s.seqs = append(s.seqs, &seqBuild{name: name})
}

func (s *TreeSink) StartSequenceItem(index int) {
	node := NewTreeNode("")
	s.seqs[len(s.seqs)-1].items = append(s.seqs[len(s.seqs)-1].items, node)
	s.stack = append(s.stack, node)
}

func (s *TreeSink) StopSequenceItem() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *TreeSink) StopSequence() {
	b := s.seqs[len(s.seqs)-1]
	s.seqs = s.seqs[:len(s.seqs)-1]
	parent := s.top()
	if b.items == nil {
		b.items = []*TreeNode{}
	}
	parent.Sequences[b.name] = b.items
}

func (s *TreeSink) StartGroup(name string) {
	node := NewTreeNode("")
	s.top().Groups[name] = node
	s.stack = append(s.stack, node)
}

func (s *TreeSink) StopGroup() {
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *TreeSink) StartTemplateRef(name string, dynamic bool) {
	// The node itself is created by the following StartTemplate call; this
	// callback exists purely so a caller that cares can observe the
	// static/dynamic distinction at the ref site.
}

func (s *TreeSink) StopTemplateRef() {}

// TreeSource replays a TreeNode tree to the encoder.
type TreeSource struct {
	stack []*TreeNode
	seqs  []*seqCursor
}

type seqCursor struct {
	items []*TreeNode
}

// NewTreeSource starts encoding from root as the outermost message.
func NewTreeSource(root *TreeNode) *TreeSource {
	return &TreeSource{stack: []*TreeNode{root}}
}

func (s *TreeSource) top() *TreeNode { return s.stack[len(s.stack)-1] }

func (s *TreeSource) TemplateName() string { return s.top().TemplateName }

func (s *TreeSource) GetValue(name string) *value.Value { return s.top().Values[name] }

func (s *TreeSource) SelectGroup(name string) bool {
	g, ok := s.top().Groups[name]
	if !ok {
		return false
	}
	s.stack = append(s.stack, g)
	return true
}

func (s *TreeSource) ReleaseGroup() { s.stack = s.stack[:len(s.stack)-1] }

func (s *TreeSource) SelectSequence(name string) (uint32, bool) {
	items, ok := s.top().Sequences[name]
	if !ok {
		return 0, false
	}
	s.seqs = append(s.seqs, &seqCursor{items: items})
	return uint32(len(items)), true
}

func (s *TreeSource) SelectSequenceItem(i int) {
	node := s.seqs[len(s.seqs)-1].items[i]
	s.stack = append(s.stack, node)
}

func (s *TreeSource) ReleaseSequenceItem() { s.stack = s.stack[:len(s.stack)-1] }

func (s *TreeSource) ReleaseSequence() { s.seqs = s.seqs[:len(s.seqs)-1] }

func (s *TreeSource) SelectTemplateRef(name string, dynamic bool) (string, bool) {
	parent := s.top()
	if parent.refCursor >= len(parent.Refs) {
		return "", false
	}
	node := parent.Refs[parent.refCursor]
	parent.refCursor++
	s.stack = append(s.stack, node)
	if dynamic {
		return node.TemplateName, true
	}
	return name, true
}

func (s *TreeSource) ReleaseTemplateRef() { s.stack = s.stack[:len(s.stack)-1] }
