// Package fast implements a FAST (FIX Adapted for STreaming) protocol
// codec: compile a templates XML document into a Codec, then Decode and
// Encode individual messages against it. A Codec holds its own dictionary
// store, so one Codec belongs to one connection or session (see Codec's
// doc comment); callers that need concurrency run one per session,
// sharing one immutable *TemplateSet (Codec.Templates) through
// NewFromTemplateSet.
package fast

import (
	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/engine"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

// Sink and Source are the decode/encode callback contracts (spec.md §6),
// re-exported from internal/engine so callers never need to import an
// internal package directly.
type Sink = engine.Sink
type Source = engine.Source

// TreeNode, TreeSink and TreeSource are the in-memory object-mapping
// bridge spec.md §1 calls out as an external collaborator to the core
// codec: a ready-made Sink/Source pair for callers that don't generate a
// template-specific message type (the CLI and HTTP API use these).
type TreeNode = engine.TreeNode
type TreeSink = engine.TreeSink
type TreeSource = engine.TreeSource

// Template and TemplateSet are re-exported from internal/tmpl for callers
// (internal/api, internal/tui, the CLI) that need to introspect a compiled
// set's instructions without importing an internal package.
type Template = tmpl.Template
type TemplateSet = tmpl.TemplateSet

var NewTreeNode = engine.NewTreeNode
var NewTreeSink = engine.NewTreeSink
var NewTreeSource = engine.NewTreeSource

// Codec is one compiled template set paired with its own dictionary
// store. It is not safe for concurrent use (spec.md §5); callers that
// need concurrency run one Codec per connection/session, sharing one
// immutable *tmpl.TemplateSet (from Templates) across them via
// NewFromTemplateSet.
type Codec struct {
	templates *tmpl.TemplateSet
	store     *dict.Store
}

// NewFromXML compiles a FAST 1.1 templates XML document and returns a
// Codec ready to decode/encode messages against it, with a fresh
// dictionary.
func NewFromXML(xmlDoc []byte) (*Codec, error) {
	ts, err := tmpl.Compile(xmlDoc)
	if err != nil {
		return nil, err
	}
	return &Codec{templates: ts, store: dict.New()}, nil
}

// NewFromTemplateSet builds a Codec over an already-compiled, possibly
// shared, template set with a fresh dictionary, so several Codecs can run
// against one compiled set without recompiling it.
func NewFromTemplateSet(ts *tmpl.TemplateSet) *Codec {
	return &Codec{templates: ts, store: dict.New()}
}

// Templates exposes the compiled template set, e.g. for dictionary/schema
// introspection endpoints.
func (c *Codec) Templates() *tmpl.TemplateSet { return c.templates }

// Reset clears the codec's dictionary store (spec.md §4.4's explicit-reset
// contract), used after a detected gap or on stream reconnect.
func (c *Codec) Reset() { c.store.Reset() }

// DictionarySnapshot returns a point-in-time copy of the codec's assigned
// dictionary entries, for external inspection (internal/api,
// internal/tui) without exposing the
// dictionary store's internal Key/Scope types.
func (c *Codec) DictionarySnapshot() map[string]value.Value { return c.store.Snapshot() }

// Decode reads exactly one FAST message from buf, driving sink through
// its instruction tree, and returns the number of bytes consumed.
// fasterr.ErrEof signals a clean end of stream between messages;
// fasterr.ErrUnexpectedEof signals truncation mid-message.
func (c *Codec) Decode(buf []byte, sink Sink) (consumed int, err error) {
	r := bitio.NewReader(buf)
	if err := engine.Decode(c.templates, c.store, r, sink); err != nil {
		return r.Pos(), err
	}
	return r.Pos(), nil
}

// Encode pulls one message's values from source and returns its FAST wire
// encoding.
func (c *Codec) Encode(source Source) ([]byte, error) {
	w := bitio.NewWriter()
	if err := engine.Encode(c.templates, c.store, w, source); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
