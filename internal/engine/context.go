// Package engine implements the FAST codec engine (spec.md §4.5, §4.6): the
// stateful operator pipeline and the instruction-tree walker that drive
// decode and encode in lockstep. Grounded on the teacher's logix/tag.go
// read/write dispatch over a TagValue union, generalized from "one PLC tag
// request" to "one FAST field through the operator pipeline", and on
// logix/client.go's explicit context-stack bookkeeping around nested PLC
// routing paths, generalized to the four FAST context stacks (template id,
// dictionary scope, typeRef, presence map).
package engine

import (
	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/tmpl"
)

// Context is the per-message traversal state (spec.md §3 "Context
// (per-message)"): four stacks that grow at each scope boundary (template,
// group, sequence item, template-ref) and shrink on exit, plus the
// cross-message dictionary store.
type Context struct {
	Templates *tmpl.TemplateSet
	Store     *dict.Store

	templateIDs []uint32
	dictScopes  []dict.Scope
	typeNames   []string
	pmaps       []*bitio.PMap
}

// NewContext starts an empty context over the given compiled template set
// and cross-message store.
func NewContext(templates *tmpl.TemplateSet, store *dict.Store) *Context {
	return &Context{Templates: templates, Store: store}
}

func (c *Context) pushTemplateID(id uint32)  { c.templateIDs = append(c.templateIDs, id) }
func (c *Context) popTemplateID()            { c.templateIDs = c.templateIDs[:len(c.templateIDs)-1] }
func (c *Context) currentTemplateID() uint32 { return c.templateIDs[len(c.templateIDs)-1] }

func (c *Context) pushDictScope(s dict.Scope) { c.dictScopes = append(c.dictScopes, s) }
func (c *Context) popDictScope()              { c.dictScopes = c.dictScopes[:len(c.dictScopes)-1] }
func (c *Context) currentDictScope() dict.Scope {
	if len(c.dictScopes) == 0 {
		return dict.GlobalScope
	}
	return c.dictScopes[len(c.dictScopes)-1]
}

func (c *Context) pushTypeName(n string) { c.typeNames = append(c.typeNames, n) }
func (c *Context) popTypeName()          { c.typeNames = c.typeNames[:len(c.typeNames)-1] }
func (c *Context) currentTypeName() string {
	if len(c.typeNames) == 0 {
		return ""
	}
	return c.typeNames[len(c.typeNames)-1]
}

func (c *Context) pushPMap(p *bitio.PMap) { c.pmaps = append(c.pmaps, p) }
func (c *Context) popPMap()               { c.pmaps = c.pmaps[:len(c.pmaps)-1] }
func (c *Context) currentPMap() *bitio.PMap {
	return c.pmaps[len(c.pmaps)-1]
}

// resolveScope turns a parse-time dictionary declaration into a runtime
// scope (spec.md §4.4's table), consulting the ambient stack for
// inherit/template/type.
func resolveScope(dd tmpl.DictDecl, ctx *Context) dict.Scope {
	switch dd.Kind {
	case tmpl.DictGlobal:
		return dict.GlobalScope
	case tmpl.DictTemplate:
		return dict.TemplateScope(ctx.currentTemplateID())
	case tmpl.DictType:
		return dict.TypeScope(ctx.currentTypeName())
	case tmpl.DictUserDefined:
		return dict.UserDefinedScope(dd.Name)
	default: // tmpl.DictInherit
		return ctx.currentDictScope()
	}
}

// resolveTypeName returns the application-type name an instruction's own
// typeRef resolves to, falling back to the ambient name when the
// instruction declares no named typeRef of its own.
func resolveTypeName(instr *tmpl.Instruction, ctx *Context) string {
	if instr.TypeRef.Kind == tmpl.TypeRefNamed {
		return instr.TypeRef.Name
	}
	return ctx.currentTypeName()
}

func resolveTypeNameFromRef(ref tmpl.TypeRef, ctx *Context) string {
	if ref.Kind == tmpl.TypeRefNamed {
		return ref.Name
	}
	return ctx.currentTypeName()
}

// dictKeyFor builds the full dictionary key for an instruction at the
// current point in the traversal.
func dictKeyFor(instr *tmpl.Instruction, ctx *Context) dict.Key {
	return dict.Key{Scope: resolveScope(instr.DictDecl, ctx), Key: instr.Key}
}
