package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fastcodec/internal/value"
)

func TestTriState(t *testing.T) {
	s := New()
	k := Key{Scope: GlobalScope, Key: "Price"}

	state, _ := s.Get(k)
	assert.Equal(t, Undefined, state)

	s.SetEmpty(k)
	state, _ = s.Get(k)
	assert.Equal(t, Empty, state)

	s.SetValue(k, value.NewUInt32(7))
	state, v := s.Get(k)
	assert.Equal(t, Assigned, state)
	assert.True(t, v.Equal(value.NewUInt32(7)))
}

func TestResetDropsAllEntries(t *testing.T) {
	s := New()
	k := Key{Scope: TemplateScope(3), Key: "Symbol"}
	s.SetValue(k, value.NewAscii("CME"))
	s.Reset()
	state, _ := s.Get(k)
	assert.Equal(t, Undefined, state)
}

func TestEqual(t *testing.T) {
	a, b := New(), New()
	k := Key{Scope: TypeScope(""), Key: "X"}
	a.SetValue(k, value.NewInt32(5))
	assert.False(t, a.Equal(b))
	b.SetValue(k, value.NewInt32(5))
	assert.True(t, a.Equal(b))
}

func TestTypeScopeAnySentinel(t *testing.T) {
	assert.Equal(t, AnyTypeSentinel, TypeScope("").Name)
	assert.Equal(t, "Quote", TypeScope("Quote").Name)
}
