package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastcodec/internal/fasterr"
)

func mustCompile(t *testing.T, xmlDoc string) *TemplateSet {
	t.Helper()
	ts, err := Compile([]byte(xmlDoc))
	require.NoError(t, err)
	return ts
}

func mustBeStaticError(t *testing.T, err error) *fasterr.Error {
	t.Helper()
	ferr, ok := err.(*fasterr.Error)
	require.True(t, ok, "expected *fasterr.Error, got %T", err)
	assert.Equal(t, fasterr.Static, ferr.Kind)
	return ferr
}

func TestCompileSimpleTemplateNoPmapNeeded(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="Simple">
			<uInt32 id="1" name="Value"/>
		</template>
	</templates>`)
	tpl := ts.ByName["Simple"]
	require.Len(t, tpl.Instructions, 1)
	assert.False(t, tpl.Instructions[0].RequiresBit)
	assert.False(t, tpl.RequiresOuterPmap())
}

func TestCompileConstantOptionalRequiresBit(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T">
			<uInt32 id="1" name="Value" presence="optional"><constant value="7"/></uInt32>
		</template>
	</templates>`)
	f := ts.ByName["T"].Instructions[0]
	assert.True(t, f.RequiresBit)
	assert.True(t, ts.ByName["T"].RequiresOuterPmap())
}

func TestCompileConstantWithoutInitialFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="T">
			<uInt32 id="1" name="Value"><constant/></uInt32>
		</template>
	</templates>`))
	require.Error(t, err)
	ferr := mustBeStaticError(t, err)
	assert.Equal(t, "S4", string(ferr.Code))
}

func TestCompileMandatoryDefaultWithoutInitialFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="T">
			<uInt32 id="1" name="Value"><default/></uInt32>
		</template>
	</templates>`))
	require.Error(t, err)
	ferr := mustBeStaticError(t, err)
	assert.Equal(t, "S5", string(ferr.Code))
}

func TestCompileOperatorTypeMismatchFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="T">
			<uInt32 id="1" name="Value"><tail/></uInt32>
		</template>
	</templates>`))
	require.Error(t, err)
	ferr := mustBeStaticError(t, err)
	assert.Equal(t, "S2", string(ferr.Code))
}

func TestCompileDuplicateTemplateNameFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="T"><uInt32 id="1" name="A"/></template>
		<template name="T"><uInt32 id="2" name="B"/></template>
	</templates>`))
	require.Error(t, err)
}

func TestCompileDuplicateTemplateIDFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template id="5" name="A"><uInt32 id="1" name="X"/></template>
		<template id="5" name="B"><uInt32 id="2" name="Y"/></template>
	</templates>`))
	require.Error(t, err)
}

func TestCompileMissingIDOnPrimitiveFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="T"><uInt32 name="A"/></template>
	</templates>`))
	require.Error(t, err)
}

func TestCompileUnknownTypeTagFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="T"><bogus id="1" name="A"/></template>
	</templates>`))
	require.Error(t, err)
}

func TestCompileDecimalImplicitSubcomponents(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T"><decimal id="1" name="Value"/></template>
	</templates>`)
	d := ts.ByName["T"].Instructions[0]
	require.Len(t, d.Children, 2)
	assert.Equal(t, OpNone, d.Operator)
	assert.Equal(t, OpNone, d.Children[0].Operator)
	assert.Equal(t, OpNone, d.Children[1].Operator)
	assert.False(t, d.RequiresBit)
	assert.False(t, d.HasPmap)
	assert.Equal(t, "Value:exponent", d.Children[0].Key)
	assert.Equal(t, "Value:mantissa", d.Children[1].Key)
}

func TestCompileDecimalDeltaPushedToSubcomponents(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T"><decimal id="1" name="Value"><delta/></decimal></template>
	</templates>`)
	d := ts.ByName["T"].Instructions[0]
	assert.Equal(t, OpNone, d.Operator)
	assert.Equal(t, OpDelta, d.Children[0].Operator)
	assert.Equal(t, OpDelta, d.Children[1].Operator)
	assert.False(t, d.RequiresBit, "delta never requires a bit, at decimal level or pushed down")
	assert.False(t, d.HasPmap)
}

func TestCompileDecimalCopyStaysAtDecimalLevel(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T"><decimal id="1" name="Value"><copy value="1.5"/></decimal></template>
	</templates>`)
	d := ts.ByName["T"].Instructions[0]
	assert.Equal(t, OpCopy, d.Operator)
	assert.Equal(t, OpNone, d.Children[0].Operator)
	assert.Equal(t, OpNone, d.Children[1].Operator)
	assert.True(t, d.RequiresBit)
	assert.False(t, d.HasPmap)
	require.NotNil(t, d.Initial)
}

func TestCompileDecimalExplicitSubcomponents(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T">
			<decimal id="1" name="Value">
				<exponent><copy/></exponent>
				<mantissa><delta/></mantissa>
			</decimal>
		</template>
	</templates>`)
	d := ts.ByName["T"].Instructions[0]
	assert.Equal(t, OpCopy, d.Children[0].Operator)
	assert.Equal(t, OpDelta, d.Children[1].Operator)
	assert.True(t, d.RequiresBit, "exponent's copy operator requires a bit")
	assert.True(t, d.HasPmap)
}

func TestCompileSequenceImplicitLength(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T">
			<sequence name="Legs">
				<uInt32 id="1" name="Qty"/>
			</sequence>
		</template>
	</templates>`)
	seq := ts.ByName["T"].Instructions[0]
	require.Equal(t, TagSequence, seq.Tag)
	length := seq.SequenceLength()
	require.NotNil(t, length)
	assert.Equal(t, "Legs:length", length.Name)
	assert.Len(t, seq.SequenceBody(), 1)
}

func TestCompileGroupOptionalAlwaysRequiresBit(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="T">
			<group name="G" presence="optional">
				<uInt32 id="1" name="A"/>
			</group>
		</template>
	</templates>`)
	g := ts.ByName["T"].Instructions[0]
	assert.True(t, g.RequiresBit)
	assert.False(t, g.HasPmap, "mandatory-none child never requires a bit")
}

func TestCompileStaticTemplateRefPropagatesOuterPmap(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="RefTarget">
			<uInt32 id="1" name="Value" presence="optional"><constant value="7"/></uInt32>
		</template>
		<template name="Outer">
			<templateRef name="RefTarget"/>
		</template>
	</templates>`)
	refInstr := ts.ByName["Outer"].Instructions[0]
	assert.True(t, refInstr.RequiresBit)
	assert.True(t, refInstr.HasPmap)
}

func TestCompileDynamicTemplateRefNeverRequiresBit(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template name="Outer">
			<templateRef/>
		</template>
	</templates>`)
	refInstr := ts.ByName["Outer"].Instructions[0]
	assert.False(t, refInstr.RequiresBit)
	assert.False(t, refInstr.HasPmap)
	assert.Empty(t, refInstr.RefName)
}

func TestCompileStaticTemplateRefToUnknownTemplateFails(t *testing.T) {
	_, err := Compile([]byte(`<templates>
		<template name="Outer"><templateRef name="Missing"/></template>
	</templates>`))
	require.Error(t, err)
}
