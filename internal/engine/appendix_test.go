package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
)

func TestAppendixMandatoryDecimal(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="MandatoryDecimal">
			<decimal id="1" name="Value"/>
		</template>
	</templates>`)

	store := dict.New()
	r := bitio.NewReader([]byte{0xc0, 0x81, 0x82, 0x39, 0x45, 0xa3})
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, store, r, sink))

	assert.Equal(t, "MandatoryDecimal", sink.Root.TemplateName)
	v := sink.Root.Values["Value"]
	require.NotNil(t, v)
	assert.Equal(t, int32(2), v.Dec.Exponent)
	assert.Equal(t, int64(942755), v.Dec.Mantissa)

	encStore := dict.New()
	w := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w, NewTreeSource(sink.Root)))
	assert.Equal(t, []byte{0xc0, 0x81, 0x82, 0x39, 0x45, 0xa3}, w.Bytes())
}

func TestAppendixConstantOperatorOptional(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="6" name="ConstOpt">
			<uInt32 id="1" name="Value" presence="optional"><constant value="7"/></uInt32>
		</template>
	</templates>`)

	present := dict.New()
	r := bitio.NewReader([]byte{0xe0, 0x86})
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, present, r, sink))
	v := sink.Root.Values["Value"]
	require.NotNil(t, v)
	assert.Equal(t, uint64(7), v.U)

	absent := dict.New()
	r2 := bitio.NewReader([]byte{0xc0, 0x86})
	sink2 := NewTreeSink()
	require.NoError(t, Decode(ts, absent, r2, sink2))
	assert.Nil(t, sink2.Root.Values["Value"])
}

func TestAppendixCopyOperatorMandatory(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="9" name="CopyString">
			<string id="1" name="Symbol"><copy/></string>
		</template>
	</templates>`)

	store := dict.New()

	r1 := bitio.NewReader([]byte{0xe0, 0x89, 0x43, 0x4d, 0xc5})
	sink1 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r1, sink1))
	assert.Equal(t, "CME", sink1.Root.Values["Symbol"].Str)

	r2 := bitio.NewReader([]byte{0x80})
	sink2 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r2, sink2))
	assert.Equal(t, "CME", sink2.Root.Values["Symbol"].Str)

	r3 := bitio.NewReader([]byte{0xa0, 0x49, 0x53, 0xc5})
	sink3 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r3, sink3))
	assert.Equal(t, "ISE", sink3.Root.Values["Symbol"].Str)
}

func TestAppendixDeltaOnString(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="15" name="DeltaString">
			<string id="1" name="Symbol"><delta/></string>
		</template>
	</templates>`)

	store := dict.New()

	r1 := bitio.NewReader([]byte{0xc0, 0x8f, 0x80, 0x47, 0x45, 0x48, 0xb6})
	sink1 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r1, sink1))
	assert.Equal(t, "GEH6", sink1.Root.Values["Symbol"].Str)

	r2 := bitio.NewReader([]byte{0x80, 0x82, 0x4d, 0xb6})
	sink2 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r2, sink2))
	assert.Equal(t, "GEM6", sink2.Root.Values["Symbol"].Str)

	r3 := bitio.NewReader([]byte{0x80, 0xfd, 0x45, 0xd3})
	sink3 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r3, sink3))
	assert.Equal(t, "ESM6", sink3.Root.Values["Symbol"].Str)

	r4 := bitio.NewReader([]byte{0x80, 0xff, 0x52, 0xd3})
	sink4 := NewTreeSink()
	require.NoError(t, Decode(ts, store, r4, sink4))
	assert.Equal(t, "RSESM6", sink4.Root.Values["Symbol"].Str)
}

func TestAppendixIncrementOperator(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="11" name="IncSeq">
			<uInt32 id="1" name="SeqNum"><increment/></uInt32>
		</template>
	</templates>`)

	store := dict.New()

	decode := func(buf []byte) uint64 {
		r := bitio.NewReader(buf)
		sink := NewTreeSink()
		require.NoError(t, Decode(ts, store, r, sink))
		return sink.Root.Values["SeqNum"].U
	}

	assert.Equal(t, uint64(0), decode([]byte{0xe0, 0x8b, 0x80}))
	assert.Equal(t, uint64(1), decode([]byte{0x80}))
	assert.Equal(t, uint64(2), decode([]byte{0x80}))
	assert.Equal(t, uint64(4), decode([]byte{0xa0, 0x84}))
	assert.Equal(t, uint64(5), decode([]byte{0x80}))
}

func TestAppendixDynamicTemplateRef(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="9" name="Outer">
			<uInt32 id="1" name="PreRefData"/>
			<templateRef/>
		</template>
		<template id="7" name="RefData">
			<uInt32 id="2" name="TestData"><copy/></uInt32>
		</template>
	</templates>`)

	store := dict.New()
	r := bitio.NewReader([]byte{0xc0, 0x89, 0x86, 0xe0, 0x87, 0x85})
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, store, r, sink))

	assert.Equal(t, "Outer", sink.Root.TemplateName)
	assert.Equal(t, uint64(6), sink.Root.Values["PreRefData"].U)
	require.Len(t, sink.Root.Refs, 1)
	assert.Equal(t, "RefData", sink.Root.Refs[0].TemplateName)
	assert.Equal(t, uint64(5), sink.Root.Refs[0].Values["TestData"].U)
}
