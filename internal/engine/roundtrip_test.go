package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastcodec/internal/bitio"
	"fastcodec/internal/dict"
	"fastcodec/internal/tmpl"
	"fastcodec/internal/value"
)

func mustCompile(t *testing.T, xmlDoc string) *tmpl.TemplateSet {
	t.Helper()
	ts, err := tmpl.Compile([]byte(xmlDoc))
	require.NoError(t, err)
	return ts
}

// encodeThenDecode runs one message through Encode and immediately back
// through Decode against fresh dictionary stores, the way spec.md §8's
// round-trip property is phrased: decode(encode(m)) == m.
func encodeThenDecode(t *testing.T, ts *tmpl.TemplateSet, in *TreeNode) *TreeNode {
	t.Helper()
	encStore := dict.New()
	w := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))

	decStore := dict.New()
	r := bitio.NewReader(w.Bytes())
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, decStore, r, sink))
	return sink.Root
}

func TestRoundTripMandatoryFields(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Order">
			<uInt32 id="2" name="Qty"/>
			<string id="3" name="Symbol"/>
		</template>
	</templates>`)

	in := NewTreeNode("Order")
	q := value.NewUInt32(100)
	sym := value.NewAscii("IBM")
	in.Values["Qty"] = &q
	in.Values["Symbol"] = &sym

	out := encodeThenDecode(t, ts, in)
	require.NotNil(t, out)
	assert.Equal(t, uint64(100), out.Values["Qty"].U)
	assert.Equal(t, "IBM", out.Values["Symbol"].Str)
}

func TestRoundTripCopyOperatorAcrossMessages(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Quote">
			<uInt32 id="1" name="Price"><copy/></uInt32>
		</template>
	</templates>`)

	encStore := dict.New()
	decStore := dict.New()

	send := func(v uint32) *TreeNode {
		w := bitio.NewWriter()
		in := NewTreeNode("Quote")
		val := value.NewUInt32(v)
		in.Values["Price"] = &val
		require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))

		sink := NewTreeSink()
		r := bitio.NewReader(w.Bytes())
		require.NoError(t, Decode(ts, decStore, r, sink))
		return sink.Root
	}

	out1 := send(100)
	assert.Equal(t, uint64(100), out1.Values["Price"].U)

	// Same value again: copy should choose the compact (bit=0) encoding but
	// still decode to the identical value.
	out2 := send(100)
	assert.Equal(t, uint64(100), out2.Values["Price"].U)

	out3 := send(105)
	assert.Equal(t, uint64(105), out3.Values["Price"].U)
}

func TestRoundTripIncrementOperatorSequence(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Tick">
			<uInt32 id="1" name="Seq"><increment value="1"/></uInt32>
		</template>
	</templates>`)

	encStore := dict.New()
	decStore := dict.New()

	var results []uint64
	for i := 0; i < 5; i++ {
		w := bitio.NewWriter()
		in := NewTreeNode("Tick")
		if i == 0 {
			v := value.NewUInt32(1)
			in.Values["Seq"] = &v
		} else {
			v := value.NewUInt32(uint32(i + 1))
			in.Values["Seq"] = &v
		}
		require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))

		sink := NewTreeSink()
		r := bitio.NewReader(w.Bytes())
		require.NoError(t, Decode(ts, decStore, r, sink))
		results = append(results, sink.Root.Values["Seq"].U)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, results)
}

func TestRoundTripStringDeltaOnSequence(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Names">
			<string id="1" name="Name"><delta/></string>
		</template>
	</templates>`)

	encStore := dict.New()
	decStore := dict.New()
	names := []string{"conservative", "conservation", "conserve"}
	var out []string
	for _, n := range names {
		w := bitio.NewWriter()
		in := NewTreeNode("Names")
		v := value.NewAscii(n)
		in.Values["Name"] = &v
		require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))

		sink := NewTreeSink()
		r := bitio.NewReader(w.Bytes())
		require.NoError(t, Decode(ts, decStore, r, sink))
		out = append(out, sink.Root.Values["Name"].Str)
	}
	assert.Equal(t, names, out)
}

func TestRoundTripDecimalIndependentDelta(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Px">
			<decimal id="1" name="Price">
				<exponent><delta/></exponent>
				<mantissa><delta/></mantissa>
			</decimal>
		</template>
	</templates>`)

	encStore := dict.New()
	decStore := dict.New()
	decimals := []value.Decimal{
		{Exponent: -2, Mantissa: 12345},
		{Exponent: -2, Mantissa: 12351},
		{Exponent: -2, Mantissa: 12399},
	}
	for _, d := range decimals {
		w := bitio.NewWriter()
		in := NewTreeNode("Px")
		v := value.NewDecimalValue(d)
		in.Values["Price"] = &v
		require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))

		sink := NewTreeSink()
		r := bitio.NewReader(w.Bytes())
		require.NoError(t, Decode(ts, decStore, r, sink))
		got := sink.Root.Values["Price"]
		require.NotNil(t, got)
		assert.Equal(t, value.Normalize(d.Mantissa, d.Exponent), got.Dec)
	}
}

func TestRoundTripOptionalGroup(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Msg">
			<group name="Extra" presence="optional">
				<uInt32 id="1" name="Code"/>
			</group>
		</template>
	</templates>`)

	encStore, decStore := dict.New(), dict.New()

	// Present.
	in := NewTreeNode("Msg")
	g := NewTreeNode("")
	c := value.NewUInt32(9)
	g.Values["Code"] = &c
	in.Groups["Extra"] = g
	w := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, decStore, bitio.NewReader(w.Bytes()), sink))
	require.Contains(t, sink.Root.Groups, "Extra")
	assert.Equal(t, uint64(9), sink.Root.Groups["Extra"].Values["Code"].U)

	// Absent.
	in2 := NewTreeNode("Msg")
	w2 := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w2, NewTreeSource(in2)))
	sink2 := NewTreeSink()
	require.NoError(t, Decode(ts, decStore, bitio.NewReader(w2.Bytes()), sink2))
	assert.NotContains(t, sink2.Root.Groups, "Extra")
}

func TestRoundTripSequence(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Book">
			<sequence name="Levels">
				<uInt32 id="1" name="Price"/>
			</sequence>
		</template>
	</templates>`)

	encStore, decStore := dict.New(), dict.New()
	in := NewTreeNode("Book")
	var items []*TreeNode
	for _, p := range []uint32{10, 20, 30} {
		item := NewTreeNode("")
		v := value.NewUInt32(p)
		item.Values["Price"] = &v
		items = append(items, item)
	}
	in.Sequences["Levels"] = items

	w := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, decStore, bitio.NewReader(w.Bytes()), sink))

	require.Len(t, sink.Root.Sequences["Levels"], 3)
	assert.Equal(t, uint64(10), sink.Root.Sequences["Levels"][0].Values["Price"].U)
	assert.Equal(t, uint64(20), sink.Root.Sequences["Levels"][1].Values["Price"].U)
	assert.Equal(t, uint64(30), sink.Root.Sequences["Levels"][2].Values["Price"].U)
}

func TestRoundTripStaticTemplateRef(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Header">
			<uInt32 id="1" name="Version"/>
		</template>
		<template id="2" name="Msg">
			<templateRef name="Header"/>
			<uInt32 id="2" name="Body"/>
		</template>
	</templates>`)

	encStore, decStore := dict.New(), dict.New()
	in := NewTreeNode("Msg")
	ver := value.NewUInt32(1)
	body := value.NewUInt32(42)
	in.Values["Body"] = &body
	header := NewTreeNode("Header")
	header.Values["Version"] = &ver
	in.Refs = append(in.Refs, header)

	w := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, decStore, bitio.NewReader(w.Bytes()), sink))

	require.Len(t, sink.Root.Refs, 1)
	assert.Equal(t, uint64(1), sink.Root.Refs[0].Values["Version"].U)
	assert.Equal(t, uint64(42), sink.Root.Values["Body"].U)
}

func TestRoundTripDynamicTemplateRef(t *testing.T) {
	ts := mustCompile(t, `<templates>
		<template id="1" name="Header">
			<uInt32 id="1" name="Version"/>
		</template>
		<template id="2" name="Msg">
			<templateRef/>
			<uInt32 id="2" name="Body"/>
		</template>
	</templates>`)

	encStore, decStore := dict.New(), dict.New()
	in := NewTreeNode("Msg")
	ver := value.NewUInt32(7)
	body := value.NewUInt32(99)
	in.Values["Body"] = &body
	header := NewTreeNode("Header")
	header.Values["Version"] = &ver
	in.Refs = append(in.Refs, header)

	w := bitio.NewWriter()
	require.NoError(t, Encode(ts, encStore, w, NewTreeSource(in)))
	sink := NewTreeSink()
	require.NoError(t, Decode(ts, decStore, bitio.NewReader(w.Bytes()), sink))

	require.Len(t, sink.Root.Refs, 1)
	assert.Equal(t, "Header", sink.Root.Refs[0].TemplateName)
	assert.Equal(t, uint64(7), sink.Root.Refs[0].Values["Version"].U)
	assert.Equal(t, uint64(99), sink.Root.Values["Body"].U)
}
