package fast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastcodec/internal/fasterr"
	"fastcodec/internal/value"
)

const quoteTemplates = `<templates>
	<template id="1" name="Quote">
		<string id="1" name="Symbol"/>
		<uInt32 id="2" name="Price"><copy/></uInt32>
	</template>
</templates>`

func TestNewFromXMLRejectsMalformedTemplates(t *testing.T) {
	_, err := NewFromXML([]byte(`<templates><template name="NoID"><uInt32 id="1" name="X"/></template></templates>`))
	require.Error(t, err)
}

func TestCodecDecodeEncodeRoundTrip(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)

	in := NewTreeNode("Quote")
	sym := value.NewAscii("MSFT")
	price := value.NewUInt32(200)
	in.Values["Symbol"] = &sym
	in.Values["Price"] = &price

	buf, err := c.Encode(NewTreeSource(in))
	require.NoError(t, err)

	sink := NewTreeSink()
	consumed, err := c.Decode(buf, sink)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, "MSFT", sink.Root.Values["Symbol"].Str)
	assert.Equal(t, uint64(200), sink.Root.Values["Price"].U)
}

func TestCodecSharesDictionaryAcrossMessages(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)

	send := func(price uint32) *TreeNode {
		in := NewTreeNode("Quote")
		sym := value.NewAscii("MSFT")
		p := value.NewUInt32(price)
		in.Values["Symbol"] = &sym
		in.Values["Price"] = &p
		buf, err := c.Encode(NewTreeSource(in))
		require.NoError(t, err)

		sink := NewTreeSink()
		_, err = c.Decode(buf, sink)
		require.NoError(t, err)
		return sink.Root
	}

	out1 := send(200)
	assert.Equal(t, uint64(200), out1.Values["Price"].U)
	// Encode and Decode share the Codec's one dictionary store, and both
	// write the same values into it; this exercises that a second call,
	// where the copy operator finds Price already assigned, still
	// round-trips.
	out2 := send(200)
	assert.Equal(t, uint64(200), out2.Values["Price"].U)
}

func TestCodecResetClearsDictionary(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)

	in := NewTreeNode("Quote")
	sym := value.NewAscii("MSFT")
	price := value.NewUInt32(200)
	in.Values["Symbol"] = &sym
	in.Values["Price"] = &price
	_, err = c.Encode(NewTreeSource(in))
	require.NoError(t, err)

	c.Reset()
	assert.Empty(t, c.DictionarySnapshot())

	// After Reset, Price's copy dictionary entry is Undefined again, so a
	// message that omits the mandatory copy field cannot be encoded.
	in2 := NewTreeNode("Quote")
	sym2 := value.NewAscii("MSFT")
	in2.Values["Symbol"] = &sym2
	_, err = c.Encode(NewTreeSource(in2))
	require.Error(t, err)
}

func TestCodecDecodeEmptyBufferIsEof(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)

	sink := NewTreeSink()
	_, err = c.Decode(nil, sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fasterr.ErrEof))
}

func TestCodecDecodeTruncatedMessageIsUnexpectedEof(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)

	in := NewTreeNode("Quote")
	sym := value.NewAscii("MSFT")
	price := value.NewUInt32(200)
	in.Values["Symbol"] = &sym
	in.Values["Price"] = &price
	buf, err := c.Encode(NewTreeSource(in))
	require.NoError(t, err)
	require.Greater(t, len(buf), 1)

	sink := NewTreeSink()
	_, err = c.Decode(buf[:len(buf)-1], sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fasterr.ErrUnexpectedEof))
}

func TestCodecTemplatesExposesCompiledSet(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)
	ts := c.Templates()
	require.NotNil(t, ts)
	tpl, ok := ts.ByName["Quote"]
	require.True(t, ok)
	assert.Equal(t, uint32(1), tpl.ID)
}
