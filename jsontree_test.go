package fast

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastcodec/internal/value"
)

func TestTreeToJSONRendersScalarsGroupsAndSequences(t *testing.T) {
	root := NewTreeNode("Quote")
	sym := value.NewAscii("MSFT")
	root.Values["Symbol"] = &sym

	group := NewTreeNode("")
	px := value.NewUInt32(200)
	group.Values["Price"] = &px
	root.Groups["Detail"] = group

	item := NewTreeNode("")
	qty := value.NewUInt32(10)
	item.Values["Qty"] = &qty
	root.Sequences["Fills"] = []*TreeNode{item}

	out := TreeToJSON(root)
	data, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "MSFT", decoded["Symbol"])

	detail := decoded["Detail"].(map[string]interface{})
	assert.EqualValues(t, 200, detail["Price"])

	fills := decoded["Fills"].([]interface{})
	require.Len(t, fills, 1)
	assert.EqualValues(t, 10, fills[0].(map[string]interface{})["Qty"])
}

func TestJSONToTreeBuildsTypedValues(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)
	tpl := c.Templates().ByName["Quote"]

	var fields map[string]interface{}
	raw := []byte(`{"Symbol":"IBM","Price":101}`)
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	require.NoError(t, d.Decode(&fields))

	node, err := JSONToTree("Quote", fields, KindOf(tpl))
	require.NoError(t, err)
	assert.Equal(t, "IBM", node.Values["Symbol"].Str)
	assert.Equal(t, uint64(101), node.Values["Price"].U)
}

func TestJSONToTreeRejectsWrongShape(t *testing.T) {
	c, err := NewFromXML([]byte(quoteTemplates))
	require.NoError(t, err)
	tpl := c.Templates().ByName["Quote"]

	_, err = JSONToTree("Quote", map[string]interface{}{"Price": "not-a-number"}, KindOf(tpl))
	assert.Error(t, err)
}
