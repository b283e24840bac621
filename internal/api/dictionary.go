package api

import fast "fastcodec"

// dictionarySnapshot renders a codec's dictionary entries as plain JSON
// scalars via value.Value's MarshalJSON.
func dictionarySnapshot(c *fast.Codec) map[string]interface{} {
	snap := c.DictionarySnapshot()
	out := make(map[string]interface{}, len(snap))
	for k, v := range snap {
		out[k] = v
	}
	return out
}
