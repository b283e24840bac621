package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteTemplates = `<templates>
	<template id="1" name="Quote">
		<string id="1" name="Symbol"/>
		<uInt32 id="2" name="Price"/>
	</template>
</templates>`

func newTestHandlers() *handlers {
	return &handlers{reg: newRegistry(), hub: newEventHub()}
}

func TestHandleUploadAndListTemplateSets(t *testing.T) {
	h := newTestHandlers()
	r := h.router()

	req := httptest.NewRequest(http.MethodPut, "/templatesets/quote", bytes.NewBufferString(quoteTemplates))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/templatesets/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"quote"}, names)
}

func TestHandleUploadRejectsMalformedTemplates(t *testing.T) {
	h := newTestHandlers()
	r := h.router()

	req := httptest.NewRequest(http.MethodPut, "/templatesets/bad", bytes.NewBufferString("<templates><template><string name=\"X\"/></template></templates>"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEncodeThenDecodeRoundTrip(t *testing.T) {
	h := newTestHandlers()
	r := h.router()

	req := httptest.NewRequest(http.MethodPut, "/templatesets/quote", bytes.NewBufferString(quoteTemplates))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	encodeBody := `{"template":"Quote","message":{"Symbol":"IBM","Price":101}}`
	req = httptest.NewRequest(http.MethodPost, "/templatesets/quote/encode", bytes.NewBufferString(encodeBody))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	wire := w.Body.Bytes()
	require.NotEmpty(t, wire)

	req = httptest.NewRequest(http.MethodPost, "/templatesets/quote/decode", bytes.NewReader(wire))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Template string                 `json:"template"`
		Consumed int                    `json:"consumed"`
		Message  map[string]interface{} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Quote", resp.Template)
	assert.Equal(t, "IBM", resp.Message["Symbol"])
	assert.EqualValues(t, 101, resp.Message["Price"])
}

func TestHandleDictionaryAndReset(t *testing.T) {
	h := newTestHandlers()
	r := h.router()

	req := httptest.NewRequest(http.MethodPut, "/templatesets/quote", bytes.NewBufferString(quoteTemplates))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	encodeBody := `{"template":"Quote","message":{"Symbol":"IBM","Price":101}}`
	req = httptest.NewRequest(http.MethodPost, "/templatesets/quote/encode", bytes.NewBufferString(encodeBody))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/templatesets/quote/dictionary", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var dict map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dict))
	assert.NotEmpty(t, dict)

	req = httptest.NewRequest(http.MethodPost, "/templatesets/quote/reset", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleDecodeUnknownTemplateSet(t *testing.T) {
	h := newTestHandlers()
	r := h.router()

	req := httptest.NewRequest(http.MethodPost, "/templatesets/missing/decode", bytes.NewReader(nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
