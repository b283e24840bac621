package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	fast "fastcodec"
	"fastcodec/internal/stream"
)

// handlers holds the API's shared state across requests.
type handlers struct {
	reg       *registry
	hub       *eventHub
	adminMW   Middleware
	streamMgr *stream.Manager
}

// router builds the chi mux: template set CRUD, decode/encode, the
// dictionary dump and the SSE feed. Upload/delete/reset are gated behind
// adminMW when the caller (internal/web) has installed a session-auth
// check; without one, they're open, matching the teacher's default of a
// REST server running with no auth layer until www wires one in.
func (h *handlers) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	gate := h.adminMW
	if gate == nil {
		gate = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/events", h.handleSSE)

	r.Route("/templatesets", func(r chi.Router) {
		r.Get("/", h.handleListTemplateSets)
		r.With(gate).Put("/{name}", h.handleUploadTemplateSet)
		r.With(gate).Delete("/{name}", h.handleDeleteTemplateSet)
		r.Post("/{name}/decode", h.handleDecode)
		r.Post("/{name}/encode", h.handleEncode)
		r.Get("/{name}/dictionary", h.handleDictionary)
		r.With(gate).Post("/{name}/reset", h.handleReset)
	})

	return r
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *handlers) handleListTemplateSets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.reg.Names())
}

// handleUploadTemplateSet compiles the request body as a FAST templates
// XML document and registers it under {name}, ready for decode/encode.
func (h *handlers) handleUploadTemplateSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}
	if err := h.reg.Put(name, body); err != nil {
		h.writeError(w, http.StatusBadRequest, "compiling template set: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleDeleteTemplateSet(w http.ResponseWriter, r *http.Request) {
	h.reg.Remove(chi.URLParam(r, "name"))
	w.WriteHeader(http.StatusNoContent)
}

// handleDecode reads one FAST message from the request body and responds
// with its decoded value tree as JSON.
func (h *handlers) handleDecode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := h.reg.mustGet(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}

	treeSink := fast.NewTreeSink()
	e.mu.Lock()
	consumed, decErr := e.codec.Decode(body, treeSink)
	e.mu.Unlock()

	if decErr != nil {
		h.writeError(w, http.StatusUnprocessableEntity, decErr.Error())
		return
	}

	out := fast.TreeToJSON(treeSink.Root)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"template": treeSink.Root.TemplateName,
		"consumed": consumed,
		"message":  out,
	})

	h.hub.Broadcast(sseEvent{TemplateSet: name, TemplateName: treeSink.Root.TemplateName, Data: out})
	if h.streamMgr != nil {
		h.streamMgr.Publish(context.Background(), treeSink.Root.TemplateName, out)
	}
}

// handleEncode builds one FAST message from the request's JSON value tree
// and responds with its wire bytes.
func (h *handlers) handleEncode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := h.reg.mustGet(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		Template string                 `json:"template"`
		Message  map[string]interface{} `json:"message"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	e.mu.Lock()
	ts := e.codec.Templates()
	tpl, ok := ts.ByName[req.Template]
	if !ok {
		e.mu.Unlock()
		h.writeError(w, http.StatusBadRequest, "unknown template "+req.Template)
		return
	}
	node, buildErr := fast.JSONToTree(req.Template, req.Message, fast.KindOf(tpl))
	if buildErr != nil {
		e.mu.Unlock()
		h.writeError(w, http.StatusBadRequest, buildErr.Error())
		return
	}

	source := fast.NewTreeSource(node)
	payload, encErr := e.codec.Encode(source)
	e.mu.Unlock()

	if encErr != nil {
		h.writeError(w, http.StatusUnprocessableEntity, encErr.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// handleDictionary dumps the codec's current tri-state dictionary as a
// flat map of assigned scope/key entries.
func (h *handlers) handleDictionary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := h.reg.mustGet(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	e.mu.Lock()
	snapshot := dictionarySnapshot(e.codec)
	e.mu.Unlock()

	h.writeJSON(w, http.StatusOK, snapshot)
}

// handleReset clears the codec's dictionary, the HTTP-layer equivalent of
// a stream reconnect or a detected sequence gap.
func (h *handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e, err := h.reg.mustGet(name)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	e.mu.Lock()
	e.codec.Reset()
	e.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}
