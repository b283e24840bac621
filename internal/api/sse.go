package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fastcodec/internal/logging"
)

// sseEvent is one decoded message pushed to connected browsers.
type sseEvent struct {
	TemplateSet  string
	TemplateName string
	Data         interface{}
}

type sseClient struct {
	id     string
	events chan sseEvent
}

// eventHub fans decoded-message events out to every connected SSE client,
// ported near-verbatim from the teacher's api.eventHub (register/unregister/
// broadcast over channels, non-blocking send with drop-on-full).
type eventHub struct {
	clients    map[string]*sseClient
	register   chan *sseClient
	unregister chan *sseClient
	broadcast  chan sseEvent
	mu         sync.RWMutex
	done       chan struct{}
}

func newEventHub() *eventHub {
	h := &eventHub{
		clients:    make(map[string]*sseClient),
		register:   make(chan *sseClient),
		unregister: make(chan *sseClient),
		broadcast:  make(chan sseEvent, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *eventHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			h.mu.Unlock()
		case ev := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.events <- ev:
				default:
					logging.DebugLog("api", "sse client %s buffer full, dropping event", c.id)
				}
			}
			h.mu.RUnlock()
		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.events)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *eventHub) Broadcast(ev sseEvent) {
	select {
	case h.broadcast <- ev:
	default:
		logging.DebugLog("api", "sse broadcast channel full, dropping event")
	}
}

func (h *eventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *eventHub) Stop() { close(h.done) }

// handleSSE serves the live decode feed: every message handed to
// eventHub.Broadcast (from handleDecode, or through Server.Broadcast)
// streams to connected browsers as an event named after the decoded
// template, optionally filtered by the "templateSet" query param.
func (h *handlers) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	filter := r.URL.Query().Get("templateSet")

	client := &sseClient{id: fmt.Sprintf("sse-%d", time.Now().UnixNano()), events: make(chan sseEvent, 64)}
	h.hub.register <- client
	defer func() { h.hub.unregister <- client }()

	notify := r.Context().Done()
	fmt.Fprintf(w, "event: connected\ndata: {\"id\":%q}\n\n", client.id)
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-notify:
			return
		case ev, ok := <-client.events:
			if !ok {
				return
			}
			if filter != "" && ev.TemplateSet != filter {
				continue
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.TemplateName, data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
