// Package api serves the FAST codec over HTTP: upload a template set,
// decode/encode messages against it, and inspect the live dictionary.
// Grounded on the teacher's chi-based api/router.go, generalized from PLC
// tag trees to FAST message trees.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fastcodec/internal/logging"
	"fastcodec/internal/stream"
)

// Middleware wraps an http.Handler, the shape internal/web's session-auth
// gate uses so this package never has to import it directly.
type Middleware func(http.Handler) http.Handler

// Server is the HTTP API server: template set registry, decode/encode
// handlers and the dictionary inspection endpoint, fronted by a chi
// router. Modeled on the teacher's api.Server lifecycle (Start/Stop over
// an http.Server with a graceful shutdown timeout).
type Server struct {
	addr      string
	reg       *registry
	hub       *eventHub
	adminMW   Middleware
	streamMgr *stream.Manager
	server    *http.Server
	running   bool
	mu        sync.RWMutex
}

// NewServer builds a Server listening on addr, with an empty template set
// registry.
func NewServer(addr string) *Server {
	return &Server{addr: addr, reg: newRegistry(), hub: newEventHub()}
}

// SetStreamManager wires a stream.Manager so every decoded message also
// fans out to its configured Kafka/Valkey/MQTT publishers, not just
// connected SSE clients. Must be called before Start.
func (s *Server) SetStreamManager(mgr *stream.Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamMgr = mgr
}

// LoadTemplateSet compiles xmlDoc and registers it under name, for
// startup-time preloading of configured template sets before Start is
// called — the non-HTTP equivalent of PUT /templatesets/{name}.
func (s *Server) LoadTemplateSet(name string, xmlDoc []byte) error {
	return s.reg.Put(name, xmlDoc)
}

// SetAdminMiddleware gates template upload, delete and dictionary reset
// behind mw — internal/web's session-auth check in a running service, a
// no-op passthrough in tests. Must be called before Start.
func (s *Server) SetAdminMiddleware(mw Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminMW = mw
}

// IsRunning reports whether the server is currently accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Start begins serving the HTTP API.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	h := &handlers{reg: s.reg, hub: s.hub, adminMW: s.adminMW, streamMgr: s.streamMgr}
	s.server = &http.Server{Addr: s.addr, Handler: h.router()}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.DebugLog("api", "server stopped: %v", err)
		}
	}()

	s.running = true
	logging.DebugLog("api", "listening on %s", s.addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.running = false
	s.hub.Stop()
	s.server = nil
	return err
}

// Address returns the server's listen address as a URL.
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s", s.addr)
}

// Broadcast pushes a decoded message onto every connected SSE client, for
// callers outside this package that decode messages themselves;
// handleDecode feeds the hub directly and does not go through it.
func (s *Server) Broadcast(templateSet, templateName string, payload map[string]interface{}) {
	s.hub.Broadcast(sseEvent{TemplateSet: templateSet, TemplateName: templateName, Data: payload})
}
