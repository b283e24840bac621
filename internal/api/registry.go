package api

import (
	"fmt"
	"sync"

	fast "fastcodec"
)

// entry pairs one named template set's compiled codec with its own lock:
// per spec.md §5 a Codec is not safe for concurrent use, so each named
// set serializes the requests that share its dictionary, mirroring the
// teacher's one-PLC-session-per-connection model (logix/client.go) scaled
// down to one codec-session per uploaded template set.
type entry struct {
	mu    sync.Mutex
	codec *fast.Codec
}

// registry holds the API's named template sets, keyed by the name given
// at upload time.
type registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*entry)}
}

// Put compiles xmlDoc and stores it under name, replacing any existing
// entry of the same name with a fresh dictionary.
func (r *registry) Put(name string, xmlDoc []byte) error {
	codec, err := fast.NewFromXML(xmlDoc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{codec: codec}
	return nil
}

// Get returns the entry for name, or nil if it doesn't exist.
func (r *registry) Get(name string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name]
}

// Names lists every registered template set name.
func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// Remove drops a named template set.
func (r *registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

func (r *registry) mustGet(name string) (*entry, error) {
	e := r.Get(name)
	if e == nil {
		return nil, fmt.Errorf("template set %q not found", name)
	}
	return e, nil
}
