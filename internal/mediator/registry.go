// Package mediator is the process-wide registry of active session gateways
// (C6) plus the thin admin HTTP surface used to spawn gateways and query
// their statistics. Grounded on original_source/src/activator.rs's
// Activator, whose read-then-write double-check pattern this reproduces
// over a sync.RWMutex-guarded map, and on the admin surface described in
// spec.md §4.6 (not literally present in the Rust source — main.rs only
// bound a trivial "/" route).
package mediator

import (
	"sync"

	"github.com/prekucki/gu-blender-mediator/internal/sessiongateway"
)

// Registry is the process-wide map from hub session id to the gateway
// owning it. The empty string key is reserved for the unattached default
// session started from the command line.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]*sessiongateway.Gateway
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]*sessiongateway.Gateway)}
}

// Register inserts gw under sessionID, replacing any previous entry.
func (r *Registry) Register(sessionID string, gw *sessiongateway.Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[sessionID] = gw
}

// Get returns the gateway for sessionID if it still exists and is alive.
// A dead gateway found during the read is removed under a write lock,
// mirroring Activator::session_gateway's double-check-locking pattern.
func (r *Registry) Get(sessionID string) (*sessiongateway.Gateway, bool) {
	r.mu.RLock()
	gw, ok := r.gateways[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if gw.Alive() {
		return gw, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.gateways[sessionID]
	if !ok {
		return nil, false
	}
	if cur.Alive() {
		return cur, true
	}
	delete(r.gateways, sessionID)
	return nil, false
}

// ActiveSessions returns every session id currently registered.
func (r *Registry) ActiveSessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.gateways))
	for id := range r.gateways {
		ids = append(ids, id)
	}
	return ids
}

// Unregister removes sessionID's entry unconditionally.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.gateways, sessionID)
}
