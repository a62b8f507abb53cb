// Package endpoint implements the local SEP registry described in spec.md
// §4.3: registration with the AVDTP engine, stable ID allocation, and
// lookup by ID for the audio IPC layer.
//
// Grounded on register_endpoint/unregister_endpoint/find_endpoint in
// original_source/android/a2dp.c, with the ID-allocation redesign from
// spec.md §9 applied: a monotonically increasing counter replaces the
// original's order-dependent count+1 scheme.
package endpoint

import (
	"errors"
	"sync/atomic"

	"github.com/hmallat/a2dp-source/internal/bluetooth/codec"
	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
)

// ID is a stable, process-lifetime-unique endpoint identifier, 1-based
// (spec.md §3 "Endpoint").
type ID uint32

// ErrNotFound is returned by Registry.Find when no live endpoint has the
// requested ID.
var ErrNotFound = errors.New("endpoint: not found")

// SEP is the narrow handle this module holds for the SEP object registered
// with the AVDTP engine — opaque here, owned and interpreted by the
// avdtp package (spec.md §1, "AVDTP engine... external collaborator").
type SEP interface {
	// Unregister removes the SEP registration from the AVDTP engine.
	Unregister()
}

// Endpoint is a single registered local SEP.
type Endpoint struct {
	ID      ID
	Codec   codec.Type
	SEP     SEP
	Presets preset.List
}

// Registry tracks live endpoints and allocates their IDs.
//
// Per spec.md §3's invariant ("endpoint IDs never collide among live
// endpoints; freed IDs are not reused within a process lifetime"), next is
// a monotonically increasing counter, never reset on unregister.
type Registry struct {
	byID map[ID]*Endpoint
	next uint32
}

// NewRegistry returns an empty endpoint registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]*Endpoint)}
}

// Register allocates a new endpoint ID, installs the SEP handle and the
// codec/preset list, and returns the new Endpoint. The caller is expected
// to have already registered the SEP object with the AVDTP engine (spec.md
// §4.3's "registers... with AVDTP, wiring in the indication and
// confirmation vtables" happens one layer up, in the coordinator, since
// the vtables close over the Registry itself).
func (r *Registry) Register(c codec.Type, sep SEP, presets preset.List) *Endpoint {
	id := ID(atomic.AddUint32(&r.next, 1))
	ep := &Endpoint{ID: id, Codec: c, SEP: sep, Presets: presets}
	r.byID[id] = ep
	return ep
}

// Unregister removes ep from the registry and unregisters its SEP from the
// AVDTP engine. It is a no-op if ep is already gone.
func (r *Registry) Unregister(ep *Endpoint) {
	if _, ok := r.byID[ep.ID]; !ok {
		return
	}
	delete(r.byID, ep.ID)
	ep.SEP.Unregister()
}

// Find looks up a live endpoint by ID (spec.md §4.3 "find(id): linear
// lookup by ID" — backed here by a map since nothing requires the original
// linked-list traversal order).
func (r *Registry) Find(id ID) (*Endpoint, error) {
	ep, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ep, nil
}

// Len reports the number of live endpoints.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Each returns every live endpoint. The order is unspecified.
func (r *Registry) Each() []*Endpoint {
	out := make([]*Endpoint, 0, len(r.byID))
	for _, ep := range r.byID {
		out = append(out, ep)
	}
	return out
}
