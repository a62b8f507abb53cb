// Package setup implements the setup broker described in spec.md §4.5:
// the binding of (device, endpoint, negotiated preset, AVDTP stream) that
// represents an in-progress or active stream, plus the invariants in §3
// and the testable properties in §8 that govern its lifetime.
//
// Grounded on struct a2dp_setup and its GSList bookkeeping in
// original_source/android/a2dp.c.
package setup

import (
	"errors"

	"github.com/hmallat/a2dp-source/internal/bluetooth/device"
	"github.com/hmallat/a2dp-source/internal/bluetooth/endpoint"
	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
)

// Stream is the narrow handle this module holds for an AVDTP stream
// object — opaque here, owned by the avdtp package.
type Stream interface {
	ID() string
}

// ID identifies a setup within a coordinator's lifetime, for logging and
// for the arena-style lookup spec.md §9 calls for ("callback user-data
// carries the ID, lookups go through the arena").
type ID uint64

// Setup binds a device, an endpoint, a negotiated preset, and an AVDTP
// stream handle (spec.md §3 "Setup").
type Setup struct {
	ID       ID
	Device   *device.Device
	Endpoint *endpoint.Endpoint
	Preset   preset.Preset
	Stream   Stream
}

var (
	// ErrEndpointBusy is returned by Broker.Create when the endpoint
	// already has a live setup (spec.md §3: "at most one setup per
	// endpoint at a time").
	ErrEndpointBusy = errors.New("setup: endpoint already has an active setup")
	// ErrPairBusy guards spec.md §3's "at most one setup per
	// device-endpoint pair". Create checks it after ErrEndpointBusy, and a
	// pair's live setup always occupies its endpoint, so a repeated pair
	// is reported as ErrEndpointBusy.
	ErrPairBusy = errors.New("setup: device-endpoint pair already has an active setup")
)

type pairKey struct {
	addr string
	ep   endpoint.ID
}

// Broker owns the set of live setups and enforces the one-per-endpoint and
// one-per-device-endpoint-pair invariants (spec.md §3).
type Broker struct {
	byEndpoint map[endpoint.ID]*Setup
	byPair     map[pairKey]*Setup
	next       uint64
}

// NewBroker returns an empty setup broker.
func NewBroker() *Broker {
	return &Broker{
		byEndpoint: make(map[endpoint.ID]*Setup),
		byPair:     make(map[pairKey]*Setup),
	}
}

func keyOf(d *device.Device, ep *endpoint.Endpoint) pairKey {
	return pairKey{addr: d.Addr.String(), ep: ep.ID}
}

// Create binds a new setup for (dev, ep, preset, stream), rejecting the
// call if either the one-per-endpoint or one-per-device-endpoint-pair
// invariant would be violated. Per spec.md §3's device-state invariant,
// the caller must only call Create while dev.State == device.Connected.
func (b *Broker) Create(dev *device.Device, ep *endpoint.Endpoint, p preset.Preset, st Stream) (*Setup, error) {
	if _, ok := b.byEndpoint[ep.ID]; ok {
		return nil, ErrEndpointBusy
	}
	k := keyOf(dev, ep)
	if _, ok := b.byPair[k]; ok {
		return nil, ErrPairBusy
	}

	b.next++
	s := &Setup{ID: ID(b.next), Device: dev, Endpoint: ep, Preset: p, Stream: st}
	b.byEndpoint[ep.ID] = s
	b.byPair[k] = s
	return s, nil
}

// FindByEndpoint looks up the live setup for an endpoint ID, as used by
// the audio IPC handlers in spec.md §4.6 (OPEN_STREAM, CLOSE_STREAM,
// RESUME_STREAM, SUSPEND_STREAM) and the AVDTP indication handlers in
// §4.5 (open/start/suspend: "accept only if a setup exists for the
// endpoint ID").
func (b *Broker) FindByEndpoint(id endpoint.ID) (*Setup, bool) {
	s, ok := b.byEndpoint[id]
	return s, ok
}

// FindByDevice returns every live setup bound to dev — used when a device
// is torn down (spec.md S5: "a live setup, AVDTP disconnect callback
// fires... setup destroyed, device destroyed").
func (b *Broker) FindByDevice(dev *device.Device) []*Setup {
	var out []*Setup
	for _, s := range b.byEndpoint {
		if s.Device == dev {
			out = append(out, s)
		}
	}
	return out
}

// PresetFreed reports whether destroying s would free its preset, i.e.
// the preset is not reference-identical to (shared with) any entry in the
// endpoint's own preset list (spec.md §3 invariant, §8 property 6). With
// Go's GC there is no explicit free; this return value exists purely so
// callers and tests can observe the ownership decision spec.md describes.
func PresetFreed(s *Setup) bool {
	return !s.Endpoint.Presets.Contains(s.Preset)
}

// Destroy removes s from the broker. It is a no-op if s is already gone
// (idempotent, so confirmation-error paths that race a close/abort can
// call it freely).
func (b *Broker) Destroy(s *Setup) {
	if cur, ok := b.byEndpoint[s.Endpoint.ID]; !ok || cur != s {
		return
	}
	delete(b.byEndpoint, s.Endpoint.ID)
	delete(b.byPair, keyOf(s.Device, s.Endpoint))
}

// Len reports the number of live setups.
func (b *Broker) Len() int {
	return len(b.byEndpoint)
}
