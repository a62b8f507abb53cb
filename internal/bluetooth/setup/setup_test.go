package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/bluetooth/codec"
	"github.com/hmallat/a2dp-source/internal/bluetooth/device"
	"github.com/hmallat/a2dp-source/internal/bluetooth/endpoint"
	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
)

type fakeSEP struct{}

func (fakeSEP) Unregister() {}

type fakeStream struct{ id string }

func (s fakeStream) ID() string { return s.id }

func newDevice(t *testing.T) *device.Device {
	t.Helper()
	a, err := bdaddr.Parse("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	d := device.New(a)
	_, _ = d.Apply(device.EvLocalConnect)
	_, _ = d.Apply(device.EvSignalingUp)
	return d
}

func newEndpoint(t *testing.T, preferred ...preset.Preset) *endpoint.Endpoint {
	t.Helper()
	r := endpoint.NewRegistry()
	return r.Register(codec.SBC, fakeSEP{}, preset.List{
		Caps:      preset.New([]byte{0xFF, 0xFF, 0x77, 0x35}),
		Preferred: preferred,
	})
}

func TestCreateAndFindByEndpoint(t *testing.T) {
	b := NewBroker()
	d := newDevice(t)
	ep := newEndpoint(t)
	p := preset.New([]byte{0x21, 0x15, 0x35, 0x35})
	st := fakeStream{id: "s1"}

	s, err := b.Create(d, ep, p, st)
	require.NoError(t, err)

	got, ok := b.FindByEndpoint(ep.ID)
	require.True(t, ok)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, b.Len())
}

func TestCreateRejectsSecondSetupOnSameEndpoint(t *testing.T) {
	b := NewBroker()
	d1 := newDevice(t)
	d2Addr, err := bdaddr.Parse("11:22:33:44:55:66")
	require.NoError(t, err)
	d2 := device.New(d2Addr)
	_, _ = d2.Apply(device.EvLocalConnect)
	_, _ = d2.Apply(device.EvSignalingUp)
	ep := newEndpoint(t)
	p := preset.New([]byte{0x21, 0x15, 0x35, 0x35})

	_, err = b.Create(d1, ep, p, fakeStream{id: "s1"})
	require.NoError(t, err)

	_, err = b.Create(d2, ep, p, fakeStream{id: "s2"})
	assert.ErrorIs(t, err, ErrEndpointBusy)
}

func TestCreateRejectsSecondSetupOnSamePair(t *testing.T) {
	b := NewBroker()
	d := newDevice(t)
	r := endpoint.NewRegistry()
	ep1 := r.Register(codec.SBC, fakeSEP{}, preset.List{Caps: preset.New([]byte{0xFF, 0xFF, 0x77, 0x35})})
	p := preset.New([]byte{0x21, 0x15, 0x35, 0x35})

	_, err := b.Create(d, ep1, p, fakeStream{id: "s1"})
	require.NoError(t, err)

	// Same (device, endpoint) pair again. The pair's setup also occupies
	// the endpoint, and Create checks the endpoint first, so the second
	// call is rejected with ErrEndpointBusy rather than ErrPairBusy.
	_, err = b.Create(d, ep1, p, fakeStream{id: "s2"})
	assert.ErrorIs(t, err, ErrEndpointBusy)
}

func TestDestroyRemovesSetup(t *testing.T) {
	b := NewBroker()
	d := newDevice(t)
	ep := newEndpoint(t)
	p := preset.New([]byte{0x21, 0x15, 0x35, 0x35})

	s, err := b.Create(d, ep, p, fakeStream{id: "s1"})
	require.NoError(t, err)

	b.Destroy(s)
	_, ok := b.FindByEndpoint(ep.ID)
	assert.False(t, ok, "setup still findable after Destroy")
	assert.Equal(t, 0, b.Len())
}

func TestDestroyIdempotent(t *testing.T) {
	b := NewBroker()
	d := newDevice(t)
	ep := newEndpoint(t)
	p := preset.New([]byte{0x21, 0x15, 0x35, 0x35})
	s, err := b.Create(d, ep, p, fakeStream{id: "s1"})
	require.NoError(t, err)

	b.Destroy(s)
	b.Destroy(s) // must not panic or corrupt state
	assert.Equal(t, 0, b.Len())
}

func TestFindByDevice(t *testing.T) {
	b := NewBroker()
	d := newDevice(t)
	ep := newEndpoint(t)
	p := preset.New([]byte{0x21, 0x15, 0x35, 0x35})
	s, err := b.Create(d, ep, p, fakeStream{id: "s1"})
	require.NoError(t, err)

	found := b.FindByDevice(d)
	require.Len(t, found, 1)
	assert.Equal(t, s, found[0])
}

func TestPresetFreedOwnershipRule(t *testing.T) {
	// spec.md §3/§8 property 6: a setup's preset is freed iff it is not
	// reference-identical to an entry in its endpoint's own preset list.
	sharedPreset := preset.New([]byte{0x21, 0x15, 0x35, 0x35})
	ep := newEndpoint(t, sharedPreset)

	b := NewBroker()
	d := newDevice(t)

	sShared, err := b.Create(d, ep, sharedPreset, fakeStream{id: "shared"})
	require.NoError(t, err)
	assert.False(t, PresetFreed(sShared), "setup using an endpoint-owned preset should not be reported as freed")
	b.Destroy(sShared)

	remotePreset := preset.New([]byte{0x22, 0x16, 0x36, 0x36})
	sRemote, err := b.Create(d, ep, remotePreset, fakeStream{id: "remote"})
	require.NoError(t, err)
	assert.True(t, PresetFreed(sRemote), "setup using a remote-proposed preset not in the endpoint's list should be reported as freed")
}
