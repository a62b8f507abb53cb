package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hmallat/a2dp-source/internal/bluetooth/codec"
	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
)

type fakeSEP struct{ unregistered bool }

func (f *fakeSEP) Unregister() { f.unregistered = true }

func TestRegisterAllocatesMonotonicIDs(t *testing.T) {
	r := NewRegistry()
	sep1 := &fakeSEP{}
	sep2 := &fakeSEP{}

	ep1 := r.Register(codec.SBC, sep1, preset.List{})
	ep2 := r.Register(codec.SBC, sep2, preset.List{})

	assert.EqualValues(t, 1, ep1.ID)
	assert.EqualValues(t, 2, ep2.ID)
}

func TestIDNotReusedAfterUnregister(t *testing.T) {
	// spec.md §3 invariant / §9 redesign: freed IDs are never reused
	// within a process lifetime, unlike the original's count+1 scheme.
	r := NewRegistry()
	ep1 := r.Register(codec.SBC, &fakeSEP{}, preset.List{})
	r.Unregister(ep1)
	ep2 := r.Register(codec.SBC, &fakeSEP{}, preset.List{})

	assert.NotEqual(t, ep1.ID, ep2.ID, "endpoint ID reused after unregister")
	assert.EqualValues(t, 2, ep2.ID, "endpoint ID after unregister should come from the monotonic counter")
}

func TestUnregisterCallsSEPUnregister(t *testing.T) {
	r := NewRegistry()
	sep := &fakeSEP{}
	ep := r.Register(codec.SBC, sep, preset.List{})

	r.Unregister(ep)
	assert.True(t, sep.unregistered, "Unregister did not call through to the SEP handle")

	_, err := r.Find(ep.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	sep := &fakeSEP{}
	ep := r.Register(codec.SBC, sep, preset.List{})

	r.Unregister(ep)
	sep.unregistered = false
	r.Unregister(ep) // second call must be a no-op, not call Unregister again
	assert.False(t, sep.unregistered, "second Unregister call re-invoked SEP.Unregister")
}

func TestFindNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Find(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLenAndEach(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	ep1 := r.Register(codec.SBC, &fakeSEP{}, preset.List{})
	r.Register(codec.SBC, &fakeSEP{}, preset.List{})
	assert.Equal(t, 2, r.Len())

	r.Unregister(ep1)
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Each(), 1)
}
