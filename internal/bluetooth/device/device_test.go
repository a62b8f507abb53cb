package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
)

func addr(t *testing.T, s string) bdaddr.Addr {
	t.Helper()
	a, err := bdaddr.Parse(s)
	require.NoError(t, err)
	return a
}

func TestOutboundConnectLifecycle(t *testing.T) {
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, Disconnected, d.State)

	changed, err := d.Apply(EvLocalConnect)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Connecting, d.State)

	changed, err = d.Apply(EvSignalingUp)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Connected, d.State)
}

func TestConnectFailureGoesStraightToDisconnected(t *testing.T) {
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	_, _ = d.Apply(EvLocalConnect)

	changed, err := d.Apply(EvConnectFail)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Disconnected, d.State)
}

func TestDisconnectWhileConnectingIsSingleHop(t *testing.T) {
	// spec.md §5: a local disconnect on a pre-signaling channel (io set,
	// no session) transitions straight to Disconnected — never through
	// Disconnecting — so exactly one CONN_STATE notification fires
	// (spec.md §8 property 4, scenario S4).
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	_, _ = d.Apply(EvLocalConnect)

	changed, err := d.Apply(EvLocalDisconnectPreSignaling)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Disconnected, d.State)
}

func TestDisconnectWhileConnectedGoesThroughDisconnecting(t *testing.T) {
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	_, _ = d.Apply(EvLocalConnect)
	_, _ = d.Apply(EvSignalingUp)

	changed, err := d.Apply(EvLocalDisconnectSignaled)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Disconnecting, d.State)

	changed, err = d.Apply(EvDisconnectCallback)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Disconnected, d.State)
}

func TestRemoteDropWhileConnected(t *testing.T) {
	// spec.md S5: an unprompted AVDTP disconnect callback while Connected
	// (no local disconnect request) also reaches Disconnected directly.
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	_, _ = d.Apply(EvLocalConnect)
	_, _ = d.Apply(EvSignalingUp)

	changed, err := d.Apply(EvDisconnectCallback)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Disconnected, d.State)
}

func TestInvalidTransitionRejected(t *testing.T) {
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	changed, err := d.Apply(EvSignalingUp)
	assert.ErrorIs(t, err, ErrNoTransition)
	assert.False(t, changed)
}

func TestTableFindAndRemove(t *testing.T) {
	tbl := NewTable()
	a := addr(t, "AA:BB:CC:DD:EE:FF")
	d := New(a)
	tbl.Put(d)

	got, ok := tbl.Find(a)
	require.True(t, ok)
	assert.Equal(t, d, got)
	assert.Equal(t, 1, tbl.Len())

	tbl.Remove(d)
	_, ok = tbl.Find(a)
	assert.False(t, ok, "Find after Remove: still present")
	assert.Equal(t, 0, tbl.Len())
}

type fakeSession struct{}

func (fakeSession) Shutdown() {}

func TestTableFindBySession(t *testing.T) {
	tbl := NewTable()
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	tbl.Put(d)

	sess := fakeSession{}
	tbl.BindSession(d, sess)

	got, ok := tbl.FindBySession(sess)
	require.True(t, ok)
	assert.Equal(t, d, got)
}

func TestApplyIsNoopWhenReenteringSameState(t *testing.T) {
	// No table edge maps a state back to itself, so this exercises the
	// defensive branch in Apply directly (spec.md §8 property 4).
	d := New(addr(t, "AA:BB:CC:DD:EE:FF"))
	transitionsTable = append(transitionsTable, transition{From: Disconnected, Event: EvConnectFail, To: Disconnected})
	defer func() { transitionsTable = transitionsTable[:len(transitionsTable)-1] }()

	changed, err := d.Apply(EvConnectFail)
	require.NoError(t, err)
	assert.False(t, changed, "Apply reported changed=true for a From==To edge")
}
