package bdaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	addr, err := Parse("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", addr.String())
}

func TestParseMalformed(t *testing.T) {
	cases := []string{"", "not-an-address", "AA:BB:CC:DD:EE", "GG:BB:CC:DD:EE:FF"}
	for _, c := range cases {
		_, err := Parse(c)
		assert.Errorf(t, err, "Parse(%q): expected error, got nil", c)
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	want, err := Parse("01:02:03:04:05:06")
	require.NoError(t, err)
	// Wire order (§6) is least-significant octet first; FromBytes takes
	// the raw 6-byte payload as it arrives on the wire.
	wire := []byte{0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	assert.Equal(t, want, FromBytes(wire))
}

func TestAddrIsComparable(t *testing.T) {
	a, err := Parse("11:22:33:44:55:66")
	require.NoError(t, err)
	b, err := Parse("11:22:33:44:55:66")
	require.NoError(t, err)
	c, err := Parse("66:55:44:33:22:11")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	m := map[Addr]int{a: 1}
	_, ok := m[b]
	assert.True(t, ok, "Addr not usable as a map key for equal values")
}
