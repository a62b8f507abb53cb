package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	p := New(src)
	src[0] = 0xFF
	assert.Equal(t, byte(1), p.Bytes[0], "Preset aliased caller's slice")
}

func TestEqual(t *testing.T) {
	a := New([]byte{1, 2, 3})
	b := New([]byte{1, 2, 3})
	c := New([]byte{1, 2, 4})
	d := New([]byte{1, 2})

	assert.True(t, a.Equal(b), "identical byte content compared unequal")
	assert.False(t, a.Equal(c), "differing byte content compared equal")
	assert.False(t, a.Equal(d), "differing lengths compared equal")
}

func TestListContains(t *testing.T) {
	l := List{
		Caps: New([]byte{0xFF, 0xFF, 0x77, 0x35}),
		Preferred: []Preset{
			New([]byte{0x21, 0x15, 0x35, 0x35}),
			New([]byte{0x20, 0x10, 0x20, 0x20}),
		},
	}

	assert.True(t, l.Contains(New([]byte{0x21, 0x15, 0x35, 0x35})), "Contains should find a preset equal to an entry in Preferred")
	assert.False(t, l.Contains(New([]byte{0x99, 0x99, 0x99, 0x99})), "Contains should not find an unrelated preset")
	assert.False(t, l.Contains(l.Caps), "Contains should not match against Caps, only Preferred")
}
