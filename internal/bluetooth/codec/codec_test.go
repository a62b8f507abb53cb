package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteCaps/prefPreset mirror spec.md §8 S1's literal vectors: remote caps
// 0x21,0x15,0x77,0x35 accepted against the preferred preset
// 0x21,0x15,0x35,0x35.
var (
	remoteCaps = []byte{0x21, 0x15, 0x77, 0x35}
	prefPreset = []byte{0x21, 0x15, 0x35, 0x35}
)

func TestValidateSBCAcceptsOverlappingMasks(t *testing.T) {
	assert.NoError(t, ValidateSBC(remoteCaps, prefPreset))
}

func TestValidateSBCRejectsLengthMismatch(t *testing.T) {
	assert.ErrorIs(t, ValidateSBC(remoteCaps, []byte{0x21, 0x15, 0x35}), ErrInvalidConfig, "short peer config")
	assert.ErrorIs(t, ValidateSBC([]byte{0x21, 0x15, 0x35}, prefPreset), ErrInvalidConfig, "short local caps")
}

func TestValidateSBCRejectsNonOverlappingField(t *testing.T) {
	// Zero out the frequency/channel-mode byte entirely on one side: no
	// field can overlap, so the first check (frequency) must fail.
	localCaps := []byte{0x00, 0x15, 0x77, 0x35}
	assert.ErrorIs(t, ValidateSBC(localCaps, prefPreset), ErrInvalidConfig, "non-overlapping frequency")
}

func TestValidateSBCRejectsNonOverlappingSubbands(t *testing.T) {
	// spec.md §4.1/§8 property 7 require subbands to be checked (unlike
	// the original C's documented omission, spec.md §9). Byte 1 here
	// shares a block-length nibble but zeroes the subbands bits (0x0C).
	localCaps := []byte{0x21, 0x30, 0x77, 0x35}
	peerConfig := []byte{0x21, 0x30, 0x35, 0x35}
	assert.ErrorIs(t, ValidateSBC(localCaps, peerConfig), ErrInvalidConfig, "non-overlapping subbands must be checked")
}

func TestValidateSBCBitpoolNotValidated(t *testing.T) {
	// Bitpool (bytes 2,3) are not validated, matching the original C
	// (spec.md §4.1 "Bitpool is not currently validated").
	localCaps := []byte{0x21, 0x15, 0x02, 0x35}
	peerConfig := []byte{0x21, 0x15, 0xFF, 0xFF}
	assert.NoError(t, ValidateSBC(localCaps, peerConfig), "bitpool mismatch should not affect validation")
}

func TestRegistryUnknownCodecRejected(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Validate(Type(0xFF), remoteCaps, prefPreset), ErrInvalidConfig)
}

func TestRegistrySBCWiredByDefault(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Validate(SBC, remoteCaps, prefPreset))
}

func TestRegistryRegisterOverridesValidator(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(SBC, func(localCaps, peerConfig []byte) error {
		called = true
		return nil
	})
	require.NoError(t, r.Validate(SBC, remoteCaps, prefPreset))
	assert.True(t, called, "replaced validator was not invoked")
}
