// Package codec implements the codec validator registry described in
// spec.md §4.1: for each known codec type, it checks whether a peer-proposed
// configuration is a subset of a set of local capabilities.
//
// Grounded on the switch in original_source/android/a2dp.c's
// check_capabilities()/sbc_check_config(), generalized into a dispatch table
// keyed by codec byte (spec.md §9, "heterogeneous codecs").
package codec

import "errors"

// Type is the one-byte codec type enumerator carried in AVDTP MEDIA_CODEC
// capabilities (A2DP_CODEC_SBC == 0x00 and so on).
type Type uint8

// SBC is the only codec this module ships a concrete validator for — the
// registry itself is open to more entries (spec.md §9).
const SBC Type = 0x00

// ErrInvalidConfig is returned when a peer configuration is rejected by a
// codec's validator, or when no validator is registered for the codec type.
var ErrInvalidConfig = errors.New("codec: invalid configuration")

// Validator checks a peer-proposed configuration blob against a local
// capabilities blob for one codec type.
type Validator func(localCaps, peerConfig []byte) error

// Registry dispatches codec bytes to validators.
type Registry struct {
	validators map[Type]Validator
}

// NewRegistry returns a Registry pre-populated with the SBC validator.
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[Type]Validator)}
	r.Register(SBC, ValidateSBC)
	return r
}

// Register installs (or replaces) the validator for a codec type.
func (r *Registry) Register(t Type, v Validator) {
	r.validators[t] = v
}

// Validate runs the registered validator for t. Unknown codec types fail
// with ErrInvalidConfig, per spec.md §4.1.
func (r *Registry) Validate(t Type, localCaps, peerConfig []byte) error {
	v, ok := r.validators[t]
	if !ok {
		return ErrInvalidConfig
	}
	return v(localCaps, peerConfig)
}

// sbcConfigLen is sizeof(a2dp_sbc_t): frequency/channel-mode nibble byte,
// block-length/subbands/allocation-method byte, min bitpool, max bitpool.
const sbcConfigLen = 4

// SBC capability/config byte layout (bitmasks), per spec.md §4.1.
const (
	sbcFrequencyMask       = 0xF0
	sbcChannelModeMask     = 0x0F
	sbcBlockLengthMask     = 0xF0
	sbcSubbandsMask        = 0x0C
	sbcAllocationMethodMask = 0x03
)

// ValidateSBC implements the SBC validator: lengths must match and equal
// sbcConfigLen, and every masked field — frequency, channel mode, block
// length, subbands, allocation method — must have a nonzero bitwise AND
// between the local and peer value (spec.md §4.1, §8 property 7).
//
// Bitpool (index 2 and 3) is not validated, matching sbc_check_config in
// original_source/android/a2dp.c. That same original checks never masked
// subbands despite defining a mask for it; this validator does check it —
// spec.md §8 property 7 requires it, so the omission is not carried forward.
func ValidateSBC(localCaps, peerConfig []byte) error {
	if len(peerConfig) != len(localCaps) || len(peerConfig) != sbcConfigLen {
		return ErrInvalidConfig
	}

	capByte0, confByte0 := localCaps[0], peerConfig[0]
	capByte1, confByte1 := localCaps[1], peerConfig[1]

	if capByte0&sbcFrequencyMask&confByte0 == 0 {
		return ErrInvalidConfig
	}
	if capByte0&sbcChannelModeMask&confByte0 == 0 {
		return ErrInvalidConfig
	}
	if capByte1&sbcBlockLengthMask&confByte1 == 0 {
		return ErrInvalidConfig
	}
	if capByte1&sbcSubbandsMask&confByte1 == 0 {
		return ErrInvalidConfig
	}
	if capByte1&sbcAllocationMethodMask&confByte1 == 0 {
		return ErrInvalidConfig
	}

	return nil
}
