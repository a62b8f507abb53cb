package audioipc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
)

func TestParsePresetsHappyPath(t *testing.T) {
	// caps=0xFF,0xFF,0x77,0x35 ; pref=0x21,0x15,0x35,0x35 (spec.md §8 S1)
	buf := []byte{
		4, 0xFF, 0xFF, 0x77, 0x35,
		4, 0x21, 0x15, 0x35, 0x35,
	}
	presets, err := ParsePresets(buf, 2)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x77, 0x35}, presets[0].Bytes)
	assert.Equal(t, []byte{0x21, 0x15, 0x35, 0x35}, presets[1].Bytes)
}

func TestParsePresetsRejectsTruncatedLength(t *testing.T) {
	_, err := ParsePresets([]byte{4, 1, 2, 3}, 1)
	assert.Error(t, err, "expected error for a preset declaring more bytes than remain")
}

func TestParsePresetsRejectsEmptyPreset(t *testing.T) {
	_, err := ParsePresets([]byte{0}, 1)
	assert.Error(t, err, "expected error for a zero-length preset")
}

func TestParsePresetsRejectsTrailingGarbage(t *testing.T) {
	buf := []byte{2, 1, 2, 0xAA} // declares one 2-byte preset, one byte left over
	_, err := ParsePresets(buf, 1)
	assert.Error(t, err, "expected error for trailing bytes after the declared preset count")
}

func TestParsePresetsRejectsMissingLengthPrefix(t *testing.T) {
	_, err := ParsePresets(nil, 1)
	assert.Error(t, err, "expected error when the buffer is empty but a preset was requested")
}

func TestDecodeOpenRoundTrip(t *testing.T) {
	payload := append([]byte{}, make([]byte, 16)...) // uuid
	payload = append(payload, 0x00)                  // codec = SBC
	payload = append(payload, 2)                      // count
	payload = append(payload, 4, 0xFF, 0xFF, 0x77, 0x35)
	payload = append(payload, 4, 0x21, 0x15, 0x35, 0x35)

	req, err := DecodeOpen(payload)
	require.NoError(t, err)
	require.Len(t, req.Presets.Preferred, 1)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x77, 0x35}, req.Presets.Caps.Bytes)
}

func TestDecodeOpenRejectsTooShort(t *testing.T) {
	_, err := DecodeOpen(make([]byte, 10))
	assert.Error(t, err, "expected error for a payload shorter than the fixed uuid+codec+count header")
}

func TestDecodeOpenRejectsZeroPresets(t *testing.T) {
	payload := append(make([]byte, 16), 0x00, 0) // count = 0
	_, err := DecodeOpen(payload)
	assert.Error(t, err, "expected error for an OPEN with zero presets")
}

func TestDecodeID(t *testing.T) {
	id, err := DecodeID([]byte{0x2A, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = DecodeID([]byte{1, 2, 3})
	assert.Error(t, err, "expected error for a wrong-length id payload")
}

func TestConnRoundTripOpenAndStreamPreset(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sc := NewConn(server)
	cc := NewConn(client)

	done := make(chan error, 1)
	go func() {
		done <- cc.WriteOpenResult(7, true)
	}()

	op, payload, err := sc.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, OpOpen, op)
	require.NoError(t, <-done)
	require.Len(t, payload, 5)
	assert.Equal(t, StatusSuccess, Status(payload[0]))

	go func() {
		done <- sc.WriteStreamPreset(preset.New([]byte{0x21, 0x15, 0x35, 0x35}))
	}()
	op2, payload2, err := cc.ReadFrame()
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, OpOpenStream, op2)
	require.NotEmpty(t, payload2)
	assert.EqualValues(t, 4, payload2[0])
	assert.Equal(t, []byte{0x21, 0x15, 0x35, 0x35}, payload2[1:])
}
