// Package audioipc implements the audio IPC wire protocol described in
// spec.md §6/§4.6: OPEN/CLOSE (endpoint lifecycle) and
// OPEN_STREAM/CLOSE_STREAM/RESUME_STREAM/SUSPEND_STREAM (stream
// operations against an already-registered endpoint).
//
// ParsePresets's bounds-checking is grounded on parse_presets in
// original_source/android/a2dp.c: each preset is a one-byte length
// followed by that many bytes, packed back-to-back, and every step must
// be checked against the remaining buffer length before being trusted.
package audioipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/hmallat/a2dp-source/internal/bluetooth/codec"
	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
)

// Opcode tags a frame's command kind.
type Opcode uint8

const (
	OpOpen          Opcode = 0x01
	OpClose         Opcode = 0x02
	OpOpenStream    Opcode = 0x03
	OpCloseStream   Opcode = 0x04
	OpResumeStream  Opcode = 0x05
	OpSuspendStream Opcode = 0x06
)

// Status is the one-byte result carried in every response that doesn't
// itself carry a more specific payload.
type Status uint8

const (
	StatusSuccess Status = 0x00
	StatusFailed  Status = 0x01
)

// ErrMalformed is returned when a frame or its preset payload cannot be
// decoded — the audio IPC's IpcParseError (spec.md §7).
var ErrMalformed = errors.New("audioipc: malformed frame")

const headerLen = 3 // opcode(1) + payload length(2, little-endian)

// OpenRequest is a decoded OPEN command (spec.md §4.6: "parse the packed
// preset stream... the first preset becomes the endpoint's capabilities;
// the rest become preferred presets").
type OpenRequest struct {
	UUID    [16]byte
	Codec   codec.Type
	Presets preset.List
}

// ParsePresets decodes count back-to-back (length, bytes) blobs from buf,
// bounds-checking each step against the remaining buffer length. It fails
// on truncation, an empty preset, or trailing garbage — matching
// parse_presets's original behavior of rejecting any malformed stream
// outright rather than accepting a partial one.
func ParsePresets(buf []byte, count int) ([]preset.Preset, error) {
	out := make([]preset.Preset, 0, count)
	rest := buf
	for i := 0; i < count; i++ {
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: preset %d: truncated length prefix", ErrMalformed, i)
		}
		n := int(rest[0])
		rest = rest[1:]
		if n == 0 {
			return nil, fmt.Errorf("%w: preset %d: zero length", ErrMalformed, i)
		}
		if len(rest) < n {
			return nil, fmt.Errorf("%w: preset %d: declared %d bytes, only %d remain", ErrMalformed, i, n, len(rest))
		}
		out = append(out, preset.New(rest[:n]))
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d presets", ErrMalformed, len(rest), count)
	}
	return out, nil
}

// Conn frames audio IPC commands/responses over an underlying connection
// — normally a Unix domain socket.
type Conn struct {
	nc net.Conn
}

// NewConn wraps an accepted or dialed connection.
func NewConn(nc net.Conn) *Conn { return &Conn{nc: nc} }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// ReadFrame reads the next raw request frame, letting the caller
// dispatch on opcode before decoding a specific request shape (DecodeOpen,
// DecodeID).
func (c *Conn) ReadFrame() (Opcode, []byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(c.nc, hdr[:]); err != nil {
		return 0, nil, fmt.Errorf("audioipc: read header: %w", err)
	}
	op := Opcode(hdr[0])
	n := binary.LittleEndian.Uint16(hdr[1:3])
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(c.nc, payload); err != nil {
			return 0, nil, fmt.Errorf("audioipc: read payload: %w", err)
		}
	}
	return op, payload, nil
}

func (c *Conn) writeFrame(op Opcode, payload []byte) error {
	hdr := [headerLen]byte{byte(op)}
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(len(payload)))
	if _, err := c.nc.Write(hdr[:]); err != nil {
		return fmt.Errorf("audioipc: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := c.nc.Write(payload); err != nil {
			return fmt.Errorf("audioipc: write payload: %w", err)
		}
	}
	return nil
}

// ReadOpen reads and decodes the next frame as an OPEN request.
func (c *Conn) ReadOpen() (OpenRequest, error) {
	op, payload, err := c.ReadFrame()
	if err != nil {
		return OpenRequest{}, err
	}
	if op != OpOpen {
		return OpenRequest{}, fmt.Errorf("%w: expected OPEN, got opcode 0x%02x", ErrMalformed, op)
	}
	return DecodeOpen(payload)
}

// DecodeOpen decodes an OPEN request's payload (spec.md §6: "uuid(16) +
// codec(1) + count(1) + packed (len, bytes[len])·count").
func DecodeOpen(payload []byte) (OpenRequest, error) {
	if len(payload) < 18 {
		return OpenRequest{}, fmt.Errorf("%w: OPEN payload too short", ErrMalformed)
	}
	var req OpenRequest
	copy(req.UUID[:], payload[0:16])
	req.Codec = codec.Type(payload[16])
	count := int(payload[17])

	presets, err := ParsePresets(payload[18:], count)
	if err != nil {
		return OpenRequest{}, err
	}
	if len(presets) == 0 {
		return OpenRequest{}, fmt.Errorf("%w: OPEN with zero presets", ErrMalformed)
	}
	req.Presets = preset.List{Caps: presets[0], Preferred: presets[1:]}
	return req, nil
}

// ReadID reads and decodes the next frame as a single 4-byte
// little-endian endpoint ID — the shape of CLOSE, OPEN_STREAM,
// CLOSE_STREAM, RESUME_STREAM, and SUSPEND_STREAM requests.
func (c *Conn) ReadID() (Opcode, uint32, error) {
	op, payload, err := c.ReadFrame()
	if err != nil {
		return 0, 0, err
	}
	id, err := DecodeID(payload)
	return op, id, err
}

// DecodeID decodes a 4-byte little-endian endpoint ID payload.
func DecodeID(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("%w: expected 4-byte id, got %d bytes", ErrMalformed, len(payload))
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// WriteOpenResult answers OPEN with either a success status byte followed
// by the 4-byte little-endian endpoint ID, or a single failure status byte.
func (c *Conn) WriteOpenResult(id uint32, ok bool) error {
	if !ok {
		return c.writeFrame(OpOpen, []byte{byte(StatusFailed)})
	}
	payload := make([]byte, 5)
	payload[0] = byte(StatusSuccess)
	binary.LittleEndian.PutUint32(payload[1:], id)
	return c.writeFrame(OpOpen, payload)
}

// WriteStatus answers op (CLOSE, CLOSE_STREAM, RESUME_STREAM,
// SUSPEND_STREAM) with a status byte.
func (c *Conn) WriteStatus(op Opcode, st Status) error {
	return c.writeFrame(op, []byte{byte(st)})
}

// WriteStreamPreset answers OPEN_STREAM with the negotiated preset's
// length-prefixed bytes (spec.md §4.6: "respond with the negotiated
// preset (length + blob)").
func (c *Conn) WriteStreamPreset(p preset.Preset) error {
	payload := make([]byte, 1+len(p.Bytes))
	payload[0] = byte(len(p.Bytes))
	copy(payload[1:], p.Bytes)
	return c.writeFrame(OpOpenStream, payload)
}
