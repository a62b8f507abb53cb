// Package hal implements the HAL IPC wire protocol described in spec.md
// §6: binary-framed commands (A2DP_CONNECT, A2DP_DISCONNECT) each with one
// status response, plus an asynchronous CONN_STATE notification.
//
// SPEC_FULL.md §6 calls for a Unix-domain-socket transport framed with
// encoding/binary, little-endian, fixed headers — the same shape as the
// original HAL IPC referenced from android/hal-ipc.h in original_source/.
package hal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
)

// Opcode tags a frame's command/event kind.
type Opcode uint8

const (
	OpA2DPConnect    Opcode = 0x01
	OpA2DPDisconnect Opcode = 0x02
	OpConnState      Opcode = 0x81 // event, high bit set by convention
)

// Status is the one-byte result carried in every command response.
type Status uint8

const (
	StatusSuccess Status = 0x00
	StatusFailed  Status = 0x01
)

// ConnState mirrors device.State for the wire (spec.md §6: "state{0=
// Disconnected,1=Connecting,2=Connected,3=Disconnecting}").
type ConnState uint8

const (
	ConnStateDisconnected ConnState = iota
	ConnStateConnecting
	ConnStateConnected
	ConnStateDisconnecting
)

// ErrMalformed is returned when a frame cannot be decoded.
var ErrMalformed = errors.New("hal: malformed frame")

// headerLen is opcode(1) + payload length(2, little-endian).
const headerLen = 3

// Command is a decoded inbound HAL IPC request.
type Command struct {
	Op   Opcode
	Addr bdaddr.Addr
	// TxID correlates this command's eventual response in logs (not part
	// of the wire format, which is single-command-in-flight per
	// connection; carried only for structured logging, per
	// SPEC_FULL.md's DOMAIN STACK wiring of google/uuid).
	TxID uuid.UUID
}

// Conn frames HAL IPC commands/responses/events over an underlying
// connection — normally a Unix domain socket.
type Conn struct {
	nc net.Conn
}

// NewConn wraps an accepted or dialed connection.
func NewConn(nc net.Conn) *Conn { return &Conn{nc: nc} }

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

// ReadCommand blocks for the next framed request.
func (c *Conn) ReadCommand() (Command, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(c.nc, hdr[:]); err != nil {
		return Command{}, fmt.Errorf("hal: read header: %w", err)
	}
	op := Opcode(hdr[0])
	n := binary.LittleEndian.Uint16(hdr[1:3])

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(c.nc, payload); err != nil {
			return Command{}, fmt.Errorf("hal: read payload: %w", err)
		}
	}

	switch op {
	case OpA2DPConnect, OpA2DPDisconnect:
		if len(payload) != 6 {
			return Command{}, fmt.Errorf("%w: expected 6-byte BD_ADDR, got %d bytes", ErrMalformed, len(payload))
		}
		return Command{Op: op, Addr: bdaddr.FromBytes(payload), TxID: uuid.New()}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown opcode 0x%02x", ErrMalformed, op)
	}
}

func (c *Conn) writeFrame(op Opcode, payload []byte) error {
	hdr := [headerLen]byte{byte(op)}
	binary.LittleEndian.PutUint16(hdr[1:3], uint16(len(payload)))
	if _, err := c.nc.Write(hdr[:]); err != nil {
		return fmt.Errorf("hal: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := c.nc.Write(payload); err != nil {
			return fmt.Errorf("hal: write payload: %w", err)
		}
	}
	return nil
}

// WriteResponse answers a Command of opcode op with a status byte.
func (c *Conn) WriteResponse(op Opcode, st Status) error {
	return c.writeFrame(op, []byte{byte(st)})
}

// WriteConnState emits a CONN_STATE notification (spec.md §6 "emitted on
// every state change").
func (c *Conn) WriteConnState(addr bdaddr.Addr, state ConnState) error {
	payload := make([]byte, 7)
	copy(payload[:6], addr[:])
	payload[6] = byte(state)
	return c.writeFrame(OpConnState, payload)
}
