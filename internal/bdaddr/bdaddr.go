// Package bdaddr provides the Bluetooth device address type shared across
// the coordinator's device table, IPC wire formats, and SDP record.
package bdaddr

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned by Parse when its input isn't a well-formed
// AA:BB:CC:DD:EE:FF address string.
var ErrMalformed = errors.New("bdaddr: malformed address string")

// Addr is a 6-byte Bluetooth device address (BD_ADDR), stored host-endian
// (Addr[0] is the least significant octet, matching the over-the-wire HAL
// IPC encoding in §6 of the spec).
type Addr [6]byte

// String renders the address in the conventional AA:BB:CC:DD:EE:FF form,
// most-significant octet first.
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a[5], a[4], a[3], a[2], a[1], a[0])
}

// FromBytes copies a 6-byte slice into an Addr. It panics if b is shorter
// than 6 bytes; callers are expected to bounds-check IPC payloads first.
func FromBytes(b []byte) Addr {
	var a Addr
	copy(a[:], b[:6])
	return a
}

// Parse parses the conventional AA:BB:CC:DD:EE:FF string form (most
// significant octet first) back into an Addr.
func Parse(s string) (Addr, error) {
	var a Addr
	var b [6]int
	n, err := fmt.Sscanf(s, "%02X:%02X:%02X:%02X:%02X:%02X",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return Addr{}, ErrMalformed
	}
	for i := 0; i < 6; i++ {
		a[5-i] = byte(b[i])
	}
	return a, nil
}
