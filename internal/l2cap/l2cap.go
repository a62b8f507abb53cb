// Package l2cap expresses the narrow L2CAP transport contract this module
// consumes (spec.md §1 "out of scope: L2CAP/BtIO socket plumbing", §4.7):
// connect/listen/accept over PSM 0x19 at MEDIUM security, plus per-channel
// MTU query. The coordinator never touches a raw socket — only these
// interfaces — so the real adapter and the test fake are interchangeable.
//
// Grounded on the conn type in
// other_examples/5dade206_paypal-gatt__linux-l2cap.go.go: a small struct
// wrapping the raw transport behind io.Reader/io.Writer/io.Closer, with a
// mutex-guarded registry for concurrently-accepted channels.
package l2cap

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
)

// PSM is the L2CAP protocol/service multiplexer identifying AVDTP
// (spec.md §6: "L2CAP. PSM 0x19").
const PSM = 0x19

// Security levels accepted by Dialer.Dial, per
// spec.md §4.4 ("MEDIUM security").
type Security int

const (
	SecurityLow Security = iota
	SecurityMedium
	SecurityHigh
)

// Conn is an established L2CAP channel: a signaling channel while a
// device is Connecting, or a media transport channel once promoted
// (spec.md §4.4, §4.5).
type Conn struct {
	nc                  net.Conn
	localMTU, remoteMTU uint16
}

// NewConn wraps an already-established net.Conn (the BR/EDR case this
// module targets) with its negotiated MTUs.
func NewConn(nc net.Conn, localMTU, remoteMTU uint16) *Conn {
	return &Conn{nc: nc, localMTU: localMTU, remoteMTU: remoteMTU}
}

var _ io.ReadWriteCloser = (*Conn)(nil)

func (c *Conn) Read(p []byte) (int, error)  { return c.nc.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.nc.Write(p) }
func (c *Conn) Close() error                { return c.nc.Close() }

// LocalMTU and RemoteMTU report the negotiated L2CAP MTUs, used to size
// the AVDTP session per spec.md §6 ("Session open on a connected L2CAP
// fd + MTUs...").
func (c *Conn) LocalMTU() uint16  { return c.localMTU }
func (c *Conn) RemoteMTU() uint16 { return c.remoteMTU }

// RemoteAddr returns the peer's Bluetooth device address.
func (c *Conn) RemoteAddr() bdaddr.Addr {
	return addrFromNet(c.nc.RemoteAddr())
}

// addrFromNet extracts a BD_ADDR from a net.Addr. Real adapters hand back
// an address formatted as the conventional AA:BB:CC:DD:EE:FF string (or
// an equivalent net.Addr implementation); the test fake in l2captest
// encodes the same convention over loopback TCP.
func addrFromNet(a net.Addr) bdaddr.Addr {
	parsed, err := bdaddr.Parse(a.String())
	if err != nil {
		return bdaddr.Addr{}
	}
	return parsed
}

// Dialer opens outbound L2CAP channels (spec.md §4.4 "Connecting: L2CAP
// outbound in progress to PSM 0x19, MEDIUM security").
type Dialer interface {
	Dial(ctx context.Context, addr bdaddr.Addr, psm int, sec Security) (*Conn, error)
}

// Listener accepts inbound L2CAP channels (spec.md §4.4 "Incoming
// connection path").
type Listener interface {
	Accept(ctx context.Context) (*Conn, error)
	Close() error
}

// Registry tracks channels accepted off a Listener that have not yet been
// claimed by the coordinator (e.g. a media-transport channel arriving
// before its owning setup has been located). Guarded by mu, mirroring
// l2cap.connsmu in the paypal-gatt reference.
type Registry struct {
	mu    sync.Mutex
	byKey map[bdaddr.Addr]*Conn
}

// NewRegistry returns an empty pending-channel registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[bdaddr.Addr]*Conn)}
}

// Put records an unclaimed channel from addr.
func (r *Registry) Put(addr bdaddr.Addr, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[addr] = c
}

// Take removes and returns the unclaimed channel from addr, if any.
func (r *Registry) Take(addr bdaddr.Addr) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byKey[addr]
	if ok {
		delete(r.byKey, addr)
	}
	return c, ok
}
