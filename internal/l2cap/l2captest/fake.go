// Package l2captest provides a deterministic, in-process substitute for a
// real Bluetooth controller's L2CAP layer, for use in coordinator and
// device-FSM tests.
//
// Grounded on the conn-over-raw-transport pattern in
// other_examples/5dade206_paypal-gatt__linux-l2cap.go.go, adapted from raw
// HCI ACL framing to a TCP loopback listener: Dial sends a 6-byte BD_ADDR
// preamble identifying the caller, Accept reads it back out so the
// accepting side can recover RemoteAddr() without a real controller.
package l2captest

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/l2cap"
)

// DefaultMTU is the MTU the fake reports for every channel it creates.
const DefaultMTU = 672

// Fake is both an l2cap.Dialer and an l2cap.Listener backed by a TCP
// loopback socket.
type Fake struct {
	mu      sync.Mutex
	ln      net.Listener
	localBD bdaddr.Addr
}

// New starts a TCP loopback listener standing in for the local adapter's
// L2CAP PSM 0x19. localBD is the address this fake identifies itself with
// when it dials; the accepting Fake reports it as the channel's peer
// address.
func New(localBD bdaddr.Addr) (*Fake, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("l2captest: listen: %w", err)
	}
	return &Fake{ln: ln, localBD: localBD}, nil
}

// Addr returns the loopback address tests dial a fake remote device
// through (for scripting a peer-initiated connection in reverse, via a
// second Fake).
func (f *Fake) Addr() net.Addr {
	return f.ln.Addr()
}

var _ l2cap.Dialer = (*Fake)(nil)
var _ l2cap.Listener = (*Fake)(nil)

// Dial opens a loopback connection to the listener named by WithDialTarget
// in ctx (this fake's own listener if ctx names none), identifying
// itself with f.localBD so the accepting side's Accept can recover it as
// RemoteAddr. psm and sec are accepted for interface conformance only —
// the fake has no notion of a Bluetooth security mode.
func (f *Fake) Dial(ctx context.Context, addr bdaddr.Addr, psm int, sec l2cap.Security) (*l2cap.Conn, error) {
	d := net.Dialer{}
	var target string
	if a, ok := ctx.Value(dialTargetKey{}).(string); ok {
		target = a
	} else {
		target = f.ln.Addr().String()
	}
	nc, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("l2captest: dial: %w", err)
	}
	if _, err := nc.Write(f.localBD[:]); err != nil {
		nc.Close()
		return nil, fmt.Errorf("l2captest: write preamble: %w", err)
	}
	return l2cap.NewConn(nc, DefaultMTU, DefaultMTU), nil
}

// Accept blocks for the next inbound loopback connection and returns it
// wrapped as an l2cap.Conn once its 6-byte BD_ADDR preamble has been read.
func (f *Fake) Accept(ctx context.Context) (*l2cap.Conn, error) {
	type result struct {
		nc  net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		nc, err := f.ln.Accept()
		ch <- result{nc, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("l2captest: accept: %w", r.err)
		}
		var preamble [6]byte
		if _, err := readFull(r.nc, preamble[:]); err != nil {
			r.nc.Close()
			return nil, fmt.Errorf("l2captest: read preamble: %w", err)
		}
		nc := preambleConn{Conn: r.nc, remote: bdNetAddr(preamble)}
		return l2cap.NewConn(nc, DefaultMTU, DefaultMTU), nil
	}
}

// bdNetAddr renders a preamble BD_ADDR in the AA:BB:CC:DD:EE:FF form
// l2cap.Conn.RemoteAddr parses.
type bdNetAddr bdaddr.Addr

func (a bdNetAddr) Network() string { return "l2cap" }
func (a bdNetAddr) String() string  { return bdaddr.Addr(a).String() }

// preambleConn reports the dialer's preamble address as its RemoteAddr.
type preambleConn struct {
	net.Conn
	remote net.Addr
}

func (c preambleConn) RemoteAddr() net.Addr { return c.remote }

// Close stops accepting new connections.
func (f *Fake) Close() error {
	return f.ln.Close()
}

func readFull(nc net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := nc.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// dialTargetKey lets tests script Dial against a specific peer Fake's
// listener address rather than the zero-value default (dialing oneself).
type dialTargetKey struct{}

// WithDialTarget returns a context that directs the next Dial call on a
// Fake to addr instead of the fake's own listener.
func WithDialTarget(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, dialTargetKey{}, addr)
}
