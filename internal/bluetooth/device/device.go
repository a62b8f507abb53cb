// Package device implements the device table and connection FSM described
// in spec.md §4.4: one entry per peer BD_ADDR, four connection states, and
// the CONN_STATE notification discipline of §8 property 4.
//
// The transition mechanism is grounded on the decision-table pattern in
// ManuGH/xg2g's internal/domain/session/lifecycle (transitionsTable /
// TransitionFor): a flat table of allowed (from, event) -> to edges, looked
// up rather than expressed as a switch per state.
package device

import (
	"errors"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
)

// State is a connection-FSM state (spec.md §4.4).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Event is a cause driving a device state transition.
type Event int

const (
	EvLocalConnect Event = iota
	EvInboundConnect
	EvSignalingUp
	EvConnectFail
	EvLocalDisconnectPreSignaling
	EvLocalDisconnectSignaled
	EvDisconnectCallback
)

// transition is a single allowed edge in the device connection FSM.
type transition struct {
	From  State
	Event Event
	To    State
}

// transitionsTable encodes spec.md §4.4's diagram plus §5's cancellation
// rule that a disconnect while still Connecting (no session, an AVDTP
// disconnect callback cannot yet exist) is satisfied in a single hop
// straight to Disconnected — never passing through Disconnecting, so
// only one CONN_STATE notification is emitted (spec.md §8 property 4).
var transitionsTable = []transition{
	{From: Disconnected, Event: EvLocalConnect, To: Connecting},
	{From: Disconnected, Event: EvInboundConnect, To: Connecting},

	{From: Connecting, Event: EvSignalingUp, To: Connected},
	{From: Connecting, Event: EvConnectFail, To: Disconnected},
	{From: Connecting, Event: EvLocalDisconnectPreSignaling, To: Disconnected},

	{From: Connected, Event: EvLocalDisconnectSignaled, To: Disconnecting},
	{From: Connected, Event: EvDisconnectCallback, To: Disconnected},

	{From: Disconnecting, Event: EvDisconnectCallback, To: Disconnected},
}

// transitionFor returns the allowed transition for a given state+event.
func transitionFor(from State, ev Event) (transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return transition{}, false
}

// ErrNoTransition is returned by Device.Apply when an event is not valid
// for the device's current state.
var ErrNoTransition = errors.New("device: no transition for event in current state")

// Session is the narrow handle this module holds for an AVDTP signaling
// session — opaque here, owned by the avdtp package.
type Session interface {
	Shutdown()
}

// Channel is the narrow handle for an in-flight L2CAP channel (signaling
// while Connecting, or a media-transport channel awaiting promotion).
type Channel interface {
	Close() error
}

// Device is one entry in the device table: a peer BD_ADDR, its connection
// state, and the channel/session handles that exist at each state (spec.md
// §3 "Device").
type Device struct {
	Addr    bdaddr.Addr
	State   State
	IO      Channel // signaling channel while Connecting; nil once a Session owns it
	Session Session // non-nil only in Connected and Disconnecting-from-Connected

	// Local records whether the local side initiated the current
	// connection attempt (spec.md §4.4: "if the local side initiated,
	// begin AVDTP DISCOVER").
	Local bool
}

// New constructs a device record in the Disconnected state. The record is
// not live (not addressable via a Table) until Table.Put inserts it.
func New(addr bdaddr.Addr) *Device {
	return &Device{Addr: addr, State: Disconnected}
}

// Apply drives the device's FSM with ev, returning whether the state
// changed (the caller uses this to decide whether to emit CONN_STATE,
// spec.md §8 property 4: "no duplicate notifications for unchanged
// state"). Re-entering the current state is impossible by construction:
// transitionsTable has no (From == To) edge, and transitionFor fails
// closed on anything not in the table.
func (d *Device) Apply(ev Event) (changed bool, err error) {
	tr, ok := transitionFor(d.State, ev)
	if !ok {
		return false, ErrNoTransition
	}
	if tr.To == d.State {
		return false, nil
	}
	d.State = tr.To
	return true, nil
}

// Table is the device table keyed by BD_ADDR (spec.md §3 invariant:
// "exactly one device record per live BD_ADDR").
type Table struct {
	byAddr    map[bdaddr.Addr]*Device
	bySession map[Session]*Device
}

// NewTable returns an empty device table.
func NewTable() *Table {
	return &Table{
		byAddr:    make(map[bdaddr.Addr]*Device),
		bySession: make(map[Session]*Device),
	}
}

// Put inserts or replaces the device record for d.Addr.
func (t *Table) Put(d *Device) {
	t.byAddr[d.Addr] = d
	if d.Session != nil {
		t.bySession[d.Session] = d
	}
}

// BindSession associates a session with a device already in the table,
// keeping the session index current.
func (t *Table) BindSession(d *Device, s Session) {
	d.Session = s
	t.bySession[s] = d
}

// Find looks up a device by peer address.
func (t *Table) Find(addr bdaddr.Addr) (*Device, bool) {
	d, ok := t.byAddr[addr]
	return d, ok
}

// FindBySession looks up a device by its AVDTP session handle. Preserved
// per the original's find_device_by_session, for AVDTP engines that only
// hand the coordinator a session pointer in a callback rather than a
// stable device handle.
func (t *Table) FindBySession(s Session) (*Device, bool) {
	d, ok := t.bySession[s]
	return d, ok
}

// Remove destroys the device record, per spec.md §3: "destroyed when its
// state reaches Disconnected." Must be called exactly once a transition
// into Disconnected has been applied (spec.md §8 property 5: "its record
// is destroyed before the next event is processed").
func (t *Table) Remove(d *Device) {
	delete(t.byAddr, d.Addr)
	if d.Session != nil {
		delete(t.bySession, d.Session)
	}
}

// Len reports the number of live devices.
func (t *Table) Len() int {
	return len(t.byAddr)
}

// Each returns every live device. The order is unspecified.
func (t *Table) Each() []*Device {
	out := make([]*Device, 0, len(t.byAddr))
	for _, d := range t.byAddr {
		out = append(out, d)
	}
	return out
}
