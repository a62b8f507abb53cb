// Package avdtp expresses the AVDTP engine as a narrow interface (spec.md
// §1 "out of scope: the AVDTP engine itself", §6 "AVDTP (consumed as a
// library)"). The coordinator only ever calls through Engine and the
// Indications/Confirmations vtables; a real binding to a system AVDTP
// stack, and the deterministic avdtptest.Fake used in this module's own
// tests, both implement the same surface.
//
// Grounded on the sep_ind/sep_cfm vtables and the avdtp_* call surface in
// original_source/android/a2dp.c (avdtp_session_create, avdtp_register_sep,
// avdtp_discover, avdtp_set_configuration, avdtp_open, avdtp_start,
// avdtp_suspend, avdtp_close, avdtp_shutdown, avdtp_set_disconnect_cb).
package avdtp

import "io"

// Role and MediaType mirror the two fixed SEP attributes this module ever
// registers with (spec.md §4.3: "source-role, audio-media SEP").
type Role int

const (
	RoleSource Role = iota
	RoleSink
)

type MediaType int

const (
	MediaAudio MediaType = iota
)

// CapabilityKind tags one entry of a SET_CONFIGURATION proposal or a
// capability response (spec.md §4.5).
type CapabilityKind int

const (
	CapMediaTransport CapabilityKind = iota
	CapMediaCodec
	CapDelayReporting
)

// Capability is one entry of a capability set: MEDIA_TRANSPORT carries no
// payload, MEDIA_CODEC carries a media type, codec type, and codec
// payload, DELAY_REPORTING carries no payload (and is always rejected,
// spec.md §4.5).
type Capability struct {
	Kind      CapabilityKind
	Media     MediaType
	CodecType uint8
	Payload   []byte
}

// RemoteSEP is a Stream End Point the peer advertised in response to
// DISCOVER (spec.md §4.5 "discover_cb... iterate the endpoints and pick
// the first one for which the peer advertises a compatible remote SEP").
type RemoteSEP interface {
	// CodecCapability returns the MEDIA_CODEC capability this remote SEP
	// advertises for codecType, or ok=false if it doesn't support it.
	CodecCapability(codecType uint8) (caps []byte, ok bool)
}

// Stream is a local handle for a negotiated stream on a session, opaque
// to the coordinator beyond the identity it carries (spec.md §3 "Setup").
type Stream interface {
	ID() string
}

// SEP is the handle returned by Engine.RegisterSEP, passed back to
// Engine.Unregister.
type SEP interface {
	Unregister()
}

// Session is an established AVDTP signaling session over one L2CAP
// channel (spec.md §6: "Session open on a connected L2CAP fd + MTUs +
// protocol version 0x0100").
type Session interface {
	// Discover starts SIGNALING discovery of the peer's SEPs; cb is
	// invoked once with the result (spec.md §4.5 "discover_cb").
	Discover(cb func(remotes []RemoteSEP, err error))
	// Shutdown tears the session down; AVDTP's own disconnect callback
	// (registered at session-create time) eventually fires once torn
	// down (spec.md §5 "Cancellation & timeouts").
	Shutdown()
}

// Engine is the narrow surface this module consumes from the AVDTP
// library (spec.md §6).
type Engine interface {
	// NewSession constructs an AVDTP session over an already-connected
	// L2CAP channel with the given negotiated MTUs, installing
	// disconnectCb as the session's disconnect callback.
	NewSession(conn io.ReadWriteCloser, localMTU, remoteMTU uint16, disconnectCb func()) Session

	// RegisterSEP registers a local SEP for role/media/codecType, wiring
	// in ind and cfm as its indication/confirmation vtables (spec.md
	// §4.3: "wiring in the indication and confirmation vtables").
	RegisterSEP(role Role, media MediaType, codecType uint8, ind Indications, cfm Confirmations) SEP

	// SetConfiguration issues SET_CONFIGURATION for stream on sess
	// against remote, proposing caps. The outcome arrives via
	// Confirmations.SetConfiguration.
	SetConfiguration(sess Session, remote RemoteSEP, caps []Capability) (Stream, error)
	// Open issues OPEN for stream; outcome via Confirmations.Open.
	Open(sess Session, stream Stream) error
	// Start issues START for stream; outcome via Confirmations.Start.
	Start(sess Session, stream Stream) error
	// Suspend issues SUSPEND for stream; outcome via
	// Confirmations.Suspend.
	Suspend(sess Session, stream Stream) error
	// Close issues CLOSE (abort=false) for stream; outcome via
	// Confirmations.Close.
	Close(sess Session, stream Stream, abort bool) error
	// SetTransport binds an established L2CAP channel to stream as its
	// media transport (spec.md §5 "the media transport channel fd...
	// handed to the AVDTP engine via stream_set_transport, which assumes
	// ownership"). Called once a stream's second L2CAP channel connects,
	// whether dialed locally or accepted from the peer.
	SetTransport(sess Session, stream Stream, conn io.ReadWriteCloser, localMTU, remoteMTU uint16) error
}

// Indications are callbacks driven by the peer's signaling requests
// against one of our registered SEPs (spec.md §4.5 "Indications (inbound
// from peer)").
//
// Every callback takes the Session it arrived on, so the coordinator can
// resolve the owning device via device.Table.FindBySession without AVDTP
// itself knowing anything about this module's device table.
type Indications struct {
	// GetCapability answers GET_CAPABILITY with the endpoint's
	// capabilities preset, built into a capability set by the caller.
	GetCapability func(sess Session) []Capability
	// SetConfiguration answers SET_CONFIGURATION. Returning an error
	// rejects the proposal (no setup is created); returning nil accepts
	// it and binds stream as the new setup's AVDTP handle.
	SetConfiguration func(sess Session, caps []Capability, stream Stream) error
	// Open/Start/Suspend answer the like-named indications; accept only
	// if a setup exists for the endpoint (spec.md §4.5).
	Open    func(sess Session, stream Stream) error
	Start   func(sess Session, stream Stream) error
	Suspend func(sess Session, stream Stream) error
	// Close answers the CLOSE indication: requires an existing setup,
	// destroys it, and accepts.
	Close func(sess Session, stream Stream) error
}

// Confirmations are callbacks driven by outcomes of requests this module
// issued itself (spec.md §4.5 "Confirmations (outcomes of locally
// initiated requests)").
//
// Every Engine method that initiates a request (SetConfiguration, Open,
// Start, Suspend, Close) in this module's design returns its outcome
// synchronously rather than through this vtable — see avdtptest.Fake's
// package doc ("all confirmation callbacks fire synchronously from
// within the call that triggers them"). The coordinator therefore wires
// a zero-value Confirmations into every RegisterSEP call and handles
// locally-initiated outcomes inline at each call site; this struct is
// kept so the registration surface matches the engine's real vtable
// shape for a future asynchronous binding.
type Confirmations struct {
	SetConfiguration func(sess Session, stream Stream, err error)
	Open             func(sess Session, stream Stream, err error)
	Start            func(sess Session, stream Stream, err error)
	Suspend          func(sess Session, stream Stream, err error)
	Close            func(sess Session, stream Stream, err error)
	Abort            func(sess Session, stream Stream, err error)
}
