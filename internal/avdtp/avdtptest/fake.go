// Package avdtptest provides a deterministic, synchronous in-memory
// stand-in for a real AVDTP engine binding, for use in coordinator and
// setup-broker tests. All confirmation callbacks fire synchronously from
// within the call that triggers them — tests that want to exercise
// interleaving schedule their own goroutines around that. A session's
// Discover callback and its disconnect callback are the exceptions: each
// fires on its own goroutine.
package avdtptest

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hmallat/a2dp-source/internal/avdtp"
)

// ErrScripted is returned by operations a test has configured to fail via
// Fake.Fail.
var ErrScripted = errors.New("avdtptest: scripted failure")

// Fake implements avdtp.Engine entirely in memory.
type Fake struct {
	mu sync.Mutex

	nextSessionID int
	nextStreamID  int
	lastSession   avdtp.Session

	seps map[string]*registeredSEP // keyed by fmt.Sprintf("%d/%d", role, codecType)

	// failing, when set for an operation name, makes the next call to
	// that operation on this Fake return ErrScripted instead of
	// succeeding. Cleared after firing once.
	failing map[string]bool

	// pendingDiscover/pendingDiscoverErr are what the next
	// Session.Discover call on any session returns.
	pendingDiscover    []avdtp.RemoteSEP
	pendingDiscoverErr error
}

type registeredSEP struct {
	f         *Fake
	key       string
	role      avdtp.Role
	media     avdtp.MediaType
	codecType uint8
	ind       avdtp.Indications
	cfm       avdtp.Confirmations
}

// Unregister removes the SEP from the fake engine, so a later SEPFor (or
// an indication dispatch a test drives by hand) observes it as gone —
// mirroring spec.md S6 ("subsequent AVDTP indications for that SEP cannot
// arrive").
func (s *registeredSEP) Unregister() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.seps, s.key)
}

// New returns an empty Fake engine.
func New() *Fake {
	return &Fake{
		seps:    make(map[string]*registeredSEP),
		failing: make(map[string]bool),
	}
}

var _ avdtp.Engine = (*Fake)(nil)

// Fail arranges for the next call to the named operation
// ("set_configuration", "open", "start", "suspend", "close") to fail with
// ErrScripted.
func (f *Fake) Fail(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[op] = true
}

func (f *Fake) takeFailure(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[op] {
		delete(f.failing, op)
		return true
	}
	return false
}

type fakeSession struct {
	f            *Fake
	id           int
	conn         io.ReadWriteCloser
	disconnectCb func()
	closed       bool
}

// Discover reports the scripted discover result to cb on its own
// goroutine, for the same reason as Shutdown below: Discover is called
// from the coordinator's single execution context, and cb submits back
// onto it.
func (s *fakeSession) Discover(cb func(remotes []avdtp.RemoteSEP, err error)) {
	s.f.mu.Lock()
	remotes := s.f.pendingDiscover
	err := s.f.pendingDiscoverErr
	s.f.mu.Unlock()
	go cb(remotes, err)
}

// Shutdown tears the session down. disconnectCb, if installed, always
// fires on its own goroutine rather than inline: a real engine's
// disconnect notification is never a synchronous side effect of the
// Shutdown call that triggered it (Shutdown may itself be called from the
// coordinator's single execution context, which disconnectCb needs to be
// able to call back into via submit without deadlocking on itself).
func (s *fakeSession) Shutdown() {
	s.f.mu.Lock()
	already := s.closed
	s.closed = true
	s.f.mu.Unlock()
	if already {
		return
	}
	s.conn.Close()
	if s.disconnectCb != nil {
		go s.disconnectCb()
	}
}

// NewSession constructs a fake session over conn.
func (f *Fake) NewSession(conn io.ReadWriteCloser, localMTU, remoteMTU uint16, disconnectCb func()) avdtp.Session {
	f.mu.Lock()
	f.nextSessionID++
	id := f.nextSessionID
	sess := &fakeSession{f: f, id: id, conn: conn, disconnectCb: disconnectCb}
	f.lastSession = sess
	f.mu.Unlock()
	return sess
}

// LastSession returns the most recently constructed session, so a test
// driving a single device's signaling channel can hand it back into a
// registered SEP's indication closures (spec.md S2/S3: peer-driven
// SET_CONFIGURATION arrives on the session the coordinator already bound
// to that device).
func (f *Fake) LastSession() avdtp.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSession
}

// RegisterSEP installs ind/cfm for (role, media, codecType).
func (f *Fake) RegisterSEP(role avdtp.Role, media avdtp.MediaType, codecType uint8, ind avdtp.Indications, cfm avdtp.Confirmations) avdtp.SEP {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := sepKey(role, codecType)
	sep := &registeredSEP{f: f, key: key, role: role, media: media, codecType: codecType, ind: ind, cfm: cfm}
	f.seps[key] = sep
	return sep
}

func sepKey(role avdtp.Role, codecType uint8) string {
	return fmt.Sprintf("%d/%d", role, codecType)
}

// SEPFor returns the Indications/Confirmations vtables a test registered
// for (role, codecType), so it can drive peer-side indications directly
// (spec.md S2/S3: peer-driven SET_CONFIGURATION).
func (f *Fake) SEPFor(role avdtp.Role, codecType uint8) (avdtp.Indications, avdtp.Confirmations, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sep, ok := f.seps[sepKey(role, codecType)]
	if !ok {
		return avdtp.Indications{}, avdtp.Confirmations{}, false
	}
	return sep.ind, sep.cfm, true
}

type fakeStream struct {
	id string
}

func (s *fakeStream) ID() string { return s.id }

// SetDiscoverResult configures what the next Session.Discover call
// returns.
func (f *Fake) SetDiscoverResult(remotes []avdtp.RemoteSEP, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingDiscover = remotes
	f.pendingDiscoverErr = err
}

func (f *Fake) newStream() avdtp.Stream {
	f.mu.Lock()
	f.nextStreamID++
	id := f.nextStreamID
	f.mu.Unlock()
	return &fakeStream{id: fmt.Sprintf("stream-%d", id)}
}

// SetConfiguration creates a new fake stream and reports success unless
// Fail("set_configuration") was armed.
func (f *Fake) SetConfiguration(sess avdtp.Session, remote avdtp.RemoteSEP, caps []avdtp.Capability) (avdtp.Stream, error) {
	if f.takeFailure("set_configuration") {
		return nil, ErrScripted
	}
	return f.newStream(), nil
}

func (f *Fake) Open(sess avdtp.Session, stream avdtp.Stream) error {
	if f.takeFailure("open") {
		return ErrScripted
	}
	return nil
}

func (f *Fake) Start(sess avdtp.Session, stream avdtp.Stream) error {
	if f.takeFailure("start") {
		return ErrScripted
	}
	return nil
}

func (f *Fake) Suspend(sess avdtp.Session, stream avdtp.Stream) error {
	if f.takeFailure("suspend") {
		return ErrScripted
	}
	return nil
}

func (f *Fake) Close(sess avdtp.Session, stream avdtp.Stream, abort bool) error {
	if f.takeFailure("close") {
		return ErrScripted
	}
	return nil
}

func (f *Fake) SetTransport(sess avdtp.Session, stream avdtp.Stream, conn io.ReadWriteCloser, localMTU, remoteMTU uint16) error {
	if f.takeFailure("set_transport") {
		return ErrScripted
	}
	return nil
}

// RemoteSEP is a test-scripted advertised remote endpoint.
type RemoteSEP struct {
	Codecs map[uint8][]byte
}

func (r RemoteSEP) CodecCapability(codecType uint8) ([]byte, bool) {
	c, ok := r.Codecs[codecType]
	return c, ok
}

var _ avdtp.RemoteSEP = RemoteSEP{}
