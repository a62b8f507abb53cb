package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"

	"github.com/hmallat/a2dp-source/internal/audioipc"
	"github.com/hmallat/a2dp-source/internal/avdtp"
	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/bluetooth/device"
	"github.com/hmallat/a2dp-source/internal/bluetooth/endpoint"
	"github.com/hmallat/a2dp-source/internal/bluetooth/preset"
	"github.com/hmallat/a2dp-source/internal/bluetooth/setup"
	"github.com/hmallat/a2dp-source/internal/hal"
	"github.com/hmallat/a2dp-source/internal/l2cap"
	"github.com/hmallat/a2dp-source/internal/metrics"
)

// Error taxonomy per spec.md §7; all are local and never cross an IPC
// boundary as anything but a status byte.
var (
	ErrPeerAlreadyTracked        = errors.New("coordinator: peer already tracked")
	ErrPeerNotTracked            = errors.New("coordinator: peer not tracked")
	ErrSEPNotInUse               = errors.New("coordinator: sep not in use")
	ErrDelayReportingUnsupported = errors.New("coordinator: delay reporting unsupported")
	ErrNoMediaCodec              = errors.New("coordinator: no media codec capability proposed")
	ErrCodecTypeMismatch         = errors.New("coordinator: codec type mismatch")
)

// --- HAL IPC accept loop -----------------------------------------------

func (c *Coordinator) acceptHAL(ctx context.Context, ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				c.log.Warn().Err(err).Msg("hal accept failed")
				return
			}
		}
		hc := hal.NewConn(nc)
		c.submit(func() { c.halConn = hc })
		go c.serveHAL(hc)
	}
}

func (c *Coordinator) serveHAL(hc *hal.Conn) {
	defer hc.Close()
	for {
		cmd, err := hc.ReadCommand()
		if err != nil {
			c.submit(func() {
				if c.halConn == hc {
					c.halConn = nil
				}
			})
			return
		}
		c.submit(func() {
			c.handleHALCommand(hc, cmd)
		})
	}
}

func (c *Coordinator) handleHALCommand(hc *hal.Conn, cmd hal.Command) {
	var err error
	switch cmd.Op {
	case hal.OpA2DPConnect:
		err = c.connectDevice(cmd.Addr)
		_ = hc.WriteResponse(hal.OpA2DPConnect, statusOf(err))
	case hal.OpA2DPDisconnect:
		err = c.disconnectDevice(cmd.Addr)
		_ = hc.WriteResponse(hal.OpA2DPDisconnect, statusOf(err))
	}
	if err != nil {
		c.log.Debug().Err(err).Str("addr", cmd.Addr.String()).Str("txid", cmd.TxID.String()).Msg("hal command failed")
	}
}

func statusOf(err error) hal.Status {
	if err != nil {
		return hal.StatusFailed
	}
	return hal.StatusSuccess
}

// --- HAL-driven connection lifecycle ------------------------------------

// connectDevice implements A2DP_CONNECT (spec.md §6, §4.4's Connecting
// state). The L2CAP dial happens on a background goroutine; its result is
// submitted back onto the single execution context.
func (c *Coordinator) connectDevice(addr bdaddr.Addr) error {
	if _, ok := c.devices.Find(addr); ok {
		return ErrPeerAlreadyTracked
	}
	d := device.New(addr)
	d.Local = true
	if _, err := d.Apply(device.EvLocalConnect); err != nil {
		return err
	}
	c.devices.Put(d)
	c.emitConnState(d)
	c.refreshGauges()

	go c.dialDevice(d)
	return nil
}

func (c *Coordinator) dialDevice(d *device.Device) {
	conn, err := c.deps.Dialer.Dial(c.runCtx, d.Addr, l2cap.PSM, l2cap.SecurityMedium)
	c.submit(func() {
		if !c.isLive(d) {
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			c.log.Warn().Err(err).Str("addr", d.Addr.String()).Msg("l2cap dial failed")
			c.failConnecting(d)
			return
		}
		c.bringUpSignaling(d, conn)
	})
}

func (c *Coordinator) failConnecting(d *device.Device) {
	changed, _ := d.Apply(device.EvConnectFail)
	if changed {
		c.emitConnState(d)
	}
	c.destroyDevice(d)
}

// disconnectDevice implements A2DP_DISCONNECT (spec.md §6). Per spec.md
// §5's cancellation rule, a device still Connecting (no session yet) is
// torn down immediately; a Connected device is shut down through AVDTP
// and only reaches Disconnected once the engine confirms.
func (c *Coordinator) disconnectDevice(addr bdaddr.Addr) error {
	d, ok := c.devices.Find(addr)
	if !ok {
		return ErrPeerNotTracked
	}

	if d.Session == nil {
		changed, err := d.Apply(device.EvLocalDisconnectPreSignaling)
		if err != nil {
			return err
		}
		if changed {
			c.emitConnState(d)
		}
		c.destroyDevice(d)
		return nil
	}

	changed, err := d.Apply(device.EvLocalDisconnectSignaled)
	if err != nil {
		return err
	}
	if changed {
		c.emitConnState(d)
	}
	sess, ok := sessionOf(d)
	if ok {
		sess.Shutdown()
	}
	return nil
}

// handleSessionDisconnect is the disconnect callback installed on every
// AVDTP session (spec.md §4.4 "install a disconnect callback"). It fires
// both for an unprompted drop while Connected (S5) and for the confirmed
// teardown after a local Disconnecting request.
func (c *Coordinator) handleSessionDisconnect(d *device.Device) {
	if !c.isLive(d) {
		return
	}
	changed, err := d.Apply(device.EvDisconnectCallback)
	if err != nil {
		c.log.Warn().Err(err).Str("addr", d.Addr.String()).Msg("disconnect callback in unexpected state")
		return
	}
	if changed {
		c.emitConnState(d)
	}
	c.destroyDevice(d)
}

// destroyDevice tears down every live setup bound to d, shuts down its
// session/channel handles, and removes it from the table (spec.md §3
// "destroyed when its state reaches Disconnected", §8 property 5).
func (c *Coordinator) destroyDevice(d *device.Device) {
	for _, s := range c.setups.FindByDevice(d) {
		c.setups.Destroy(s)
		metrics.IncSetup("destroyed")
	}
	if conn, ok := c.pendingTransport.Take(d.Addr); ok {
		_ = conn.Close()
	}
	if d.IO != nil {
		_ = d.IO.Close()
	}
	if sess, ok := sessionOf(d); ok {
		sess.Shutdown()
	}
	c.devices.Remove(d)
	c.refreshGauges()
}

// isLive reports whether d is still the live record for its address —
// guards against a background goroutine's result racing a disconnect or
// teardown that already replaced or removed the record.
func (c *Coordinator) isLive(d *device.Device) bool {
	cur, ok := c.devices.Find(d.Addr)
	return ok && cur == d
}

// sessionOf recovers the concrete avdtp.Session from a device's narrow
// Session handle. Always succeeds for sessions this coordinator created
// via bringUpSignaling, since device.Session requires only Shutdown and
// every session installed here also satisfies avdtp.Session.
func sessionOf(d *device.Device) (avdtp.Session, bool) {
	s, ok := d.Session.(avdtp.Session)
	return s, ok
}

func (c *Coordinator) emitConnState(d *device.Device) {
	if c.halConn == nil {
		return
	}
	var st hal.ConnState
	switch d.State {
	case device.Disconnected:
		st = hal.ConnStateDisconnected
	case device.Connecting:
		st = hal.ConnStateConnecting
	case device.Connected:
		st = hal.ConnStateConnected
	case device.Disconnecting:
		st = hal.ConnStateDisconnecting
	}
	if err := c.halConn.WriteConnState(d.Addr, st); err != nil {
		c.log.Warn().Err(err).Msg("write conn_state failed")
	}
}

// --- L2CAP accept loop ---------------------------------------------------

func (c *Coordinator) acceptL2CAP(ctx context.Context, ln l2cap.Listener) {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				c.log.Warn().Err(err).Msg("l2cap accept failed")
				return
			}
		}
		c.submit(func() {
			c.handleInboundL2CAP(conn)
		})
	}
}

// handleInboundL2CAP implements spec.md §4.4's "Incoming connection path":
// an existing device's second channel is the media transport channel for
// its first setup; an unknown peer's channel is a new device's signaling
// channel, handled as acceptor (no local discover).
func (c *Coordinator) handleInboundL2CAP(conn *l2cap.Conn) {
	addr := conn.RemoteAddr()
	if d, ok := c.devices.Find(addr); ok {
		c.promoteTransport(d, conn)
		return
	}

	d := device.New(addr)
	if _, err := d.Apply(device.EvInboundConnect); err != nil {
		_ = conn.Close()
		return
	}
	c.devices.Put(d)
	c.emitConnState(d)
	c.refreshGauges()
	c.bringUpSignaling(d, conn)
}

// promoteTransport implements the inbound half of spec.md §4.5's media
// transport binding: a second channel from a tracked device belongs to
// that device's live setup. If no setup has been created yet — the peer's
// transport channel won the race against our own SET_CONFIGURATION
// confirmation — the channel is held in pendingTransport until
// handlePeerSetConfiguration creates the setup and claims it.
func (c *Coordinator) promoteTransport(d *device.Device, conn *l2cap.Conn) {
	setups := c.setups.FindByDevice(d)
	if len(setups) == 0 {
		c.pendingTransport.Put(d.Addr, conn)
		return
	}
	c.bindTransport(d, setups[0], conn)
}

func (c *Coordinator) bindTransport(d *device.Device, s *setup.Setup, conn *l2cap.Conn) {
	sess, ok := sessionOf(d)
	if !ok {
		_ = conn.Close()
		return
	}
	if err := c.deps.Engine.SetTransport(sess, s.Stream, conn, conn.LocalMTU(), conn.RemoteMTU()); err != nil {
		c.log.Warn().Err(err).Msg("set_transport failed")
		_ = conn.Close()
	}
}

// bringUpSignaling constructs the AVDTP session over an established
// L2CAP channel (outbound or inbound), transitions the device to
// Connected, and — if the local side initiated — starts discovery
// (spec.md §4.4).
func (c *Coordinator) bringUpSignaling(d *device.Device, conn *l2cap.Conn) {
	d.IO = conn
	disconnectCb := func() {
		c.submit(func() { c.handleSessionDisconnect(d) })
	}
	sess := c.deps.Engine.NewSession(conn, conn.LocalMTU(), conn.RemoteMTU(), disconnectCb)

	changed, err := d.Apply(device.EvSignalingUp)
	if err != nil {
		c.log.Error().Err(err).Str("addr", d.Addr.String()).Msg("signaling-up transition rejected")
		sess.Shutdown()
		return
	}
	d.IO = nil
	c.devices.BindSession(d, sess)
	if changed {
		metrics.IncConnection("connected")
		c.emitConnState(d)
	}
	c.refreshGauges()

	if d.Local {
		c.startDiscover(d, sess)
	}
}

// --- Local-initiated stream establishment (spec.md §4.5) -----------------

func (c *Coordinator) startDiscover(d *device.Device, sess avdtp.Session) {
	sess.Discover(func(remotes []avdtp.RemoteSEP, err error) {
		c.submit(func() {
			if !c.isLive(d) {
				return
			}
			if err != nil {
				c.log.Warn().Err(err).Str("addr", d.Addr.String()).Msg("discover failed")
				sess.Shutdown()
				return
			}
			c.selectConfiguration(d, sess, remotes)
		})
	})
}

// selectConfiguration walks the endpoint registry for the first endpoint
// with a compatible remote SEP and a preferred preset the codec
// validator accepts, then issues SET_CONFIGURATION (spec.md §4.5 "Local-
// initiated stream establishment").
func (c *Coordinator) selectConfiguration(d *device.Device, sess avdtp.Session, remotes []avdtp.RemoteSEP) {
	// Each is unordered; walk endpoints in registration (ID) order.
	eps := c.endpoints.Each()
	sort.Slice(eps, func(i, j int) bool { return eps[i].ID < eps[j].ID })
	for _, ep := range eps {
		for _, remote := range remotes {
			remoteCaps, ok := remote.CodecCapability(uint8(ep.Codec))
			if !ok {
				continue
			}
			p, ok := c.selectPreset(ep, remoteCaps)
			if !ok {
				continue
			}
			c.proposeConfiguration(d, sess, remote, ep, p)
			return
		}
	}
	c.log.Info().Str("addr", d.Addr.String()).Msg("no matching endpoint/preset for remote SEPs")
	sess.Shutdown()
}

// selectPreset returns the first preferred preset whose config the codec
// validator accepts against the remote SEP's advertised capability.
func (c *Coordinator) selectPreset(ep *endpoint.Endpoint, remoteCaps []byte) (preset.Preset, bool) {
	for _, p := range ep.Presets.Preferred {
		if c.codecs.Validate(ep.Codec, remoteCaps, p.Bytes) == nil {
			return p, true
		}
	}
	return preset.Preset{}, false
}

func (c *Coordinator) proposeConfiguration(d *device.Device, sess avdtp.Session, remote avdtp.RemoteSEP, ep *endpoint.Endpoint, p preset.Preset) {
	caps := []avdtp.Capability{
		{Kind: avdtp.CapMediaTransport},
		{Kind: avdtp.CapMediaCodec, Media: avdtp.MediaAudio, CodecType: uint8(ep.Codec), Payload: p.Bytes},
	}
	stream, err := c.deps.Engine.SetConfiguration(sess, remote, caps)
	if err != nil {
		c.log.Warn().Err(err).Str("addr", d.Addr.String()).Msg("set_configuration failed")
		sess.Shutdown()
		return
	}
	if _, err := c.setups.Create(d, ep, p, stream); err != nil {
		c.log.Error().Err(err).Msg("setup create failed after local set_configuration")
		metrics.IncSetup("rejected")
		sess.Shutdown()
		return
	}
	metrics.IncSetup("created")
	c.refreshGauges()

	if err := c.deps.Engine.Open(sess, stream); err != nil {
		c.log.Warn().Err(err).Msg("open initiation failed")
		if s, ok := c.setups.FindByEndpoint(ep.ID); ok {
			c.setups.Destroy(s)
			metrics.IncSetup("destroyed")
			c.refreshGauges()
		}
		return
	}
	c.openMediaTransport(d, ep, stream)
}

// openMediaTransport dials the second L2CAP channel the peer will accept
// as the media transport channel (spec.md §4.5 confirmations, "open: on
// success, open a second L2CAP connection... when it connects, find the
// setup for this device and bind the new fd + MTUs to the stream").
func (c *Coordinator) openMediaTransport(d *device.Device, ep *endpoint.Endpoint, stream avdtp.Stream) {
	go func() {
		conn, err := c.deps.Dialer.Dial(c.runCtx, d.Addr, l2cap.PSM, l2cap.SecurityMedium)
		c.submit(func() {
			if err != nil {
				// TransportSetupFailure (spec.md §7): logged and dropped,
				// the engine will abort the stream via its own timeout.
				c.log.Warn().Err(err).Str("addr", d.Addr.String()).Msg("media transport dial failed")
				return
			}
			if !c.isLive(d) {
				_ = conn.Close()
				return
			}
			s, ok := c.setups.FindByEndpoint(ep.ID)
			if !ok || s.Stream != stream || s.Device != d {
				_ = conn.Close()
				return
			}
			sess, ok := sessionOf(d)
			if !ok {
				_ = conn.Close()
				return
			}
			if err := c.deps.Engine.SetTransport(sess, stream, conn, conn.LocalMTU(), conn.RemoteMTU()); err != nil {
				c.log.Warn().Err(err).Msg("set_transport failed")
				_ = conn.Close()
			}
		})
	}()
}

// --- Endpoint registration & peer-driven indications (spec.md §4.3/§4.5) -

// registerEndpoint implements the audio IPC OPEN handler's AVDTP side:
// registers a source-role, audio-media SEP wired with indication
// closures that close over the endpoint once allocated.
func (c *Coordinator) registerEndpoint(req audioipc.OpenRequest) *endpoint.Endpoint {
	var ep *endpoint.Endpoint

	// Every closure below runs on the single execution context via
	// c.submit: the engine invokes indications from its own goroutine(s),
	// never from inside the coordinator's event loop, so routing through
	// submit here is what makes these the same "one execution context"
	// spec.md §5 requires HAL/audio IPC/L2CAP handlers to use.
	ind := avdtp.Indications{
		GetCapability: func(sess avdtp.Session) []avdtp.Capability {
			var caps []avdtp.Capability
			c.submit(func() {
				caps = []avdtp.Capability{
					{Kind: avdtp.CapMediaTransport},
					{Kind: avdtp.CapMediaCodec, Media: avdtp.MediaAudio, CodecType: uint8(ep.Codec), Payload: ep.Presets.Caps.Bytes},
				}
			})
			return caps
		},
		SetConfiguration: func(sess avdtp.Session, caps []avdtp.Capability, stream avdtp.Stream) error {
			var err error
			c.submit(func() { err = c.handlePeerSetConfiguration(ep, sess, caps, stream) })
			return err
		},
		Open: func(sess avdtp.Session, stream avdtp.Stream) error {
			var err error
			c.submit(func() { err = c.requireSetup(ep) })
			return err
		},
		Start: func(sess avdtp.Session, stream avdtp.Stream) error {
			var err error
			c.submit(func() { err = c.requireSetup(ep) })
			return err
		},
		Suspend: func(sess avdtp.Session, stream avdtp.Stream) error {
			var err error
			c.submit(func() { err = c.requireSetup(ep) })
			return err
		},
		Close: func(sess avdtp.Session, stream avdtp.Stream) error {
			var err error
			c.submit(func() {
				s, ok := c.setups.FindByEndpoint(ep.ID)
				if !ok {
					err = ErrSEPNotInUse
					return
				}
				c.setups.Destroy(s)
				metrics.IncSetup("destroyed")
				c.refreshGauges()
			})
			return err
		},
	}

	sep := c.deps.Engine.RegisterSEP(avdtp.RoleSource, avdtp.MediaAudio, uint8(req.Codec), ind, avdtp.Confirmations{})
	ep = c.endpoints.Register(req.Codec, sep, req.Presets)
	return ep
}

func (c *Coordinator) requireSetup(ep *endpoint.Endpoint) error {
	if _, ok := c.setups.FindByEndpoint(ep.ID); !ok {
		return ErrSEPNotInUse
	}
	return nil
}

// handlePeerSetConfiguration implements the SET_CONFIGURATION indication
// (spec.md §4.5): reject DELAY_REPORTING, skip non-MEDIA_CODEC entries,
// reject a codec-type mismatch, and run check_config against the
// endpoint's stored presets and capabilities.
func (c *Coordinator) handlePeerSetConfiguration(ep *endpoint.Endpoint, sess avdtp.Session, caps []avdtp.Capability, stream avdtp.Stream) error {
	d, ok := c.devices.FindBySession(sess)
	if !ok {
		return ErrSEPNotInUse
	}

	codecLabel := fmt.Sprintf("0x%02x", uint8(ep.Codec))

	var proposed *avdtp.Capability
	for i := range caps {
		switch caps[i].Kind {
		case avdtp.CapDelayReporting:
			metrics.IncCodecReject(codecLabel)
			return ErrDelayReportingUnsupported
		case avdtp.CapMediaCodec:
			if caps[i].CodecType != uint8(ep.Codec) {
				metrics.IncCodecReject(codecLabel)
				return ErrCodecTypeMismatch
			}
			proposed = &caps[i]
		}
	}
	if proposed == nil {
		metrics.IncCodecReject(codecLabel)
		return ErrNoMediaCodec
	}

	p := preset.New(proposed.Payload)
	if err := c.checkConfig(ep, p); err != nil {
		metrics.IncCodecReject(codecLabel)
		return err
	}

	s, err := c.setups.Create(d, ep, p, stream)
	if err != nil {
		metrics.IncSetup("rejected")
		return err
	}
	metrics.IncSetup("created")
	c.refreshGauges()

	if conn, ok := c.pendingTransport.Take(d.Addr); ok {
		c.bindTransport(d, s, conn)
	}
	return nil
}

// checkConfig accepts a proposed preset if it equals any of the
// endpoint's stored preferred presets, else falls back to the codec
// validator against the endpoint's capabilities (spec.md §4.5
// "check_config").
func (c *Coordinator) checkConfig(ep *endpoint.Endpoint, p preset.Preset) error {
	for _, stored := range ep.Presets.Preferred {
		if stored.Equal(p) {
			return nil
		}
	}
	return c.codecs.Validate(ep.Codec, ep.Presets.Caps.Bytes, p.Bytes)
}

// --- Audio IPC accept loop (spec.md §4.6) ---------------------------------

func (c *Coordinator) acceptAudio(ctx context.Context, ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				c.log.Warn().Err(err).Msg("audio accept failed")
				return
			}
		}
		ac := audioipc.NewConn(nc)
		go c.serveAudio(ac)
	}
}

func (c *Coordinator) serveAudio(ac *audioipc.Conn) {
	defer ac.Close()
	for {
		op, payload, err := ac.ReadFrame()
		if err != nil {
			return
		}
		switch op {
		case audioipc.OpOpen:
			c.handleAudioOpen(ac, payload)
		case audioipc.OpClose:
			c.handleAudioClose(ac, payload)
		case audioipc.OpOpenStream:
			c.handleAudioOpenStream(ac, payload)
		case audioipc.OpCloseStream, audioipc.OpResumeStream, audioipc.OpSuspendStream:
			c.handleAudioStreamOp(ac, op, payload)
		default:
			_ = ac.WriteStatus(op, audioipc.StatusFailed)
		}
	}
}

func (c *Coordinator) handleAudioOpen(ac *audioipc.Conn, payload []byte) {
	req, err := audioipc.DecodeOpen(payload)
	if err != nil {
		_ = ac.WriteOpenResult(0, false)
		return
	}
	var id uint32
	c.submit(func() {
		ep := c.registerEndpoint(req)
		id = uint32(ep.ID)
		c.refreshGauges()
	})
	_ = ac.WriteOpenResult(id, true)
}

func (c *Coordinator) handleAudioClose(ac *audioipc.Conn, payload []byte) {
	id, err := audioipc.DecodeID(payload)
	if err != nil {
		_ = ac.WriteStatus(audioipc.OpClose, audioipc.StatusFailed)
		return
	}
	ok := false
	c.submit(func() {
		ep, err := c.endpoints.Find(endpoint.ID(id))
		if err != nil {
			return
		}
		c.endpoints.Unregister(ep)
		c.refreshGauges()
		ok = true
	})
	_ = ac.WriteStatus(audioipc.OpClose, statusAudioOf(ok))
}

func (c *Coordinator) handleAudioOpenStream(ac *audioipc.Conn, payload []byte) {
	id, err := audioipc.DecodeID(payload)
	if err != nil {
		_ = ac.WriteStatus(audioipc.OpOpenStream, audioipc.StatusFailed)
		return
	}
	var p preset.Preset
	found := false
	c.submit(func() {
		s, ok := c.setups.FindByEndpoint(endpoint.ID(id))
		if ok {
			p = s.Preset
			found = true
		}
	})
	if !found {
		_ = ac.WriteStatus(audioipc.OpOpenStream, audioipc.StatusFailed)
		return
	}
	_ = ac.WriteStreamPreset(p)
}

func (c *Coordinator) handleAudioStreamOp(ac *audioipc.Conn, op audioipc.Opcode, payload []byte) {
	id, err := audioipc.DecodeID(payload)
	if err != nil {
		_ = ac.WriteStatus(op, audioipc.StatusFailed)
		return
	}
	var ok bool
	c.submit(func() {
		ok = c.driveStreamOp(op, endpoint.ID(id))
	})
	_ = ac.WriteStatus(op, statusAudioOf(ok))
}

// driveStreamOp implements CLOSE_STREAM/RESUME_STREAM/SUSPEND_STREAM:
// look up the setup, drive the matching AVDTP operation, and apply the
// same confirmation discipline as §4.5 ("on error, destroy the setup;
// close success also destroys it").
func (c *Coordinator) driveStreamOp(op audioipc.Opcode, id endpoint.ID) bool {
	s, ok := c.setups.FindByEndpoint(id)
	if !ok {
		return false
	}
	sess, ok := sessionOf(s.Device)
	if !ok {
		return false
	}

	var err error
	switch op {
	case audioipc.OpCloseStream:
		err = c.deps.Engine.Close(sess, s.Stream, false)
	case audioipc.OpResumeStream:
		err = c.deps.Engine.Start(sess, s.Stream)
	case audioipc.OpSuspendStream:
		err = c.deps.Engine.Suspend(sess, s.Stream)
	}

	if err != nil {
		c.setups.Destroy(s)
		metrics.IncSetup("destroyed")
		c.refreshGauges()
		return false
	}
	if op == audioipc.OpCloseStream {
		c.setups.Destroy(s)
		metrics.IncSetup("destroyed")
		c.refreshGauges()
	}
	return true
}

func statusAudioOf(ok bool) audioipc.Status {
	if ok {
		return audioipc.StatusSuccess
	}
	return audioipc.StatusFailed
}
