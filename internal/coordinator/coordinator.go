// Package coordinator implements the A2DP source profile coordinator:
// the single-goroutine event loop that binds the device table, endpoint
// registry, and setup broker together and drives them from the HAL IPC,
// audio IPC, and AVDTP/L2CAP event sources (spec.md §5).
//
// Grounded on bt_a2dp_register/bt_a2dp_unregister's module lifecycle and
// the callback-driven control flow of original_source/android/a2dp.c, with
// the "intrusive singletons -> explicit context" redesign from spec.md §9
// applied throughout: every process-wide collection the original kept as
// globals is a field of Coordinator here, constructed once and passed to
// every callback by closure rather than touched through package state.
// The daemon Start/Shutdown shape (register hooks run in LIFO order) is
// grounded on ManuGH/xg2g/internal/daemon/manager.go.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/hmallat/a2dp-source/internal/avdtp"
	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/bluetooth/codec"
	"github.com/hmallat/a2dp-source/internal/bluetooth/device"
	"github.com/hmallat/a2dp-source/internal/bluetooth/endpoint"
	"github.com/hmallat/a2dp-source/internal/bluetooth/setup"
	"github.com/hmallat/a2dp-source/internal/hal"
	"github.com/hmallat/a2dp-source/internal/l2cap"
	"github.com/hmallat/a2dp-source/internal/log"
	"github.com/hmallat/a2dp-source/internal/metrics"
	"github.com/hmallat/a2dp-source/internal/sdp"
	"github.com/hmallat/a2dp-source/internal/statusapi"

	"github.com/rs/zerolog"
)

// Deps are the external collaborators the coordinator is built around
// (spec.md §1 "out of scope" list): a concrete AVDTP engine binding, an
// L2CAP dialer/listener pair, an SDP publisher, and the two IPC
// transports' listeners.
type Deps struct {
	Adapter  bdaddr.Addr
	Engine   avdtp.Engine
	Dialer   l2cap.Dialer
	Listener l2cap.Listener
	SDP      sdp.Publisher

	HALListener   net.Listener
	AudioListener net.Listener
}

// Coordinator owns the device table, endpoint registry, setup broker, and
// codec validator registry, and runs the single execution context
// described in spec.md §5.
type Coordinator struct {
	deps Deps
	log  zerolog.Logger

	codecs    *codec.Registry
	devices   *device.Table
	endpoints *endpoint.Registry
	setups    *setup.Broker

	// pendingTransport holds a media transport channel that arrived before
	// the setup it belongs to was created, keyed by the owning device's
	// address (spec.md §4.5: the peer's second L2CAP connection can win
	// the race against our own SET_CONFIGURATION confirmation).
	pendingTransport *l2cap.Registry

	events chan func()
	done   chan struct{}
	cancel context.CancelFunc
	runCtx context.Context

	// halConn is the current HAL IPC connection CONN_STATE notifications
	// are written to, or nil if no HAL client is attached. Only ever read
	// or written from the single execution context.
	halConn *hal.Conn

	mu            sync.Mutex // guards started/closed only; never domain state
	started       bool
	closed        bool
	shutdownHooks []namedHook
}

type namedHook struct {
	name string
	fn   func()
}

// ErrAlreadyStarted / ErrNotStarted guard Start/Close against misuse.
var (
	ErrAlreadyStarted = errors.New("coordinator: already started")
	ErrNotStarted     = errors.New("coordinator: not started")
)

// New constructs a Coordinator. Start must be called before it does
// anything.
func New(deps Deps) *Coordinator {
	return &Coordinator{
		deps:             deps,
		log:              log.WithComponent("coordinator"),
		codecs:           codec.NewRegistry(),
		devices:          device.NewTable(),
		endpoints:        endpoint.NewRegistry(),
		setups:           setup.NewBroker(),
		pendingTransport: l2cap.NewRegistry(),
		events:           make(chan func(), 64),
		done:             make(chan struct{}),
	}
}

// submit enqueues fn to run on the coordinator's single execution
// context and returns once it has run. Every external-facing goroutine
// (HAL/audio IPC accept loops, L2CAP accept loop, AVDTP callbacks) uses
// this instead of touching coordinator state directly (spec.md §5: "no
// component takes locks; all mutation... happens on one execution
// context").
func (c *Coordinator) submit(fn func()) {
	reply := make(chan struct{})
	select {
	case c.events <- func() { fn(); close(reply) }:
		<-reply
	case <-c.done:
	}
}

// Start registers the A2DP source SDP record, registers the HAL/audio IPC
// and L2CAP accept loops, and starts the event loop. Grounded on
// bt_a2dp_register in original_source/android/a2dp.c.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.runCtx = runCtx

	if c.deps.SDP != nil {
		if err := c.deps.SDP.Publish(runCtx, c.deps.Adapter, sdp.NewRecord()); err != nil {
			return fmt.Errorf("coordinator: publish sdp record: %w", err)
		}
		c.registerShutdownHook("sdp", func() {
			_ = c.deps.SDP.Unpublish(context.Background())
		})
	}

	go c.run()

	if c.deps.HALListener != nil {
		go c.acceptHAL(runCtx, c.deps.HALListener)
	}
	if c.deps.AudioListener != nil {
		go c.acceptAudio(runCtx, c.deps.AudioListener)
	}
	if c.deps.Listener != nil {
		go c.acceptL2CAP(runCtx, c.deps.Listener)
	}

	c.log.Info().Str("adapter", c.deps.Adapter.String()).Msg("coordinator started")
	return nil
}

func (c *Coordinator) registerShutdownHook(name string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdownHooks = append(c.shutdownHooks, namedHook{name: name, fn: fn})
}

// Close tears the coordinator down: force-disconnects every tracked
// device, unregisters every endpoint, unpublishes the SDP record, and
// stops the event loop. Grounded on bt_a2dp_unregister.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.deps.Listener != nil {
		_ = c.deps.Listener.Close()
	}
	if c.deps.HALListener != nil {
		_ = c.deps.HALListener.Close()
	}
	if c.deps.AudioListener != nil {
		_ = c.deps.AudioListener.Close()
	}

	c.submit(func() {
		for _, d := range c.liveDevices() {
			c.destroyDevice(d)
		}
		for _, ep := range c.endpoints.Each() {
			c.endpoints.Unregister(ep)
		}
		c.refreshGauges()
	})

	for i := len(c.shutdownHooks) - 1; i >= 0; i-- {
		h := c.shutdownHooks[i]
		c.log.Debug().Str("hook", h.name).Msg("running shutdown hook")
		h.fn()
	}

	close(c.done)
	c.log.Info().Msg("coordinator stopped")
	return nil
}

func (c *Coordinator) run() {
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) liveDevices() []*device.Device {
	return c.devices.Each()
}

// Snapshots returns the closures internal/statusapi needs to answer
// read-only status queries without touching coordinator state from
// another goroutine directly (spec.md §5's single-execution-context rule
// applies to reads too).
func (c *Coordinator) Snapshots() statusapi.Snapshots {
	return statusapi.Snapshots{
		Devices: func() []statusapi.DeviceSnapshot {
			var out []statusapi.DeviceSnapshot
			c.submit(func() {
				for _, d := range c.devices.Each() {
					out = append(out, statusapi.DeviceSnapshot{Addr: d.Addr.String(), State: d.State.String()})
				}
			})
			return out
		},
		Endpoints: func() []statusapi.EndpointSnapshot {
			var out []statusapi.EndpointSnapshot
			c.submit(func() {
				for _, ep := range c.endpoints.Each() {
					out = append(out, statusapi.EndpointSnapshot{ID: uint32(ep.ID), Codec: uint8(ep.Codec)})
				}
			})
			return out
		},
	}
}

// refreshGauges updates the live device/setup gauges; called at the end
// of every state-changing operation.
func (c *Coordinator) refreshGauges() {
	metrics.DevicesGauge.Set(float64(c.devices.Len()))
	metrics.SetupsGauge.Set(float64(c.setups.Len()))
}
