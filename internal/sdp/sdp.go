// Package sdp builds the A2DP source SDP service record and exposes it
// through a narrow Publisher interface (spec.md §1 "out of scope: the SDP
// record publication service", §4.8/§6).
//
// Record field values are grounded on a2dp_record() in
// original_source/android/a2dp.c.
package sdp

import (
	"context"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/l2cap"
)

// Profile version and feature bits, per spec.md §6.
const (
	ProfileVersion     = 0x0103 // AdvancedAudioDistribution v1.3
	SupportedFeatures  = 0x000F
	ServiceHintCapture = 0x08
)

// Record is the SDP service record this module publishes once at startup
// (spec.md §6 "SDP record").
type Record struct {
	ServiceClass string // "AudioSource"
	Profile      uint16
	L2CAPPSM     int
	Features     uint16
	ServiceHint  uint8
	Name         string // info-attribute name, "Audio Source"
}

// NewRecord returns the fixed A2DP source record this module always
// publishes.
func NewRecord() Record {
	return Record{
		ServiceClass: "AudioSource",
		Profile:      ProfileVersion,
		L2CAPPSM:     l2cap.PSM,
		Features:     SupportedFeatures,
		ServiceHint:  ServiceHintCapture,
		Name:         "Audio Source",
	}
}

// Publisher registers and deregisters an SDP record with the local SDP
// daemon. Real SDP registration is system-specific and out of this
// module's scope (spec.md §1); the default implementation
// (LoggingPublisher) only logs the intent.
type Publisher interface {
	Publish(ctx context.Context, adapter bdaddr.Addr, rec Record) error
	Unpublish(ctx context.Context) error
}

// Logf is the minimal logging hook LoggingPublisher calls, satisfied by
// internal/log's component logger without this package importing zerolog
// directly.
type Logf func(format string, args ...any)

// LoggingPublisher is the default Publisher: it does not talk to a real
// SDP daemon, only logs what it would have published.
type LoggingPublisher struct {
	Log Logf
}

var _ Publisher = (*LoggingPublisher)(nil)

func (p *LoggingPublisher) log(format string, args ...any) {
	if p.Log != nil {
		p.Log(format, args...)
	}
}

func (p *LoggingPublisher) Publish(ctx context.Context, adapter bdaddr.Addr, rec Record) error {
	p.log("sdp: would publish %q for adapter %s (psm=0x%02x, features=0x%04x)",
		rec.Name, adapter, rec.L2CAPPSM, rec.Features)
	return nil
}

func (p *LoggingPublisher) Unpublish(ctx context.Context) error {
	p.log("sdp: would unpublish Audio Source record")
	return nil
}
