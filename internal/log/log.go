// Package log provides the structured logger used throughout this module.
//
// Grounded on ManuGH/xg2g's internal/log package: a package-level
// configurable zerolog base logger with Configure/L/WithComponent. The
// teacher's audit trail, HTTP middleware, and in-memory log-buffer API are
// dropped here — this module has no HTTP request surface of its own
// beyond the optional status endpoint (internal/statusapi), which logs
// through WithComponent like everything else rather than needing request
// middleware.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"; default "info"
	Output  io.Writer // defaults to os.Stdout
	Service string    // defaults to "a2dpd"
}

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Configure initializes the global logger. Safe to call more than once;
// the most recent call wins.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	service := cfg.Service
	if service == "" {
		service = "a2dpd"
	}

	base = zerolog.New(writer).With().
		Timestamp().
		Str("service", service).
		Logger()

	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

// L returns the global base logger.
func L() *zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return &base
}

// WithComponent returns a logger with a "component" field set, the way
// every package in this module tags its own log lines (e.g.
// log.WithComponent("coordinator"), log.WithComponent("hal")).
func WithComponent(component string) zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}
