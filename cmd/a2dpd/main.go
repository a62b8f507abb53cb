// Command a2dpd runs the A2DP source-side profile coordinator described in
// spec.md: it loads configuration, brings up the HAL IPC and audio IPC
// Unix-domain-socket listeners, starts the coordinator's event loop, and
// serves the metrics and status HTTP endpoints until signaled to stop.
//
// Grounded on the flag+signal.NotifyContext entrypoint shape and LIFO
// shutdown-hook discipline of ManuGH/xg2g/cmd/daemon/main.go and
// internal/daemon/manager.go, reduced to this module's much smaller
// surface (no HLS pipeline, no config subcommand, no TLS).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmallat/a2dp-source/internal/avdtp/avdtptest"
	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/config"
	"github.com/hmallat/a2dp-source/internal/coordinator"
	"github.com/hmallat/a2dp-source/internal/l2cap/l2captest"
	xlog "github.com/hmallat/a2dp-source/internal/log"
	"github.com/hmallat/a2dp-source/internal/metrics"
	"github.com/hmallat/a2dp-source/internal/sdp"
	"github.com/hmallat/a2dp-source/internal/statusapi"

	"github.com/rs/zerolog"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	adapterFlag := flag.String("adapter", "", "local Bluetooth adapter address, AA:BB:CC:DD:EE:FF (overrides config)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("a2dpd %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	xlog.Configure(xlog.Config{Level: "info", Service: "a2dpd"})
	logger := xlog.WithComponent("main")

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *adapterFlag != "" {
		a, err := bdaddr.Parse(*adapterFlag)
		if err != nil {
			logger.Fatal().Err(err).Str("adapter", *adapterFlag).Msg("invalid -adapter value")
		}
		cfg.Adapter = a
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "a2dpd"})
	logger = xlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	halListener, err := listenUnix(cfg.HALSocketPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.HALSocketPath).Msg("failed to listen on hal ipc socket")
	}
	audioListener, err := listenUnix(cfg.AudioSocketPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.AudioSocketPath).Msg("failed to listen on audio ipc socket")
	}

	// No production AVDTP engine or BlueZ L2CAP socket binding ships in
	// this module (spec.md §1 treats both as external collaborators
	// consumed through a narrow interface). avdtptest.Fake and
	// l2captest.Fake stand in so the coordinator has something to drive
	// end to end; a deployment wires a real avdtp.Engine and
	// l2cap.Dialer/Listener pair here instead.
	engine := avdtptest.New()
	transport, err := l2captest.New(cfg.Adapter)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start l2cap transport stand-in")
	}

	coord := coordinator.New(coordinator.Deps{
		Adapter:       cfg.Adapter,
		Engine:        engine,
		Dialer:        transport,
		Listener:      transport,
		SDP:           &sdp.LoggingPublisher{Log: sdpLogf(xlog.WithComponent("sdp"))},
		HALListener:   halListener,
		AudioListener: audioListener,
	})

	if err := coord.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("coordinator failed to start")
	}

	metricsSrv := newHTTPServer(cfg.MetricsAddr, metrics.Handler())
	statusSrv := newHTTPServer(cfg.StatusAddr, statusapi.NewRouter(coord.Snapshots()))

	go serveUntilClosed(metricsSrv, "metrics", xlog.WithComponent("metrics"))
	go serveUntilClosed(statusSrv, "status", xlog.WithComponent("statusapi"))

	logger.Info().
		Str("adapter", cfg.Adapter.String()).
		Str("hal_socket", cfg.HALSocketPath).
		Str("audio_socket", cfg.AudioSocketPath).
		Str("metrics_addr", cfg.MetricsAddr).
		Str("status_addr", cfg.StatusAddr).
		Msg("a2dpd started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = statusSrv.Shutdown(shutdownCtx)

	if err := coord.Close(); err != nil {
		logger.Error().Err(err).Msg("coordinator shutdown error")
	}
}

func listenUnix(path string) (net.Listener, error) {
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serveUntilClosed runs srv.ListenAndServe and logs anything other than
// the expected http.ErrServerClosed from a graceful Shutdown.
func serveUntilClosed(srv *http.Server, name string, logger zerolog.Logger) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("http server stopped unexpectedly")
	}
}

// sdpLogf adapts a component logger to sdp.Logf so LoggingPublisher logs
// through the same structured logger as everything else, without sdp
// importing zerolog directly (spec.md §1: SDP publication is an external
// collaborator consumed through a narrow interface).
func sdpLogf(logger zerolog.Logger) sdp.Logf {
	return func(format string, args ...any) {
		logger.Info().Msg(fmt.Sprintf(format, args...))
	}
}
