package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/app"
	"github.com/pscheid92/n2kbridge/internal/broadcast"
	"github.com/pscheid92/n2kbridge/internal/clocksync"
	"github.com/pscheid92/n2kbridge/internal/connection"
	"github.com/pscheid92/n2kbridge/internal/httpserver"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/pscheid92/n2kbridge/internal/nmea2000"
	"github.com/pscheid92/n2kbridge/internal/platform/config"
	"github.com/pscheid92/n2kbridge/internal/platform/logging"
	"github.com/pscheid92/n2kbridge/internal/platform/version"
	"github.com/pscheid92/n2kbridge/internal/relay"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupBus(ctx context.Context, cfg *config.Config, clock clockwork.Clock) *nmea2000.StreamTransport {
	source, err := nmea2000.OpenSource(ctx, cfg.BusInput, clock)
	if err != nil {
		slog.Error("Failed to open bus source", "input", cfg.BusInput, "error", err)
		os.Exit(1)
	}

	sink, err := nmea2000.OpenSink(ctx, cfg.BusOutput, clock)
	if err != nil {
		slog.Error("Failed to open bus sink", "output", cfg.BusOutput, "error", err)
		os.Exit(1)
	}

	opts := nmea2000.TransportOptions{Receive: nmea2000.ReceivePGNs}
	if sink != nil {
		opts.Sink = sink
	} else {
		slog.Info("No bus output configured, transport is read-only")
	}
	return nmea2000.NewStreamTransport(source, clock, opts)
}

func setupListener(cfg *config.Config, clock clockwork.Clock) *connection.TCPListener {
	ln, err := connection.Listen(net.JoinHostPort("", cfg.Port), clock, connection.ListenerOptions{
		Backlog:      cfg.AcceptBacklog,
		SendBuffer:   cfg.ClientSendBuffer,
		WriteTimeout: cfg.ClientWriteTimeout,
		AcceptRate:   cfg.AcceptRate,
		AcceptBurst:  cfg.AcceptBurst,
	})
	if err != nil {
		slog.Error("Failed to listen", "port", cfg.Port, "error", err)
		os.Exit(1)
	}
	return ln
}

// setupRelay returns nil when no Redis URL is configured.
func setupRelay(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*relay.Relay, *goredis.Client) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	rdb, err := relay.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to configure Redis", "error", err)
		os.Exit(1)
	}
	if err := relay.Connect(ctx, rdb, clock); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	r := relay.New(rdb, cfg.RedisChannel, cfg.GatewayID, clock, relay.DefaultQueueSize)
	slog.Info("Sentence relay enabled", "channel", cfg.RedisChannel, "gateway_id", r.GatewayID())
	return r, rdb
}

func healthChecks(bus *nmea2000.StreamTransport, ln *connection.TCPListener, gw *app.Gateway) []httpserver.HealthCheck {
	return []httpserver.HealthCheck{
		{Name: "bus", Check: func(_ context.Context) error {
			select {
			case <-bus.Done():
				if err := bus.Err(); err != nil {
					return fmt.Errorf("bus source closed: %w", err)
				}
				return errors.New("bus source closed")
			default:
				return nil
			}
		}},
		{Name: "listener", Check: func(_ context.Context) error {
			if !ln.Open() {
				return errors.New("listener closed")
			}
			return nil
		}},
		{Name: "gateway", Check: func(_ context.Context) error {
			if !gw.Running() {
				return app.ErrGatewayStopped
			}
			return nil
		}},
	}
}

func startAdmin(cfg *config.Config, gw *app.Gateway, clock clockwork.Clock, checks []httpserver.HealthCheck) *httpserver.Server {
	if cfg.AdminPort == "" {
		return nil
	}

	srv := httpserver.NewServer(net.JoinHostPort("", cfg.AdminPort), gw, clock, checks)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin server error", "error", err)
		}
	}()
	return srv
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)
	slog.Info("Gateway starting", "product", version.ProductName, "version", info.Version, "env", cfg.AppEnv, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := setupBus(ctx, cfg, clock)
	defer func() { _ = bus.Close() }()

	ln := setupListener(cfg, clock)
	conns := connection.NewManager(ln, clock, cfg.MaxClients)
	broadcaster := broadcast.New(conns)

	discipline := clocksync.New(clock, clocksync.NewSetter(cfg.ClockSyncEnabled), cfg.ClockSyncInterval)

	sentenceRelay, rdb := setupRelay(ctx, cfg, clock)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	opts := app.PipelineOptions{
		Clock:     clock,
		ClockSync: discipline,
		SeaSmart:  cfg.SeaSmartEnabled,
		NMEA0183:  cfg.NMEA0183Enabled,
	}
	if sentenceRelay != nil {
		opts.Relay = sentenceRelay
	}
	pipeline := app.NewPipeline(broadcaster, opts)

	gw := app.NewGateway(bus, pipeline.Messages, conns, clock, app.GatewayOptions{
		TickInterval:       cfg.TickInterval,
		MaxMessagesPerTick: cfg.MaxMessagesPerTick,
	})

	admin := startAdmin(cfg, gw, clock, healthChecks(bus, ln, gw))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go gw.Run(runCtx)

	slog.Info("Gateway ready", "addr", ln.Addr().String(), "capacity", conns.Capacity(), "pipeline", pipeline.Layout)

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, cleaning up...")
	case <-bus.Done():
		slog.Warn("Bus source ended, shutting down", "error", bus.Err())
	}

	shutdown(cancel, gw, ln, sentenceRelay, admin)
}

func shutdown(cancel context.CancelFunc, gw *app.Gateway, ln *connection.TCPListener, r *relay.Relay, admin *httpserver.Server) {
	if err := ln.Close(); err != nil {
		slog.Error("Listener close error", "error", err)
	}

	cancel()
	<-gw.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if r != nil {
		if err := r.Close(shutdownCtx); err != nil {
			slog.Error("Relay shutdown error", "error", err)
		}
	}
	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			slog.Error("Admin server shutdown error", "error", err)
		}
	}

	slog.Info("Gateway stopped")
}
