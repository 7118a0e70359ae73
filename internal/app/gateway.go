package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/connection"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/hub"
	"github.com/pscheid92/n2kbridge/internal/metrics"
)

const (
	DefaultTickInterval       = time.Millisecond
	DefaultMaxMessagesPerTick = 256
	commandTimeout            = 5 * time.Second
	commandChannelSize        = 16
	depthInterval             = time.Second
)

// ErrGatewayStopped is returned by commands sent after Run has returned.
var ErrGatewayStopped = errors.New("gateway stopped")

// gatewayCmd is the command interface for the gateway loop.
type gatewayCmd interface{ isGatewayCmd() }

type baseGatewayCmd struct{}

func (baseGatewayCmd) isGatewayCmd() {}

type clientsCmd struct {
	baseGatewayCmd
	replyChannel chan []domain.ClientInfo
}

type GatewayOptions struct {
	TickInterval       time.Duration
	MaxMessagesPerTick int
}

// Gateway owns the message hub and the connection manager and drives both
// from a single goroutine.
type Gateway struct {
	bus          domain.Transport
	messages     *hub.Hub[domain.Message]
	conns        *connection.Manager
	clock        clockwork.Clock
	tickInterval time.Duration
	maxPerTick   int
	cmdCh        chan gatewayCmd
	done         chan struct{}
	running      atomic.Bool
}

func NewGateway(bus domain.Transport, messages *hub.Hub[domain.Message], conns *connection.Manager, clock clockwork.Clock, opts GatewayOptions) *Gateway {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.MaxMessagesPerTick <= 0 {
		opts.MaxMessagesPerTick = DefaultMaxMessagesPerTick
	}
	return &Gateway{
		bus:          bus,
		messages:     messages,
		conns:        conns,
		clock:        clock,
		tickInterval: opts.TickInterval,
		maxPerTick:   opts.MaxMessagesPerTick,
		cmdCh:        make(chan gatewayCmd, commandChannelSize),
		done:         make(chan struct{}),
	}
}

// Run drives the gateway until ctx is cancelled, then closes every client.
func (g *Gateway) Run(ctx context.Context) {
	g.running.Store(true)
	defer close(g.done)
	defer g.running.Store(false)
	defer g.shutdown()

	ticker := g.clock.NewTicker(g.tickInterval)
	defer ticker.Stop()

	depthTicker := g.clock.NewTicker(depthInterval)
	defer depthTicker.Stop()

	slog.Info("Gateway loop started", "tick_interval", g.tickInterval, "capacity", g.conns.Capacity())

	for {
		select {
		case <-ctx.Done():
			return

		case <-depthTicker.Chan():
			metrics.SchedulerCommandChannelDepth.Set(float64(len(g.cmdCh)))

		case cmd := <-g.cmdCh:
			switch c := cmd.(type) {
			case clientsCmd:
				c.replyChannel <- g.conns.Clients()
			default:
				slog.Warn("Gateway received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}

		case <-ticker.Chan():
			g.safeTick()
		}
	}
}

func (g *Gateway) shutdown() {
	n := g.conns.Len()
	g.conns.CloseAll(connection.ReasonShutdown)
	slog.Info("Gateway loop stopped", "disconnected_clients", n)
}

func (g *Gateway) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Gateway tick panic recovered", "panic", r)
			metrics.SchedulerPanicsTotal.Inc()
		}
	}()
	g.tick()
}

// tick runs one pass: drain the bus into the hub, then accept and sweep.
func (g *Gateway) tick() {
	start := g.clock.Now()
	defer func() {
		elapsed := g.clock.Since(start)
		metrics.SchedulerTickDuration.Observe(elapsed.Seconds())
		if elapsed > g.tickInterval {
			metrics.SchedulerSlowTicksTotal.Inc()
		}
	}()

	for _, msg := range g.bus.Poll(g.maxPerTick) {
		if err := g.messages.Publish(msg); err != nil {
			slog.Error("Failed to publish bus message", "pgn", msg.PGN, "error", err)
		}
	}

	g.conns.AcceptPending()
	g.conns.Sweep()
}

// Clients returns the live client list as seen by the gateway loop.
func (g *Gateway) Clients(ctx context.Context) ([]domain.ClientInfo, error) {
	reply := make(chan []domain.ClientInfo, 1)

	select {
	case g.cmdCh <- clientsCmd{replyChannel: reply}:
	case <-g.done:
		return nil, ErrGatewayStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	timer := g.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case infos := <-reply:
		return infos, nil
	case <-g.done:
		return nil, ErrGatewayStopped
	case <-timer.Chan():
		return nil, fmt.Errorf("clients command timed out after %v", commandTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Running reports whether Run is active.
func (g *Gateway) Running() bool {
	return g.running.Load()
}

// Done is closed when Run returns.
func (g *Gateway) Done() <-chan struct{} {
	return g.done
}
