package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultQueueSize = 256
	publishTimeout   = 2 * time.Second
)

// Publisher is the subset of *redis.Client the relay needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Envelope is the JSON document published for every sentence.
type Envelope struct {
	GatewayID   string    `json:"gateway_id"`
	Line        string    `json:"line"`
	PublishedAt time.Time `json:"published_at"`
}

type Relay struct {
	pub       Publisher
	channel   string
	gatewayID string
	clock     clockwork.Clock
	queue     chan Envelope
	done      chan struct{}
	stop      sync.Once
	wg        sync.WaitGroup
}

var _ domain.Consumer[string] = (*Relay)(nil)

// New starts a relay publishing to channel. An empty gatewayID is replaced
// by a random UUID.
func New(pub Publisher, channel, gatewayID string, clock clockwork.Clock, queueSize int) *Relay {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Relay{
		pub:       pub,
		channel:   channel,
		gatewayID: ResolveGatewayID(gatewayID),
		clock:     clock,
		queue:     make(chan Envelope, queueSize),
		done:      make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// ResolveGatewayID returns id, or a fresh UUID when id is empty.
func ResolveGatewayID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (r *Relay) GatewayID() string { return r.gatewayID }

// Accept enqueues line for publishing. A full queue drops the line.
func (r *Relay) Accept(line string) {
	if line == "" {
		return
	}
	env := Envelope{GatewayID: r.gatewayID, Line: line, PublishedAt: r.clock.Now().UTC()}
	select {
	case r.queue <- env:
	default:
		metrics.RelayDroppedTotal.Inc()
	}
}

func (r *Relay) run() {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Relay panic recovered", "panic", rec)
		}
	}()

	for {
		select {
		case env := <-r.queue:
			r.publish(env)
		case <-r.done:
			r.drain()
			return
		}
	}
}

func (r *Relay) drain() {
	for {
		select {
		case env := <-r.queue:
			r.publish(env)
		default:
			return
		}
	}
}

func (r *Relay) publish(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("Failed to marshal relay envelope", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = r.pub.Publish(ctx, r.channel, data).Err()
	switch {
	case err == nil:
		metrics.RelayPublishedTotal.WithLabelValues("success").Inc()
	case IsOpen(err):
		metrics.RelayPublishedTotal.WithLabelValues("circuit_open").Inc()
	default:
		metrics.RelayPublishedTotal.WithLabelValues("error").Inc()
		slog.Warn("Failed to relay sentence", "channel", r.channel, "error", err)
	}
}

// Close stops accepting work, publishes what is queued and waits for the
// worker, or for ctx.
func (r *Relay) Close(ctx context.Context) error {
	r.stop.Do(func() { close(r.done) })

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		slog.Info("Relay stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay shutdown: %w", ctx.Err())
	}
}
