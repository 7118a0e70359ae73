package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
	block chan struct{}
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{channel: channel, payload: message.([]byte)})
	if p.err != nil {
		return goredis.NewIntResult(0, p.err)
	}
	return goredis.NewIntResult(1, nil)
}

func (p *fakePublisher) published() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.calls...)
}

func closeRelay(t *testing.T, r *Relay) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Close(ctx))
}

func TestRelay_PublishesEnvelope(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	pub := &fakePublisher{}
	r := New(pub, "n2k:nmea0183", "gw-1", clock, 8)

	r.Accept("$GPHDT,90.0,T*0C")
	r.Accept("")
	closeRelay(t, r)

	calls := pub.published()
	require.Len(t, calls, 1)
	assert.Equal(t, "n2k:nmea0183", calls[0].channel)

	var env Envelope
	require.NoError(t, json.Unmarshal(calls[0].payload, &env))
	assert.Equal(t, "gw-1", env.GatewayID)
	assert.Equal(t, "$GPHDT,90.0,T*0C", env.Line)
	assert.True(t, clock.Now().Equal(env.PublishedAt))
	assert.JSONEq(t, `{"gateway_id":"gw-1","line":"$GPHDT,90.0,T*0C","published_at":"2024-03-15T12:00:00Z"}`, string(calls[0].payload))
}

func TestRelay_PreservesOrder(t *testing.T) {
	pub := &fakePublisher{}
	r := New(pub, "ch", "gw", clockwork.NewFakeClock(), 64)

	for i := 0; i < 20; i++ {
		r.Accept(fmt.Sprintf("line-%d", i))
	}
	closeRelay(t, r)

	calls := pub.published()
	require.Len(t, calls, 20)
	for i, c := range calls {
		var env Envelope
		require.NoError(t, json.Unmarshal(c.payload, &env))
		assert.Equal(t, fmt.Sprintf("line-%d", i), env.Line)
	}
}

func TestRelay_DropsWhenQueueFull(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	r := New(pub, "ch", "gw", clockwork.NewFakeClock(), 2)

	before := testutil.ToFloat64(metrics.RelayDroppedTotal)

	// the worker takes at most one line and blocks in Publish
	for _i := 0; _i < 10; _i++ {
		r.Accept("x")
	}

	dropped := testutil.ToFloat64(metrics.RelayDroppedTotal) - before
	assert.GreaterOrEqual(t, dropped, 7.0)

	close(pub.block)
	closeRelay(t, r)
	assert.Equal(t, 10, len(pub.published())+int(dropped))
}

func TestRelay_PublishStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "success"},
		{"redis error", errors.New("connection reset"), "error"},
		{"breaker open", fmt.Errorf("redis circuit breaker open: %w", gobreaker.ErrOpenState), "circuit_open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.RelayPublishedTotal.WithLabelValues(tt.status))

			r := New(&fakePublisher{err: tt.err}, "ch", "gw", clockwork.NewFakeClock(), 4)
			r.Accept("line")
			closeRelay(t, r)

			assert.Equal(t, before+1, testutil.ToFloat64(metrics.RelayPublishedTotal.WithLabelValues(tt.status)))
		})
	}
}

func TestRelay_CloseHonoursContext(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	r := New(pub, "ch", "gw", clockwork.NewFakeClock(), 4)
	r.Accept("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(pub.block)
	closeRelay(t, r)
}

func TestResolveGatewayID(t *testing.T) {
	assert.Equal(t, "boat-7", ResolveGatewayID("boat-7"))

	generated := ResolveGatewayID("")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.NotEqual(t, generated, ResolveGatewayID(""))
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)

	rdb, err := NewClient("redis://localhost:6379/0")
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())
}
