package hub

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	consumer int
	msg      domain.Message
}

type recorder struct {
	calls []call
}

func (r *recorder) consumer(id int) domain.Consumer[domain.Message] {
	return domain.ConsumerFunc[domain.Message](func(m domain.Message) {
		r.calls = append(r.calls, call{consumer: id, msg: m})
	})
}

func message(pgn uint32, data ...byte) domain.Message {
	return domain.Message{PGN: pgn, Priority: 2, Source: 7, Destination: domain.Broadcast, Data: data}
}

func TestHub_InvokesConsumersInRegistrationOrder(t *testing.T) {
	h := New[domain.Message]("bus")
	rec := &recorder{}
	for i := 0; i < 3; i++ {
		sub := h.Subscribe(rec.consumer(i))
		assert.Equal(t, i, sub.Index())
	}

	msgs := []domain.Message{message(129025, 1, 2), message(127250, 3), message(130306)}
	for _, m := range msgs {
		require.NoError(t, h.Publish(m))
	}

	require.Len(t, rec.calls, 9)
	for i, c := range rec.calls {
		assert.Equal(t, i%3, c.consumer, "call %d out of registration order", i)
		assert.Equal(t, msgs[i/3], c.msg, "call %d received a different message", i)
	}
}

func TestHub_CurrentIsLastWriteWins(t *testing.T) {
	h := New[domain.Message]("bus")

	_, ok := h.Current()
	assert.False(t, ok)

	require.NoError(t, h.Publish(message(129025, 1)))
	require.NoError(t, h.Publish(message(129026, 2)))

	cur, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, uint32(129026), cur.PGN)
}

func TestHub_PanickingConsumerDoesNotStopOthers(t *testing.T) {
	metrics.HubConsumerPanicsTotal.Reset()
	h := New[string]("sentences")

	var got []string
	h.Subscribe(domain.ConsumerFunc[string](func(s string) { got = append(got, "first:"+s) }))
	h.Subscribe(domain.ConsumerFunc[string](func(string) { panic("boom") }))
	h.Subscribe(domain.ConsumerFunc[string](func(s string) { got = append(got, "third:"+s) }))

	require.NoError(t, h.Publish("$GPGLL"))

	assert.Equal(t, []string{"first:$GPGLL", "third:$GPGLL"}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HubConsumerPanicsTotal.WithLabelValues("sentences")))
}

func TestHub_RejectsReentrantPublish(t *testing.T) {
	h := New[string]("loop")

	var inner error
	count := 0
	h.Subscribe(domain.ConsumerFunc[string](func(s string) {
		count++
		inner = h.Publish(s + "!")
	}))

	require.NoError(t, h.Publish("x"))
	assert.ErrorIs(t, inner, ErrReentrantPublish)
	assert.Equal(t, 1, count)

	cur, _ := h.Current()
	assert.Equal(t, "x", cur)

	// the hub is usable again after the rejected publish
	require.NoError(t, h.Publish("y"))
	assert.Equal(t, 2, count)
}

func TestHub_PublishWithoutConsumers(t *testing.T) {
	h := New[domain.Message]("bus")
	assert.Equal(t, 0, h.Len())
	assert.NoError(t, h.Publish(message(126992)))
}
