package connection

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	remote    string
	connected bool
	inbox     []byte
	lines     []string
	writeErr  error
	closed    int
}

func newFakeConn(remote string) *fakeConn {
	return &fakeConn{remote: remote, connected: true}
}

func (c *fakeConn) Connected() bool { return c.connected }
func (c *fakeConn) Available() int  { return len(c.inbox) }

func (c *fakeConn) ReadByte() (byte, error) {
	if len(c.inbox) == 0 {
		return 0, domain.ErrNoData
	}
	b := c.inbox[0]
	c.inbox = c.inbox[1:]
	return b, nil
}

func (c *fakeConn) WriteLine(line string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.lines = append(c.lines, line)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed++
	c.connected = false
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.remote }

type fakeListener struct {
	queue []domain.Conn
	polls int
}

func (l *fakeListener) TryAccept() (domain.Conn, bool) {
	l.polls++
	if len(l.queue) == 0 {
		return nil, false
	}
	c := l.queue[0]
	l.queue = l.queue[1:]
	return c, true
}

func (l *fakeListener) Pending() int { return len(l.queue) }

func (l *fakeListener) push(conns ...*fakeConn) {
	for _, c := range conns {
		l.queue = append(l.queue, c)
	}
}

func liveRemotes(m *Manager) []string {
	var out []string
	m.ForEachLive(func(c *Client) { out = append(out, c.RemoteAddr()) })
	return out
}

func acceptAll(m *Manager) {
	for m.AcceptPending() {
	}
}

func TestManager_AcceptPending(t *testing.T) {
	l := &fakeListener{}
	m := NewManager(l, clockwork.NewFakeClock(), 10)

	assert.False(t, m.AcceptPending(), "nothing pending")

	l.push(newFakeConn("a"), newFakeConn("b"))
	assert.True(t, m.AcceptPending())
	assert.Equal(t, 1, m.Len(), "one connection per call")
	assert.True(t, m.AcceptPending())
	assert.False(t, m.AcceptPending())

	assert.Equal(t, []string{"a", "b"}, liveRemotes(m))
}

func TestManager_AcceptDeferredAtCapacity(t *testing.T) {
	l := &fakeListener{}
	m := NewManager(l, clockwork.NewFakeClock(), 2)
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	l.push(a, b, c)

	before := testutil.ToFloat64(metrics.ConnectionsDeferredTotal)
	acceptAll(m)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, l.Pending(), "third client stays with the listener")
	assert.Zero(t, c.closed, "deferred, not rejected")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ConnectionsDeferredTotal))

	pollsAtCapacity := l.polls
	m.AcceptPending()
	assert.Equal(t, pollsAtCapacity, l.polls, "listener is not polled at capacity")

	a.connected = false
	m.Sweep()
	require.True(t, m.AcceptPending())
	assert.Equal(t, []string{"b", "c"}, liveRemotes(m))
}

func TestManager_SweepRemovesClosed(t *testing.T) {
	// Every subset of five connections closed between accept and sweep.
	for mask := 0; mask < 1<<5; mask++ {
		t.Run(fmt.Sprintf("closed=%05b", mask), func(t *testing.T) {
			l := &fakeListener{}
			m := NewManager(l, clockwork.NewFakeClock(), 10)

			conns := make([]*fakeConn, 5)
			for i := range conns {
				conns[i] = newFakeConn(fmt.Sprintf("c%d", i))
				l.push(conns[i])
			}
			acceptAll(m)

			var want []string
			for i, c := range conns {
				if mask&(1<<i) != 0 {
					c.connected = false
				} else {
					want = append(want, c.remote)
				}
			}

			removed := m.Sweep()

			assert.Equal(t, 5-len(want), removed)
			assert.Equal(t, want, liveRemotes(m))
			for i, c := range conns {
				if mask&(1<<i) != 0 {
					assert.Equal(t, 1, c.closed, "%s closed once", c.remote)
				} else {
					assert.Zero(t, c.closed)
				}
			}

			assert.Zero(t, m.Sweep(), "second sweep removes nothing")
			assert.Equal(t, want, liveRemotes(m))
		})
	}
}

func TestManager_DisconnectByte(t *testing.T) {
	l := &fakeListener{}
	m := NewManager(l, clockwork.NewFakeClock(), 10)

	talker := newFakeConn("talker")
	talker.inbox = []byte("hello\r\n")
	kicker := newFakeConn("kicker")
	kicker.inbox = []byte{'x', DisconnectByte, 'y'}
	gone := newFakeConn("gone")
	gone.inbox = []byte{DisconnectByte}
	l.push(talker, kicker, gone)
	acceptAll(m)
	gone.connected = false

	before := testutil.ToFloat64(metrics.ConnectionsRemovedTotal.WithLabelValues(ReasonKicked))
	m.Sweep()

	assert.Equal(t, []string{"talker"}, liveRemotes(m))
	assert.Empty(t, talker.inbox, "ordinary client bytes are consumed and ignored")
	assert.Equal(t, 1, kicker.closed)
	assert.Equal(t, 1, gone.closed)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.ConnectionsRemovedTotal.WithLabelValues(ReasonKicked)))
}

func TestManager_FailedWriteSuppressesAndRemoves(t *testing.T) {
	l := &fakeListener{}
	m := NewManager(l, clockwork.NewFakeClock(), 10)
	ok1, bad, ok2 := newFakeConn("ok1"), newFakeConn("bad"), newFakeConn("ok2")
	bad.writeErr = domain.ErrSlowClient
	l.push(ok1, bad, ok2)
	acceptAll(m)

	var errs int
	m.ForEachLive(func(c *Client) {
		if err := c.WriteLine("one"); err != nil {
			errs++
		}
	})
	assert.Equal(t, 1, errs)

	visited := liveRemotes(m)
	assert.Equal(t, []string{"ok1", "ok2"}, visited, "failed client is skipped before the sweep")
	assert.Equal(t, 3, m.Len())

	before := testutil.ToFloat64(metrics.ConnectionsRemovedTotal.WithLabelValues(ReasonWriteFailed))
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ConnectionsRemovedTotal.WithLabelValues(ReasonWriteFailed)))
}

func TestClient_WriteAfterFailure(t *testing.T) {
	conn := newFakeConn("x")
	conn.writeErr = domain.ErrSlowClient
	c := &Client{conn: conn}

	assert.ErrorIs(t, c.WriteLine("a"), domain.ErrSlowClient)
	assert.True(t, c.Failed())

	conn.writeErr = nil
	assert.ErrorIs(t, c.WriteLine("b"), domain.ErrConnClosed)
	assert.Empty(t, conn.lines)
}

func TestManager_ClientsAndCloseAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := &fakeListener{}
	m := NewManager(l, clock, 10)
	a, b := newFakeConn("10.0.0.1:4000"), newFakeConn("10.0.0.2:4000")
	l.push(a)
	m.AcceptPending()
	clock.Advance(time.Second)
	l.push(b)
	m.AcceptPending()

	clients := m.Clients()
	require.Len(t, clients, 2)
	assert.Equal(t, "10.0.0.1:4000", clients[0].RemoteAddr)
	assert.Equal(t, clock.Now(), clients[1].ConnectedAt)

	m.CloseAll(ReasonShutdown)

	assert.Zero(t, m.Len())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
	assert.Empty(t, m.Clients())
}

func TestNewManager_DefaultCapacity(t *testing.T) {
	m := NewManager(&fakeListener{}, clockwork.NewFakeClock(), 0)
	assert.Equal(t, DefaultCapacity, m.Capacity())
}
