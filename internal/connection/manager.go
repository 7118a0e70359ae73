package connection

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/pscheid92/n2kbridge/internal/platform/logging"
)

// DisconnectByte requests that the server close the connection.
const DisconnectByte byte = 0x03

const DefaultCapacity = 10

// Removal reasons, used as metric labels.
const (
	ReasonClosed      = "closed"
	ReasonKicked      = "kicked"
	ReasonWriteFailed = "write_failed"
	ReasonShutdown    = "shutdown"
)

// Client is one live connection in the Manager's set.
type Client struct {
	conn        domain.Conn
	connectedAt time.Time
	failed      bool
}

// WriteLine queues line on the connection. After the first failure the
// client is marked and every further write is refused until the next sweep
// removes it.
func (c *Client) WriteLine(line string) error {
	if c.failed {
		return domain.ErrConnClosed
	}
	if err := c.conn.WriteLine(line); err != nil {
		c.failed = true
		return err
	}
	return nil
}

func (c *Client) Conn() domain.Conn      { return c.conn }
func (c *Client) RemoteAddr() string     { return c.conn.RemoteAddr() }
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }
func (c *Client) Failed() bool           { return c.failed }

type pendingCounter interface {
	Pending() int
}

// Manager holds at most capacity live clients in accept order.
type Manager struct {
	listener domain.Listener
	clock    clockwork.Clock
	capacity int
	live     []*Client
}

func NewManager(listener domain.Listener, clock clockwork.Clock, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		listener: listener,
		clock:    clock,
		capacity: capacity,
		live:     make([]*Client, 0, capacity),
	}
}

// AcceptPending promotes at most one waiting connection to the live set.
// At capacity it leaves the connection with the listener.
func (m *Manager) AcceptPending() bool {
	if len(m.live) >= m.capacity {
		if p, ok := m.listener.(pendingCounter); ok && p.Pending() > 0 {
			metrics.ConnectionsDeferredTotal.Inc()
		}
		return false
	}

	conn, ok := m.listener.TryAccept()
	if !ok {
		return false
	}

	m.live = append(m.live, &Client{conn: conn, connectedAt: m.clock.Now()})
	metrics.ConnectionsAcceptedTotal.Inc()
	m.updateGauges()

	logging.WithRemote(conn.RemoteAddr()).Info("Client connected", "clients", len(m.live), "capacity", m.capacity)
	return true
}

// Sweep scans the live set once, closing and removing every client that
// asked to disconnect, lost its transport or failed a write.
// It returns the number of clients removed.
func (m *Manager) Sweep() int {
	kept := m.live[:0]
	removed := 0

	for _, c := range m.live {
		reason, drop := m.inspect(c)
		if !drop {
			kept = append(kept, c)
			continue
		}
		m.remove(c, reason)
		removed++
	}

	clear(m.live[len(kept):])
	m.live = kept

	if removed > 0 {
		m.updateGauges()
	}
	return removed
}

func (m *Manager) inspect(c *Client) (string, bool) {
	if receivedDisconnect(c.conn) {
		return ReasonKicked, true
	}
	if c.failed {
		return ReasonWriteFailed, true
	}
	if !c.conn.Connected() {
		return ReasonClosed, true
	}
	return "", false
}

// receivedDisconnect consumes every byte the client has sent and reports
// whether one of them was DisconnectByte.
func receivedDisconnect(conn domain.Conn) bool {
	for n := conn.Available(); n > 0; n-- {
		b, err := conn.ReadByte()
		if err != nil {
			return false
		}
		if b == DisconnectByte {
			return true
		}
	}
	return false
}

func (m *Manager) remove(c *Client, reason string) {
	log := logging.WithRemote(c.RemoteAddr())
	if err := c.conn.Close(); err != nil {
		log.Debug("Error closing client", "error", err)
	}
	metrics.ConnectionsRemovedTotal.WithLabelValues(reason).Inc()
	metrics.ConnectionDuration.Observe(m.clock.Since(c.connectedAt).Seconds())
	log.Info("Client disconnected", "reason", reason)
}

// ForEachLive calls fn for every live client that has not failed a write,
// in accept order.
func (m *Manager) ForEachLive(fn func(*Client)) {
	for _, c := range m.live {
		if c.failed {
			continue
		}
		fn(c)
	}
}

// Clients returns a snapshot of the live set.
func (m *Manager) Clients() []domain.ClientInfo {
	infos := make([]domain.ClientInfo, 0, len(m.live))
	for _, c := range m.live {
		infos = append(infos, domain.ClientInfo{RemoteAddr: c.RemoteAddr(), ConnectedAt: c.connectedAt})
	}
	return infos
}

// CloseAll closes and removes every live client.
func (m *Manager) CloseAll(reason string) {
	for _, c := range m.live {
		m.remove(c, reason)
	}
	clear(m.live)
	m.live = m.live[:0]
	m.updateGauges()
}

func (m *Manager) Len() int      { return len(m.live) }
func (m *Manager) Capacity() int { return m.capacity }

func (m *Manager) updateGauges() {
	metrics.ConnectionsCurrent.Set(float64(len(m.live)))
	metrics.ConnectionCapacity.Set(float64(len(m.live)) / float64(m.capacity) * 100)
}
