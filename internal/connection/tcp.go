package connection

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/pscheid92/n2kbridge/internal/platform/logging"
)

const (
	defaultBacklog      = 16
	defaultSendBuffer   = 64
	defaultWriteTimeout = 2 * time.Second
	inboxSize           = 256
	acceptErrorBackoff  = 50 * time.Millisecond
)

// ListenerOptions configures a TCPListener and the connections it hands out.
type ListenerOptions struct {
	// Backlog is how many accepted sockets may wait for the Manager. Further
	// clients stay in the kernel's listen queue.
	Backlog int
	// SendBuffer is the per-connection queue of lines awaiting the socket.
	SendBuffer   int
	WriteTimeout time.Duration
	// AcceptRate limits new connections per second per IP; 0 disables it.
	AcceptRate  float64
	AcceptBurst int
}

// TCPListener accepts sockets on its own goroutine and queues them for
// TryAccept.
type TCPListener struct {
	ln      net.Listener
	clock   clockwork.Clock
	opts    ListenerOptions
	limiter *RateLimiter
	pending chan net.Conn
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup
}

var _ domain.Listener = (*TCPListener)(nil)

// Listen opens a TCP listener on addr.
func Listen(addr string, clock clockwork.Clock, opts ListenerOptions) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return NewTCPListener(ln, clock, opts), nil
}

// NewTCPListener takes ownership of ln and starts accepting.
func NewTCPListener(ln net.Listener, clock clockwork.Clock, opts ListenerOptions) *TCPListener {
	if opts.Backlog <= 0 {
		opts.Backlog = defaultBacklog
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	l := &TCPListener{
		ln:      ln,
		clock:   clock,
		opts:    opts,
		pending: make(chan net.Conn, opts.Backlog),
		done:    make(chan struct{}),
	}
	if opts.AcceptRate > 0 {
		l.limiter = NewRateLimiter(opts.AcceptRate, opts.AcceptBurst, clock)
	}

	l.wg.Add(1)
	go l.run()
	return l
}

func (l *TCPListener) run() {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("TCP acceptor panic recovered", "panic", r)
		}
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("Accept failed", "error", err)
			l.clock.Sleep(acceptErrorBackoff)
			continue
		}

		if !l.admit(conn) {
			continue
		}

		select {
		case l.pending <- conn:
		case <-l.done:
			_ = conn.Close()
			return
		}
	}
}

func (l *TCPListener) admit(conn net.Conn) bool {
	if l.limiter == nil {
		return true
	}
	ip := hostOf(conn.RemoteAddr())
	if l.limiter.Allow(ip) {
		return true
	}
	metrics.ConnectionsRejectedTotal.WithLabelValues("rate_limit").Inc()
	logging.WithRemote(conn.RemoteAddr().String()).Warn("Connection rate limited")
	_ = conn.Close()
	return false
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// TryAccept returns the next queued connection without blocking.
func (l *TCPListener) TryAccept() (domain.Conn, bool) {
	select {
	case c := <-l.pending:
		return NewTCPConn(c, l.clock, l.opts.SendBuffer, l.opts.WriteTimeout), true
	default:
		return nil, false
	}
}

// Pending returns the number of accepted sockets waiting for TryAccept.
func (l *TCPListener) Pending() int {
	return len(l.pending)
}

func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

// Open reports whether the listener is still accepting.
func (l *TCPListener) Open() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Close stops accepting and closes every socket still waiting in the queue.
func (l *TCPListener) Close() error {
	var err error
	l.stop.Do(func() {
		close(l.done)
		err = l.ln.Close()
		l.wg.Wait()
		for {
			select {
			case c := <-l.pending:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return err
}

// TCPConn adapts a net.Conn to the non-blocking domain.Conn. A reader
// goroutine feeds received bytes into an inbox and a writer goroutine drains
// the bounded send queue with a per-write deadline.
type TCPConn struct {
	conn         net.Conn
	clock        clockwork.Clock
	writeTimeout time.Duration
	remote       string
	inbox        chan byte
	send         chan string
	closed       atomic.Bool
	done         chan struct{}
	stop         sync.Once
	wg           sync.WaitGroup
}

var _ domain.Conn = (*TCPConn)(nil)

func NewTCPConn(conn net.Conn, clock clockwork.Clock, sendBuffer int, writeTimeout time.Duration) *TCPConn {
	c := &TCPConn{
		conn:         conn,
		clock:        clock,
		writeTimeout: writeTimeout,
		remote:       conn.RemoteAddr().String(),
		inbox:        make(chan byte, inboxSize),
		send:         make(chan string, sendBuffer),
		done:         make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *TCPConn) readLoop() {
	defer c.wg.Done()
	buf := make([]byte, 512)
	for {
		n, err := c.conn.Read(buf)
		for _, b := range buf[:n] {
			select {
			case c.inbox <- b:
			case <-c.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("Client read failed", "remote", c.remote, "error", err)
			}
			c.closed.Store(true)
			return
		}
	}
}

func (c *TCPConn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case line := <-c.send:
			start := c.clock.Now()
			_ = c.conn.SetWriteDeadline(start.Add(c.writeTimeout))
			if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
				slog.Debug("Client write failed", "remote", c.remote, "error", err)
				c.closed.Store(true)
				return
			}
			metrics.ClientWriteDuration.Observe(c.clock.Since(start).Seconds())
		case <-c.done:
			return
		}
	}
}

// Connected is false once the peer closed, a read or write failed, or Close
// was called.
func (c *TCPConn) Connected() bool {
	return !c.closed.Load()
}

func (c *TCPConn) Available() int {
	return len(c.inbox)
}

func (c *TCPConn) ReadByte() (byte, error) {
	select {
	case b := <-c.inbox:
		return b, nil
	default:
		return 0, domain.ErrNoData
	}
}

// WriteLine queues line for the writer goroutine. A full queue fails the
// write rather than waiting for the socket.
func (c *TCPConn) WriteLine(line string) error {
	if c.closed.Load() {
		return domain.ErrConnClosed
	}
	select {
	case c.send <- line:
		return nil
	default:
		return domain.ErrSlowClient
	}
}

func (c *TCPConn) Close() error {
	var err error
	c.stop.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.conn.Close()
		c.wg.Wait()
	})
	return err
}

func (c *TCPConn) RemoteAddr() string {
	return c.remote
}
