package nmea2000

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/platform/retry"
)

const (
	dialTimeout = 5 * time.Second
	tcpScheme   = "tcp://"
)

var dialPolicy = retry.Policy{
	MaxAttempts:    8,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
}

// OpenSource opens the candump stream named by uri: "-" for stdin,
// "tcp://host:port" for a remote gateway, anything else is a file path.
func OpenSource(ctx context.Context, uri string, clock clockwork.Clock) (io.ReadCloser, error) {
	switch {
	case uri == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(uri, tcpScheme):
		return dial(ctx, strings.TrimPrefix(uri, tcpScheme), clock)
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("opening bus source: %w", err)
		}
		return f, nil
	}
}

// OpenSink opens the candump destination for transmitted frames. An empty uri
// returns nil: the transport stays read-only.
func OpenSink(ctx context.Context, uri string, clock clockwork.Clock) (io.WriteCloser, error) {
	switch {
	case uri == "":
		return nil, nil
	case uri == "-":
		return nopWriteCloser{os.Stdout}, nil
	case strings.HasPrefix(uri, tcpScheme):
		return dial(ctx, strings.TrimPrefix(uri, tcpScheme), clock)
	default:
		f, err := os.OpenFile(uri, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening bus sink: %w", err)
		}
		return f, nil
	}
}

func dial(ctx context.Context, addr string, clock clockwork.Clock) (net.Conn, error) {
	policy := dialPolicy
	policy.Clock = clock
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Bus connection failed, retrying", "addr", addr, "attempt", attempt, "backoff", backoff, "error", err)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := retry.Do(ctx, policy, retry.Network, func() (net.Conn, error) {
		return dialer.DialContext(ctx, "tcp", addr)
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to bus at %s: %w", addr, err)
	}

	slog.Info("Connected to bus", "addr", addr)
	return conn, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
