package broadcast

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/connection"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/encoder"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/pscheid92/n2kbridge/internal/platform/logging"
)

// LiveSet is the part of the connection manager the Broadcaster reads.
type LiveSet interface {
	ForEachLive(fn func(*connection.Client))
}

type Broadcaster struct {
	clients LiveSet
}

func New(clients LiveSet) *Broadcaster {
	return &Broadcaster{clients: clients}
}

// Broadcast writes line to every live client and returns how many accepted
// it. An empty line is not sent. format labels the line in metrics.
func (b *Broadcaster) Broadcast(line, format string) int {
	if line == "" {
		return 0
	}
	metrics.BroadcastLinesTotal.WithLabelValues(format).Inc()

	delivered := 0
	b.clients.ForEachLive(func(c *connection.Client) {
		if err := c.WriteLine(line); err != nil {
			metrics.BroadcastWritesTotal.WithLabelValues("failed").Inc()
			logging.WithRemote(c.RemoteAddr()).Warn("Client write failed, dropping at next sweep", "error", err)
			return
		}
		metrics.BroadcastWritesTotal.WithLabelValues("queued").Inc()
		delivered++
	})
	return delivered
}

// SentenceSink broadcasts every line published on the sentence hub.
type SentenceSink struct {
	b *Broadcaster
}

var _ domain.Consumer[string] = SentenceSink{}

func NewSentenceSink(b *Broadcaster) SentenceSink {
	return SentenceSink{b: b}
}

func (s SentenceSink) Accept(line string) {
	s.b.Broadcast(line, encoder.FormatNMEA0183)
}

// FrameForwarder encodes every message as a SeaSmart frame stamped with the
// milliseconds elapsed since the forwarder was created, and broadcasts it.
type FrameForwarder struct {
	b       *Broadcaster
	clock   clockwork.Clock
	started time.Time
}

var _ domain.Consumer[domain.Message] = (*FrameForwarder)(nil)

func NewFrameForwarder(b *Broadcaster, clock clockwork.Clock) *FrameForwarder {
	return &FrameForwarder{b: b, clock: clock, started: clock.Now()}
}

func (f *FrameForwarder) Accept(msg domain.Message) {
	line, ok := encoder.EncodeFrame(msg, f.timestamp())
	if !ok {
		metrics.EncoderSkippedTotal.WithLabelValues(encoder.FormatSeaSmart).Inc()
		logging.WithPGN(msg.PGN).Debug("Message not encodable as frame", "length", len(msg.Data))
		return
	}
	f.b.Broadcast(line, encoder.FormatSeaSmart)
}

func (f *FrameForwarder) timestamp() uint32 {
	return uint32(f.clock.Since(f.started).Milliseconds())
}
