package encoder

import (
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/pscheid92/n2kbridge/internal/platform/logging"
)

const (
	FormatSeaSmart = "seasmart"
	FormatNMEA0183 = "nmea0183"
)

// LinePublisher receives encoded lines, typically a downstream hub.
type LinePublisher interface {
	Publish(line string) error
}

// SentenceTransform is a message consumer that translates every message it
// can into NMEA 0183 and republishes the sentence.
type SentenceTransform struct {
	out LinePublisher
}

var _ domain.Consumer[domain.Message] = (*SentenceTransform)(nil)

func NewSentenceTransform(out LinePublisher) *SentenceTransform {
	return &SentenceTransform{out: out}
}

func (t *SentenceTransform) Accept(msg domain.Message) {
	if !HasSentence(msg.PGN) {
		return
	}
	line, ok := EncodeSentence(msg)
	if !ok {
		metrics.EncoderSkippedTotal.WithLabelValues(FormatNMEA0183).Inc()
		logging.WithPGN(msg.PGN).Debug("Message not encodable as sentence", "source", msg.Source)
		return
	}
	if err := t.out.Publish(line); err != nil {
		logging.WithPGN(msg.PGN).Error("Failed to publish sentence", "error", err)
	}
}
