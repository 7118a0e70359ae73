package app

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/broadcast"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/encoder"
	"github.com/pscheid92/n2kbridge/internal/hub"
)

const (
	MessageHubName  = "messages"
	SentenceHubName = "sentences"
)

// PipelineOptions selects the consumers attached to the hubs. Nil consumers
// are skipped.
type PipelineOptions struct {
	Clock     clockwork.Clock
	ClockSync domain.Consumer[domain.Message]
	SeaSmart  bool
	NMEA0183  bool
	Relay     domain.Consumer[string]
}

// Pipeline is the hub graph of one gateway:
//
//	messages -> clock discipline
//	         -> SeaSmart frames -> clients
//	         -> NMEA 0183 transform -> sentences -> clients
//	                                            -> relay
type Pipeline struct {
	Messages  *hub.Hub[domain.Message]
	Sentences *hub.Hub[string]

	// Layout lists consumers as "hub[index]=name" in dispatch order.
	Layout []string
}

func NewPipeline(b *broadcast.Broadcaster, opts PipelineOptions) *Pipeline {
	p := &Pipeline{
		Messages:  hub.New[domain.Message](MessageHubName),
		Sentences: hub.New[string](SentenceHubName),
	}

	if opts.ClockSync != nil {
		subscribe(p, p.Messages, "clock_sync", opts.ClockSync)
	}
	if opts.SeaSmart {
		subscribe(p, p.Messages, "seasmart", broadcast.NewFrameForwarder(b, opts.Clock))
	}
	if opts.NMEA0183 {
		subscribe(p, p.Messages, "nmea0183", encoder.NewSentenceTransform(p.Sentences))
		subscribe(p, p.Sentences, "clients", broadcast.NewSentenceSink(b))
	}
	if opts.Relay != nil {
		subscribe(p, p.Sentences, "relay", opts.Relay)
	}
	return p
}

func subscribe[T any](p *Pipeline, h *hub.Hub[T], name string, c domain.Consumer[T]) {
	sub := h.Subscribe(c)
	p.Layout = append(p.Layout, fmt.Sprintf("%s[%d]=%s", h.Name(), sub.Index(), name))
}
