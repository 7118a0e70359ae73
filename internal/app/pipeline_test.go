package app

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/broadcast"
	"github.com/pscheid92/n2kbridge/internal/connection"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewPipeline_Consumers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := broadcast.New(connection.NewManager(&stubListener{}, clock, 1))
	discard := domain.ConsumerFunc[domain.Message](func(domain.Message) {})
	relay := domain.ConsumerFunc[string](func(string) {})

	tests := []struct {
		name          string
		opts          PipelineOptions
		wantMessages  int
		wantSentences int
		wantLayout    []string
	}{
		{
			"everything", PipelineOptions{ClockSync: discard, SeaSmart: true, NMEA0183: true, Relay: relay}, 3, 2,
			[]string{"messages[0]=clock_sync", "messages[1]=seasmart", "messages[2]=nmea0183", "sentences[0]=clients", "sentences[1]=relay"},
		},
		{"frames only", PipelineOptions{SeaSmart: true}, 1, 0, []string{"messages[0]=seasmart"}},
		{
			"sentences with relay", PipelineOptions{NMEA0183: true, Relay: relay}, 1, 2,
			[]string{"messages[0]=nmea0183", "sentences[0]=clients", "sentences[1]=relay"},
		},
		{"clock only", PipelineOptions{ClockSync: discard}, 1, 0, []string{"messages[0]=clock_sync"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Clock = clock
			p := NewPipeline(b, tt.opts)
			assert.Equal(t, tt.wantMessages, p.Messages.Len())
			assert.Equal(t, tt.wantSentences, p.Sentences.Len())
			assert.Equal(t, MessageHubName, p.Messages.Name())
			assert.Equal(t, SentenceHubName, p.Sentences.Name())
			assert.Equal(t, tt.wantLayout, p.Layout)
		})
	}
}

func TestPipeline_RelayReceivesSentencesAfterClients(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := &stubListener{}
	conns := connection.NewManager(l, clock, 1)
	client := newStubConn("a")
	l.push(client)
	conns.AcceptPending()

	var order []string
	relay := domain.ConsumerFunc[string](func(line string) {
		order = append(order, "relay:"+line)
		order = append(order, "client-had:"+client.received()[0])
	})
	p := NewPipeline(broadcast.New(conns), PipelineOptions{Clock: clock, NMEA0183: true, Relay: relay})

	assert.NoError(t, p.Messages.Publish(positionRapid(52.5, 13.4166667)))

	const gll = "$GPGLL,5230.0000,N,01325.0000,E,,A,A*46"
	assert.Equal(t, []string{"relay:" + gll, "client-had:" + gll}, order)
	current, ok := p.Sentences.Current()
	assert.True(t, ok)
	assert.Equal(t, gll, current)
}
