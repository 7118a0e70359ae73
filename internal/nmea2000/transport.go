package nmea2000

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
)

const (
	defaultQueueSize = 512
	maxLineLength    = 256
	sinkInterface    = "n2k0"
)

// TransportOptions configures a StreamTransport.
type TransportOptions struct {
	// QueueSize bounds decoded messages waiting for Poll. New messages are
	// dropped while the queue is full.
	QueueSize int
	// Receive limits forwarded messages to these PGNs. Empty forwards all.
	Receive []uint32
	// Sink receives transmitted frames in candump format. Nil makes the
	// transport read-only.
	Sink io.Writer
}

// StreamTransport reads candump text from a stream on its own goroutine and
// hands decoded messages to the gateway loop through a bounded channel.
type StreamTransport struct {
	clock   clockwork.Clock
	source  io.Reader
	out     chan domain.Message
	receive map[uint32]bool

	sinkMu sync.Mutex
	sink   io.Writer
	seq    uint8

	done    chan struct{}
	errMu   sync.Mutex
	readErr error
}

// NewStreamTransport starts reading from source immediately.
func NewStreamTransport(source io.Reader, clock clockwork.Clock, opts TransportOptions) *StreamTransport {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	t := &StreamTransport{
		clock:  clock,
		source: source,
		out:    make(chan domain.Message, opts.QueueSize),
		sink:   opts.Sink,
		done:   make(chan struct{}),
	}
	if len(opts.Receive) > 0 {
		t.receive = make(map[uint32]bool, len(opts.Receive))
		for _, pgn := range opts.Receive {
			t.receive[pgn] = true
		}
	}

	go t.run()
	return t
}

func (t *StreamTransport) run() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Bus reader panic recovered", "panic", r)
			t.setErr(fmt.Errorf("bus reader panic: %v", r))
		}
	}()

	assembler := NewAssembler()
	reader := bufio.NewReaderSize(t.source, maxLineLength)

	for {
		line, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			metrics.BusParseErrorsTotal.Inc()
			slog.Debug("Skipping overlong bus line", "limit", maxLineLength)
			err = skipLine(reader)
			if err == nil {
				continue
			}
			line = nil
		}

		if len(line) > 0 {
			t.handleLine(assembler, strings.TrimRight(string(line), "\r\n"))
		}

		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			slog.Warn("Bus source reached end of stream")
			return
		}
		t.setErr(fmt.Errorf("reading bus source: %w", err))
		slog.Error("Bus source failed", "error", err)
		return
	}
}

// skipLine discards input up to and including the next newline.
func skipLine(reader *bufio.Reader) error {
	for {
		_, err := reader.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (t *StreamTransport) handleLine(assembler *Assembler, line string) {
	if line == "" {
		return
	}

	frame, err := ParseLine(line)
	if err != nil {
		metrics.BusParseErrorsTotal.Inc()
		slog.Debug("Skipping unreadable bus line", "error", err)
		return
	}
	metrics.BusFramesTotal.Inc()
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("Bus frame",
			"received", t.clock.Now().UTC().Format(time.RFC3339Nano),
			"id", fmt.Sprintf("%08X", frame.ID),
			"data", strings.ToUpper(hex.EncodeToString(frame.Data)),
		)
	}

	discarded := assembler.Discarded
	msg, ok := t.decode(assembler, frame)
	if assembler.Discarded > discarded {
		metrics.BusFastPacketErrorsTotal.Add(float64(assembler.Discarded - discarded))
	}
	if ok {
		t.enqueue(msg)
	}
}

func (t *StreamTransport) decode(assembler *Assembler, frame domain.Frame) (domain.Message, bool) {
	h := DecodeID(frame.ID)
	if t.receive != nil && !t.receive[h.PGN] {
		metrics.BusMessagesTotal.WithLabelValues("filtered").Inc()
		return domain.Message{}, false
	}

	data := frame.Data
	if IsFastPacket(h.PGN) {
		var complete bool
		data, complete = assembler.Add(h.PGN, h.Source, frame.Data)
		if !complete {
			return domain.Message{}, false
		}
	}

	return domain.Message{
		PGN:         h.PGN,
		Priority:    h.Priority,
		Source:      h.Source,
		Destination: h.Destination,
		Data:        data,
		Received:    t.clock.Now(),
	}, true
}

func (t *StreamTransport) enqueue(msg domain.Message) {
	select {
	case t.out <- msg:
		metrics.BusMessagesTotal.WithLabelValues("queued").Inc()
	default:
		metrics.BusMessagesTotal.WithLabelValues("dropped").Inc()
	}
}

// Poll drains up to max queued messages without blocking.
func (t *StreamTransport) Poll(max int) []domain.Message {
	var msgs []domain.Message
	for len(msgs) < max {
		select {
		case msg := <-t.out:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
	return msgs
}

// Send writes frames to the sink in candump format.
func (t *StreamTransport) Send(frames []domain.Frame) error {
	if t.sink == nil {
		return domain.ErrReadOnly
	}

	t.sinkMu.Lock()
	defer t.sinkMu.Unlock()

	now := t.clock.Now()
	for _, f := range frames {
		if _, err := io.WriteString(t.sink, FormatLine(f, now, sinkInterface)+"\n"); err != nil {
			return fmt.Errorf("writing frame %08X: %w", f.ID, err)
		}
		metrics.BusFramesSentTotal.Inc()
	}
	return nil
}

// SendMessage splits msg into frames (fast packet when required) and sends them.
func (t *StreamTransport) SendMessage(msg domain.Message) error {
	id := EncodeID(Header{PGN: msg.PGN, Priority: msg.Priority, Source: msg.Source, Destination: msg.Destination})

	if !IsFastPacket(msg.PGN) {
		if len(msg.Data) > maxClassicPayload {
			return fmt.Errorf("pgn %d: %d bytes do not fit a single frame", msg.PGN, len(msg.Data))
		}
		return t.Send([]domain.Frame{{ID: id, Data: msg.Data}})
	}

	t.sinkMu.Lock()
	seq := t.seq
	t.seq = (t.seq + 1) & 0x07
	t.sinkMu.Unlock()

	var frames []domain.Frame
	for _, data := range Split(msg.Data, seq) {
		frames = append(frames, domain.Frame{ID: id, Data: data})
	}
	return t.Send(frames)
}

// Done is closed when the source stream ends.
func (t *StreamTransport) Done() <-chan struct{} {
	return t.done
}

// Err returns the error that ended the source stream, nil on clean EOF.
func (t *StreamTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.readErr
}

// Close closes the source (and sink) when they are closable.
func (t *StreamTransport) Close() error {
	var errs []error
	if c, ok := t.source.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := t.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (t *StreamTransport) setErr(err error) {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	t.readErr = err
}
