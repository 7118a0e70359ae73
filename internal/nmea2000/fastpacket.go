package nmea2000

const (
	fastPacketFirstPayload = 6
	fastPacketNextPayload  = 7
	fastPacketMaxSize      = 223
)

// fastPacketPGNs lists the groups this gateway receives that span several frames.
var fastPacketPGNs = map[uint32]bool{
	PGNProductInformation: true,
	PGNGNSSPosition:       true,
	PGNAISClassAPosition:  true,
	PGNAISClassBPosition:  true,
	PGNGNSSSatellites:     true,
	PGNAISStaticData:      true,
}

// IsFastPacket reports whether pgn is transported as a fast packet.
func IsFastPacket(pgn uint32) bool {
	return fastPacketPGNs[pgn]
}

type fastPacket struct {
	sequence uint8
	next     uint8
	size     int
	buf      []byte
}

// Assembler reassembles fast-packet sequences, one in flight per (PGN, source).
// It is not safe for concurrent use.
type Assembler struct {
	pending map[uint64]*fastPacket
	// Discarded counts sequences abandoned because a frame was missing.
	Discarded int
}

func NewAssembler() *Assembler {
	return &Assembler{pending: make(map[uint64]*fastPacket)}
}

// Add feeds one frame payload. It returns the complete payload once the last
// frame of a sequence arrives.
func (a *Assembler) Add(pgn uint32, source uint8, data []byte) ([]byte, bool) {
	if len(data) < 2 {
		return nil, false
	}

	key := uint64(pgn)<<8 | uint64(source)
	sequence := data[0] >> 5
	counter := data[0] & 0x1F

	if counter == 0 {
		if _, inFlight := a.pending[key]; inFlight {
			a.Discarded++
		}
		size := int(data[1])
		if size == 0 || size > fastPacketMaxSize {
			delete(a.pending, key)
			return nil, false
		}
		fp := &fastPacket{sequence: sequence, next: 1, size: size, buf: make([]byte, 0, size+fastPacketNextPayload)}
		fp.buf = append(fp.buf, data[2:]...)
		return a.finish(key, fp)
	}

	fp, ok := a.pending[key]
	if !ok {
		return nil, false
	}
	if fp.sequence != sequence || fp.next != counter {
		a.Discarded++
		delete(a.pending, key)
		return nil, false
	}

	fp.next++
	fp.buf = append(fp.buf, data[1:]...)
	return a.finish(key, fp)
}

func (a *Assembler) finish(key uint64, fp *fastPacket) ([]byte, bool) {
	if len(fp.buf) >= fp.size {
		delete(a.pending, key)
		return fp.buf[:fp.size], true
	}
	a.pending[key] = fp
	return nil, false
}

// Split breaks a payload into fast-packet frame payloads using sequence id seq.
func Split(payload []byte, seq uint8) [][]byte {
	var frames [][]byte
	first := make([]byte, 0, 8)
	first = append(first, (seq&0x07)<<5, byte(len(payload)))
	n := min(fastPacketFirstPayload, len(payload))
	first = append(first, payload[:n]...)
	frames = append(frames, pad(first))

	for counter := uint8(1); n < len(payload); counter++ {
		end := min(n+fastPacketNextPayload, len(payload))
		frame := make([]byte, 0, 8)
		frame = append(frame, (seq&0x07)<<5|counter)
		frame = append(frame, payload[n:end]...)
		frames = append(frames, pad(frame))
		n = end
	}
	return frames
}

func pad(frame []byte) []byte {
	for len(frame) < 8 {
		frame = append(frame, 0xFF)
	}
	return frame
}
