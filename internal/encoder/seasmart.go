package encoder

import (
	"fmt"
	"strings"

	"github.com/pscheid92/n2kbridge/internal/domain"
)

// MaxFrameLength bounds a SeaSmart line.
const MaxFrameLength = 500

// EncodeFrame renders msg as "$PCDIN,<pgn>,<timestamp>,<source>,<data>*<cs>".
// timestamp is in milliseconds and wraps at 32 bits.
func EncodeFrame(msg domain.Message, timestamp uint32) (string, bool) {
	if len(msg.Data) == 0 {
		return "", false
	}

	var b strings.Builder
	b.Grow(24 + 2*len(msg.Data))
	fmt.Fprintf(&b, "PCDIN,%06X,%08X,%02X,", msg.PGN, timestamp, msg.Source)
	for _, d := range msg.Data {
		fmt.Fprintf(&b, "%02X", d)
	}

	line := seal(b.String())
	if len(line) > MaxFrameLength {
		return "", false
	}
	return line, true
}
