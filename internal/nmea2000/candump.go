package nmea2000

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pscheid92/n2kbridge/internal/domain"
)

var ErrMalformedFrame = errors.New("malformed candump frame")

const maxClassicPayload = 8

// ParseLine parses one candump log line ("(1436509053.250713) can0 09F80103#A0E4B7E21BA0B3F2")
// or a bare "09F80103#A0E4B7E21BA0B3F2" frame.
func ParseLine(line string) (domain.Frame, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return domain.Frame{}, fmt.Errorf("%w: empty line", ErrMalformedFrame)
	}

	idStr, dataStr, ok := strings.Cut(fields[len(fields)-1], "#")
	if !ok {
		return domain.Frame{}, fmt.Errorf("%w: missing '#' in %q", ErrMalformedFrame, line)
	}
	if len(idStr) != 8 {
		return domain.Frame{}, fmt.Errorf("%w: %q is not an extended identifier", ErrMalformedFrame, idStr)
	}

	id, err := strconv.ParseUint(idStr, 16, 32)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("%w: identifier %q: %w", ErrMalformedFrame, idStr, err)
	}

	data, err := hex.DecodeString(dataStr)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("%w: payload %q: %w", ErrMalformedFrame, dataStr, err)
	}
	if len(data) > maxClassicPayload {
		return domain.Frame{}, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrMalformedFrame, len(data), maxClassicPayload)
	}

	return domain.Frame{ID: uint32(id) & 0x1FFFFFFF, Data: data}, nil
}

// FormatLine renders a frame in candump log format.
func FormatLine(f domain.Frame, at time.Time, iface string) string {
	return fmt.Sprintf("(%d.%06d) %s %08X#%X", at.Unix(), at.Nanosecond()/1000, iface, f.ID, f.Data)
}
