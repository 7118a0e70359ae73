package nmea2000

import "github.com/pscheid92/n2kbridge/internal/domain"

// Header is the addressing carried by a 29-bit NMEA 2000 CAN identifier.
type Header struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
}

// DecodeID splits a CAN identifier into its NMEA 2000 header. PDU1 groups
// (PF < 240) carry a destination address; PDU2 groups are broadcast.
func DecodeID(id uint32) Header {
	id &= 0x1FFFFFFF
	ps := uint8(id >> 8)
	pf := uint8(id >> 16)
	dp := (id >> 24) & 0x03

	h := Header{
		Priority: uint8((id >> 26) & 0x07),
		Source:   uint8(id),
	}
	if pf < 240 {
		h.PGN = dp<<16 | uint32(pf)<<8
		h.Destination = ps
	} else {
		h.PGN = dp<<16 | uint32(pf)<<8 | uint32(ps)
		h.Destination = domain.Broadcast
	}
	return h
}

// EncodeID is the inverse of DecodeID.
func EncodeID(h Header) uint32 {
	pf := uint8(h.PGN >> 8)
	id := uint32(h.Priority&0x07)<<26 | (h.PGN>>16&0x03)<<24 | uint32(pf)<<16 | uint32(h.Source)
	if pf < 240 {
		id |= uint32(h.Destination) << 8
	} else {
		id |= (h.PGN & 0xFF) << 8
	}
	return id
}
