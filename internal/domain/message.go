package domain

import "time"

// Broadcast is the NMEA 2000 global destination address.
const Broadcast uint8 = 0xFF

// Message is one decoded NMEA 2000 parameter group. Data must not be
// modified after the message has been produced.
type Message struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
	Data        []byte
	Received    time.Time
}

// Frame is a raw 29-bit extended CAN frame.
type Frame struct {
	ID   uint32
	Data []byte
}
