// Package nmea2000 is the bus side of the gateway.
//
// It decodes 29-bit CAN identifiers into NMEA 2000 addressing, reads frames
// from candump-style text streams, reassembles fast-packet PGNs and parses the
// payloads of the parameter groups the gateway translates. StreamTransport ties
// these together behind the non-blocking domain.Transport interface.
package nmea2000
