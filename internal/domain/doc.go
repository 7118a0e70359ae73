// Package domain defines the core types and interfaces of the gateway.
//
// Message is the unit flowing from the NMEA 2000 bus into the hubs. Transport,
// Listener and Conn describe the non-blocking collaborators polled by the
// gateway loop; Consumer is the capability every hub subscriber implements.
package domain
