// Package broadcast fans encoded lines out to every live TCP client.
//
// The Broadcaster runs on the gateway loop and never touches a socket
// directly: each write is a non-blocking enqueue on the client's send queue,
// so a slow client fails its own write without delaying the others.
package broadcast
