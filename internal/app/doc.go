// Package app assembles the gateway.
//
// Pipeline wires the hubs and their consumers. Gateway is the single owner
// loop: every tick it drains the bus into the message hub, then accepts and
// sweeps client connections. All hub dispatch, encoding and broadcast
// enqueueing therefore happens on one goroutine. Other goroutines talk to it
// through its command channel.
package app
