// Package connection owns the set of live TCP clients.
//
// The Manager is single-owner state: AcceptPending, Sweep and ForEachLive are
// called from the gateway loop only. The TCP listener and connections run
// their own goroutines and hand accepted sockets and received bytes to the
// Manager through channels, so none of these calls ever block on a socket.
package connection
