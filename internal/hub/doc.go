// Package hub implements the synchronous publish/subscribe point between the
// bus decoder and the gateway's consumers.
//
// A Hub keeps the most recent value and hands every published value to its
// consumers one after another, in registration order, before Publish returns.
// It is not a queue: nothing is buffered and nothing is replayed. A Hub is
// owned by a single goroutine (the gateway loop); derived values are published
// on a separate downstream Hub, never back onto the one being dispatched.
package hub
