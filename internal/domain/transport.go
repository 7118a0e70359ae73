package domain

import "time"

// Transport is the bus side of the gateway.
type Transport interface {
	// Poll returns the messages received since the last call, at most max,
	// in receipt order. It never blocks.
	Poll(max int) []Message
	// Send transmits raw frames onto the bus.
	Send(frames []Frame) error
}

// Listener hands out accepted client connections without blocking.
type Listener interface {
	TryAccept() (Conn, bool)
}

// Conn is one accepted client connection.
type Conn interface {
	// Connected reports whether the transport is still usable.
	Connected() bool
	// Available returns the number of received bytes ready to read.
	Available() int
	// ReadByte returns the next received byte without blocking.
	ReadByte() (byte, error)
	// WriteLine queues one line for delivery. It never blocks.
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// Consumer observes values published on a hub.
type Consumer[T any] interface {
	Accept(value T)
}

// ConsumerFunc adapts a plain function to Consumer.
type ConsumerFunc[T any] func(T)

func (f ConsumerFunc[T]) Accept(value T) { f(value) }

// ClockSetter applies a new wall-clock time to the host.
type ClockSetter interface {
	SetTime(t time.Time) error
}
