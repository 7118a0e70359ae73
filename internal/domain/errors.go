package domain

import "errors"

var (
	ErrNoData           = errors.New("no data available")
	ErrConnClosed       = errors.New("connection closed")
	ErrSlowClient       = errors.New("client send queue full")
	ErrReadOnly         = errors.New("transport is read-only")
	ErrClockUnsupported = errors.New("setting the system clock is not supported on this platform")
)
