package domain

import "time"

// ClientInfo is a read-only snapshot of one live client connection.
type ClientInfo struct {
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
}
