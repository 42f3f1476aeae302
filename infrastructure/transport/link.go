// Package transport carries protocol messages between the controller and the
// dispatcher over a native-messaging host process or a loopback WebSocket.
package transport

import "context"

// Link is one live connection to the controller. Receive and Send may be
// called concurrently with each other, but Send is not safe for concurrent use.
type Link interface {
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, msg []byte) error
	Close() error
}

// Connector establishes links to the controller
type Connector interface {
	Name() string
	Connect(ctx context.Context) (Link, error)
}
