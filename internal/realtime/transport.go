// ABOUTME: Transport abstraction under the realtime manager.
// ABOUTME: A Transport dials one Conn; the manager owns at most one Conn at a time.
package realtime

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing without an open connection.
var ErrClosed = errors.New("realtime: connection closed")

// Transport opens connections to the event stream.
type Transport interface {
	// Dial connects. origin identifies this process so its own
	// publications can be recognised if the transport echoes them.
	Dial(ctx context.Context, origin string) (Conn, error)
}

// Conn is one open connection.
type Conn interface {
	// Send delivers an event to the server.
	Send(ctx context.Context, ev Event) error

	// Receive yields inbound events. It is closed when the connection ends.
	Receive() <-chan Event

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// ReceiveBufferSize bounds inbound events queued ahead of dispatch.
const ReceiveBufferSize = 64
