// ABOUTME: In-memory realtime transport for tests.
// ABOUTME: Records sent events and lets tests inject inbound ones.
package realtimetest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/circle/internal/realtime"
)

// Transport hands out in-memory connections.
type Transport struct {
	mu      sync.Mutex
	conns   []*Conn
	DialErr error
}

// NewTransport creates a fake transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Dial implements realtime.Transport.
func (t *Transport) Dial(ctx context.Context, origin string) (realtime.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.DialErr != nil {
		return nil, t.DialErr
	}
	c := &Conn{Origin: origin, receive: make(chan realtime.Event, realtime.ReceiveBufferSize)}
	t.conns = append(t.conns, c)
	return c, nil
}

// Dials returns how many connections were opened.
func (t *Transport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// Last returns the most recent connection, or nil.
func (t *Transport) Last() *Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

// Conn is an in-memory connection.
type Conn struct {
	Origin string

	mu      sync.Mutex
	sent    []realtime.Event
	receive chan realtime.Event
	closed  bool
}

func (c *Conn) Send(ctx context.Context, ev realtime.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.ErrClosed
	}
	c.sent = append(c.sent, ev)
	return nil
}

func (c *Conn) Receive() <-chan realtime.Event {
	return c.receive
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.receive)
	}
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns a copy of the events sent so far.
func (c *Conn) Sent() []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Event(nil), c.sent...)
}

// SentNamed returns the sent events with the given name.
func (c *Conn) SentNamed(name string) []realtime.Event {
	var out []realtime.Event
	for _, ev := range c.Sent() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Inject delivers an inbound event as if the server had pushed it.
func (c *Conn) Inject(t testing.TB, name string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		t.Fatalf("inject %s on closed conn", name)
	}
	c.receive <- realtime.Event{Name: name, Payload: data}
}

// Eventually polls cond until it holds or two seconds pass.
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
