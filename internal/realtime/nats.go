// ABOUTME: NATS transport for the realtime channel using nats.go.
// ABOUTME: Resource events go to circle.events.<name>; room events to circle.users.<id>.<name>.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

const (
	natsEventsPrefix = "circle.events."
	natsUsersPrefix  = "circle.users."
)

// EventSubject is the subject a resource-scoped event is published on.
func EventSubject(name string) string {
	return natsEventsPrefix + name
}

// RoomSubject is the wildcard subject for one user's private room.
func RoomSubject(userID int) string {
	return natsUsersPrefix + strconv.Itoa(userID) + ".>"
}

// NATSTransport connects through a NATS server instead of the websocket gateway.
type NATSTransport struct {
	url    string
	tokens TokenSource
}

// NewNATSTransport creates a transport for the NATS server at url.
func NewNATSTransport(url string, tokens TokenSource) *NATSTransport {
	return &NATSTransport{url: url, tokens: tokens}
}

// Dial implements Transport.
func (t *NATSTransport) Dial(ctx context.Context, origin string) (Conn, error) {
	opts := []nats.Option{nats.Name("circle-" + origin)}
	if t.tokens != nil {
		if token, err := t.tokens.Token(); err == nil {
			opts = append(opts, nats.Token(token))
		}
	}

	nc, err := nats.Connect(t.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", t.url, err)
	}

	c := &natsConn{
		nc:      nc,
		origin:  origin,
		receive: make(chan Event, ReceiveBufferSize),
	}
	sub, err := nc.Subscribe(natsEventsPrefix+">", c.handle)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	c.subs = append(c.subs, sub)
	glog.Infof("[nats]connected %s", t.url)
	return c, nil
}

type natsConn struct {
	nc     *nats.Conn
	origin string

	mu      sync.Mutex
	subs    []*nats.Subscription
	receive chan Event
	closed  bool
}

func (c *natsConn) handle(msg *nats.Msg) {
	env, err := decodeEnvelope(msg.Data)
	if err != nil {
		glog.Warningf("[nats]drop %s: %v", msg.Subject, err)
		return
	}
	// nats delivers a publisher's own messages back to it
	if env.Origin == c.origin {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.receive <- Event{Name: env.Name, Payload: env.Payload}:
		glog.V(2).Infof("[nats]<- %s", env.Name)
	default:
		glog.Warningf("[nats]drop %s: receive buffer full", env.Name)
	}
}

func (c *natsConn) Send(ctx context.Context, ev Event) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if ev.Name == EventJoin {
		return c.join(ev)
	}

	data, err := encodeEnvelope(c.origin, ev)
	if err != nil {
		return err
	}
	if err := c.nc.Publish(EventSubject(ev.Name), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", ev.Name, err)
	}
	glog.V(2).Infof("[nats]-> %s", ev.Name)
	return nil
}

// join subscribes to the user's room; there is no server to forward to.
func (c *natsConn) join(ev Event) error {
	var userID int
	if err := json.Unmarshal(ev.Payload, &userID); err != nil {
		return fmt.Errorf("malformed join payload: %w", err)
	}
	sub, err := c.nc.Subscribe(RoomSubject(userID), c.handle)
	if err != nil {
		return fmt.Errorf("nats subscribe room %d: %w", userID, err)
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

func (c *natsConn) Receive() <-chan Event {
	return c.receive
}

func (c *natsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	close(c.receive)
	c.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	c.nc.Close()
	return nil
}
