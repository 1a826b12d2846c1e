// ABOUTME: Process-scoped realtime connection manager with reference counting.
// ABOUTME: Connects on first Acquire, joins the viewer's room, and fans events out to subscribers.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/2389-research/circle/internal/session"
)

// Handler receives one event. Handlers run sequentially on the dispatch
// goroutine in arrival order and must not block.
type Handler func(Event)

// Publisher sends client-originated events.
type Publisher interface {
	Publish(ctx context.Context, name string, payload interface{}) error
}

// Subscriber registers interest in named events.
type Subscriber interface {
	Subscribe(name string, h Handler) *Subscription
}

// Subscription is a registered handler.
type Subscription struct {
	m    *Manager
	name string
	id   uint64
	once sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.m.mu.Lock()
		defer s.m.mu.Unlock()
		hs := s.m.handlers[s.name]
		for i, e := range hs {
			if e.id == s.id {
				hs = append(hs[:i:i], hs[i+1:]...)
				break
			}
		}
		if len(hs) == 0 {
			delete(s.m.handlers, s.name)
		} else {
			s.m.handlers[s.name] = hs
		}
	})
}

type handlerEntry struct {
	id uint64
	h  Handler
}

// Manager owns the single shared connection.
type Manager struct {
	transport Transport
	session   *session.Session
	origin    string

	mu       sync.Mutex
	refs     int
	conn     Conn
	closed   bool
	handlers map[string][]handlerEntry
	nextID   uint64
	dispatch sync.WaitGroup
}

// NewManager creates a manager. The connection is torn down when the
// session is invalidated and cannot be reacquired afterwards.
func NewManager(transport Transport, sess *session.Session) *Manager {
	m := &Manager{
		transport: transport,
		session:   sess,
		origin:    uuid.New().String(),
		handlers:  make(map[string][]handlerEntry),
	}
	sess.OnInvalidate(m.shutdown)
	return m
}

// Origin identifies this process on the wire.
func (m *Manager) Origin() string {
	return m.origin
}

// Acquire takes a reference, connecting and joining the viewer's room when no
// connection is open. References held across a lost connection stay counted,
// so the next Acquire redials for everyone.
func (m *Manager) Acquire(ctx context.Context) error {
	identity, err := m.session.Identity()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.conn != nil {
		m.refs++
		return nil
	}

	conn, err := m.transport.Dial(ctx, m.origin)
	if err != nil {
		return fmt.Errorf("realtime connect: %w", err)
	}
	join, err := NewEvent(EventJoin, identity.UserID)
	if err != nil {
		conn.Close()
		return err
	}
	if err := conn.Send(ctx, join); err != nil {
		conn.Close()
		return fmt.Errorf("realtime join: %w", err)
	}

	m.conn = conn
	m.refs++
	m.dispatch.Add(1)
	go m.run(conn)
	glog.Infof("[rt]joined room for user %d", identity.UserID)
	return nil
}

// Release drops a reference, disconnecting when none remain.
func (m *Manager) Release() {
	m.mu.Lock()
	if m.refs == 0 {
		m.mu.Unlock()
		return
	}
	m.refs--
	var conn Conn
	if m.refs == 0 {
		conn = m.conn
		m.conn = nil
	}
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
		glog.Infof("[rt]disconnected")
	}
}

// Refs returns the current reference count.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Connected reports whether a connection is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Wait blocks until the dispatch goroutine of the last connection exits.
func (m *Manager) Wait() {
	m.dispatch.Wait()
}

// Subscribe registers h for events named name. Comment traffic is delivered
// under EventComment only.
func (m *Manager) Subscribe(name string, h Handler) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.handlers[name] = append(m.handlers[name], handlerEntry{id: m.nextID, h: h})
	return &Subscription{m: m, name: name, id: m.nextID}
}

// Publish sends an event over the open connection.
func (m *Manager) Publish(ctx context.Context, name string, payload interface{}) error {
	ev, err := NewEvent(name, payload)
	if err != nil {
		return err
	}
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}
	return conn.Send(ctx, ev)
}

func (m *Manager) run(conn Conn) {
	defer m.dispatch.Done()
	for ev := range conn.Receive() {
		m.deliver(ev)
	}

	m.mu.Lock()
	if m.conn == conn {
		// holders keep their references; the next Acquire reconnects
		m.conn = nil
		glog.Warningf("[rt]connection lost with %d references held", m.refs)
	}
	m.mu.Unlock()
}

func (m *Manager) deliver(ev Event) {
	ev, err := normalize(ev)
	if err != nil {
		glog.Warningf("[rt]drop: %v", err)
		return
	}

	m.mu.Lock()
	hs := make([]Handler, 0, len(m.handlers[ev.Name]))
	for _, e := range m.handlers[ev.Name] {
		hs = append(hs, e.h)
	}
	m.mu.Unlock()

	if len(hs) == 0 {
		glog.V(2).Infof("[rt]no subscribers for %s", ev.Name)
	}
	for _, h := range hs {
		h(ev)
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.refs = 0
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}
