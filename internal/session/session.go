// ABOUTME: Session context shared by every store: token, identity, and invalidation.
// ABOUTME: Logout closes Done and runs callbacks so in-flight reconciliation halts.
package session

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// Session is the explicit authenticated context passed to stores.
// A Session that failed to decode is still usable; it simply reports
// ErrUnauthenticated from Identity.
type Session struct {
	store TokenStore

	mu        sync.Mutex
	token     string
	identity  Identity
	authErr   error
	done      chan struct{}
	callbacks []func()
}

// Open loads the token from store and decodes it once.
func Open(store TokenStore) (*Session, error) {
	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}
	s := &Session{
		store: store,
		token: token,
		done:  make(chan struct{}),
	}
	s.identity, s.authErr = DecodeIdentity(token)
	if s.authErr != nil && token != "" {
		glog.Warningf("stored token could not be decoded: %v", s.authErr)
	}
	return s, nil
}

// New builds a session directly from a token, without a persistent slot.
func New(token string) *Session {
	s, _ := Open(NewMemoryTokenStore(token))
	return s
}

// Token returns the bearer token, or ErrUnauthenticated once invalidated or
// when no token was stored.
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidatedLocked() || s.token == "" {
		return "", ErrUnauthenticated
	}
	return s.token, nil
}

// Identity returns the decoded viewer or ErrUnauthenticated.
func (s *Session) Identity() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidatedLocked() {
		return Identity{}, ErrUnauthenticated
	}
	if s.authErr != nil {
		return Identity{}, s.authErr
	}
	return s.identity, nil
}

// UserID returns the viewer id, or 0 when unauthenticated.
func (s *Session) UserID() int {
	id, err := s.Identity()
	if err != nil {
		return 0
	}
	return id.UserID
}

// Valid reports whether the session is authenticated and not invalidated.
func (s *Session) Valid() bool {
	_, err := s.Identity()
	return err == nil
}

// Done is closed when the session is invalidated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// OnInvalidate registers fn to run once when the session ends. If the
// session has already ended fn runs immediately.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	if s.invalidatedLocked() {
		s.mu.Unlock()
		fn()
		return
	}
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}

// Invalidate ends the session. Safe to call more than once.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if s.invalidatedLocked() {
		s.mu.Unlock()
		return
	}
	close(s.done)
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	glog.Infof("session invalidated")
	for _, fn := range callbacks {
		fn()
	}
}

// Logout clears the persisted token and invalidates the session.
func (s *Session) Logout() error {
	err := s.store.Clear()
	s.Invalidate()
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

func (s *Session) invalidatedLocked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
