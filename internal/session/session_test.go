// ABOUTME: Tests for identity decoding, the token slot, and session invalidation.
// ABOUTME: Tokens are signed locally; decoding never checks the signature.
package session_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/2389-research/circle/internal/session"
	"github.com/2389-research/circle/internal/session/sessiontest"
)

func sign(t *testing.T, claims gojwt.MapClaims) string {
	t.Helper()
	s, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestDecodeIdentity(t *testing.T) {
	id, err := session.DecodeIdentity(sessiontest.Token(t, 42))
	assert.Equal(t, err, nil)
	assert.Equal(t, id.UserID, 42)
	assert.Equal(t, id.Name, "tester")
}

func TestDecodeIdentityStringClaim(t *testing.T) {
	id, err := session.DecodeIdentity(sign(t, gojwt.MapClaims{"userId": "17"}))
	assert.Equal(t, err, nil)
	assert.Equal(t, id.UserID, 17)
}

func TestDecodeIdentityRejects(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"missing claim", sign(t, gojwt.MapClaims{"sub": "x"})},
		{"zero id", sign(t, gojwt.MapClaims{"userId": 0})},
		{"fractional id", sign(t, gojwt.MapClaims{"userId": 1.5})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.DecodeIdentity(tt.token)
			if !errors.Is(err, session.ErrUnauthenticated) {
				t.Errorf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestSessionUnauthenticated(t *testing.T) {
	s := session.New("")
	_, err := s.Token()
	assert.Equal(t, errors.Is(err, session.ErrUnauthenticated), true)
	assert.Equal(t, s.Valid(), false)
	assert.Equal(t, s.UserID(), 0)
}

func TestSessionInvalidate(t *testing.T) {
	s := sessiontest.Session(t, 5)
	assert.Equal(t, s.Valid(), true)
	assert.Equal(t, s.UserID(), 5)

	calls := 0
	s.OnInvalidate(func() { calls++ })

	s.Invalidate()
	s.Invalidate()

	assert.Equal(t, calls, 1)
	assert.Equal(t, s.Valid(), false)
	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
	_, err := s.Token()
	assert.Equal(t, errors.Is(err, session.ErrUnauthenticated), true)

	late := false
	s.OnInvalidate(func() { late = true })
	assert.Equal(t, late, true)
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	store := session.NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "token"))

	token, err := store.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, token, "")

	assert.Equal(t, store.Save("abc.def.ghi"), nil)
	token, err = store.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, token, "abc.def.ghi")

	assert.Equal(t, store.Clear(), nil)
	assert.Equal(t, store.Clear(), nil)
	token, _ = store.Load()
	assert.Equal(t, token, "")
}

func TestLogoutClearsStore(t *testing.T) {
	store := session.NewFileTokenStore(filepath.Join(t.TempDir(), "token"))
	if err := store.Save(sessiontest.Token(t, 9)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s, err := session.Open(store)
	assert.Equal(t, err, nil)
	assert.Equal(t, s.UserID(), 9)

	assert.Equal(t, s.Logout(), nil)
	assert.Equal(t, s.Valid(), false)

	token, _ := store.Load()
	assert.Equal(t, token, "")
}
