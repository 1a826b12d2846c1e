// ABOUTME: Test helpers for building signed credential tokens and sessions.
// ABOUTME: Lets store tests stand up an authenticated viewer in one line.
package sessiontest

import (
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/2389-research/circle/internal/session"
)

// Token signs a token carrying the userId claim the API issues.
func Token(t testing.TB, userID int) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"userId": userID,
		"name":   "tester",
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// Session returns an authenticated session for userID.
func Session(t testing.TB, userID int) *session.Session {
	t.Helper()
	return session.New(Token(t, userID))
}
