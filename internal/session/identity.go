// ABOUTME: Decodes the viewer's identity from the stored credential token.
// ABOUTME: The one place the token payload is read; everything else asks Session.
package session

import (
	"errors"
	"fmt"
	"strconv"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when no usable credential is available.
var ErrUnauthenticated = errors.New("session: unauthenticated")

// Identity is the decoded viewer.
type Identity struct {
	UserID int
	Name   string
}

// DecodeIdentity reads the userId claim from a token without verifying its
// signature. The server verifies; the client only needs to know who it is.
func DecodeIdentity(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(gojwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := claimInt(claims["userId"])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: userId claim: %v", ErrUnauthenticated, err)
	}

	identity := Identity{UserID: userID}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}

func claimInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n <= 0 || n != float64(int(n)) {
			return 0, fmt.Errorf("invalid value %v", n)
		}
		return int(n), nil
	case string:
		id, err := strconv.Atoi(n)
		if err != nil {
			return 0, err
		}
		if id <= 0 {
			return 0, fmt.Errorf("invalid value %d", id)
		}
		return id, nil
	case nil:
		return 0, errors.New("missing")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
