// ABOUTME: Connection validation for the Circle API.
// ABOUTME: Decodes the token locally, then fetches a single post with it.
package tui

import (
	"context"
	"fmt"

	"github.com/2389-research/circle/internal/api"
	"github.com/2389-research/circle/internal/session"
)

// ValidateConnection checks the token and tests it against the API.
// The context allows cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, apiURL, token string) error {
	if _, err := session.DecodeIdentity(token); err != nil {
		return err
	}
	client := api.NewClient(apiURL, session.New(token))
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}
