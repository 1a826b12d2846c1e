// ABOUTME: Integration test for the NATS transport.
// ABOUTME: Skipped unless CIRCLE_TEST_NATS_URL points at a running server.
package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2389-research/circle/internal/models"
)

func TestNATSTransportRoundTrip(t *testing.T) {
	url := os.Getenv("CIRCLE_TEST_NATS_URL")
	if url == "" {
		t.Skip("Skipping test - no NATS server configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr := NewNATSTransport(url, nil)
	a, err := tr.Dial(ctx, "a")
	if err != nil {
		t.Fatalf("Dial a: %v", err)
	}
	defer a.Close()
	b, err := tr.Dial(ctx, "b")
	if err != nil {
		t.Fatalf("Dial b: %v", err)
	}
	defer b.Close()

	join, _ := NewEvent(EventJoin, 7)
	if err := b.Send(ctx, join); err != nil {
		t.Fatalf("join: %v", err)
	}

	ev, _ := NewEvent(EventNewLike, models.NewLikeEvent(3, 7, true))
	if err := a.Send(ctx, ev); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-b.Receive():
		if got.Name != EventNewLike {
			t.Errorf("expected %s, got %s", EventNewLike, got.Name)
		}
	case <-ctx.Done():
		t.Fatal("b did not receive the event")
	}

	// a must not see its own publication
	select {
	case got := <-a.Receive():
		t.Errorf("unexpected self delivery %s", got.Name)
	case <-time.After(200 * time.Millisecond):
	}
}
