// ABOUTME: Tests for the live activity printer used by watch.
// ABOUTME: Injects realtime events through the in-memory transport and checks the output.
package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/2389-research/circle/internal/engagement"
	"github.com/2389-research/circle/internal/feed"
	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/realtime/realtimetest"
	"github.com/2389-research/circle/internal/session/sessiontest"
)

// lockedBuffer is written from the dispatch goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type watchFixture struct {
	out     *lockedBuffer
	conn    *realtimetest.Conn
	manager *realtime.Manager
	store   *feed.Store
}

func newWatchFixture(t *testing.T) *watchFixture {
	t.Helper()
	sess := sessiontest.Session(t, 9)
	tr := realtimetest.NewTransport()
	m := realtime.NewManager(tr, sess)
	store := feed.NewStore(nil, sess, 5)
	store.Seed([]models.Post{{ID: 10, User: models.Author{ID: 2, Name: "Budi"}}})
	likes := engagement.NewStore(nil, m, sess)

	out := &lockedBuffer{}
	unbindFeed := store.Bind(m)
	unbindLikes := likes.Bind(m)
	printer := &activityPrinter{out: out, viewer: 9, feed: store, likes: likes}
	unbindPrinter := printer.bind(m)

	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() {
		unbindPrinter()
		unbindLikes()
		unbindFeed()
		m.Release()
		m.Wait()
	})
	return &watchFixture{out: out, conn: tr.Last(), manager: m, store: store}
}

func TestWatchPrintsAuthorlessComment(t *testing.T) {
	f := newWatchFixture(t)

	f.conn.Inject(t, realtime.EventReceiveComment, map[string]interface{}{"id": 1, "postId": 10, "content": "hi"})
	f.conn.Inject(t, realtime.EventNewComment, map[string]interface{}{"id": 2, "postId": 10, "content": "again", "user": nil})

	realtimetest.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "again")
	}, "both comments printed")

	out := f.out.String()
	if !strings.Contains(out, "* new comment on post 10 (1 total)") || !strings.Contains(out, "(2 total)") {
		t.Errorf("expected comment counts in output, got:\n%s", out)
	}
	if strings.Count(out, "@"+models.AnonymousName) != 2 {
		t.Errorf("expected anonymous authors, got:\n%s", out)
	}
}

func TestWatchDistinguishesOwnPosts(t *testing.T) {
	f := newWatchFixture(t)

	f.conn.Inject(t, realtime.EventNewPost, models.Post{ID: 20, Content: "mine", UserID: 9, User: models.Author{ID: 9, Name: "Ayu"}})
	f.conn.Inject(t, realtime.EventNewPost, models.Post{ID: 21, Content: "theirs", UserID: 3, User: models.Author{ID: 3, Name: "Citra"}})

	realtimetest.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "theirs")
	}, "both posts printed")

	out := f.out.String()
	if !strings.Contains(out, "* you posted #20") {
		t.Errorf("expected own post notice, got:\n%s", out)
	}
	if !strings.Contains(out, "* new post from Citra") {
		t.Errorf("expected post notice naming the author, got:\n%s", out)
	}
	if f.store.Len() != 3 {
		t.Errorf("expected posts merged into the feed, got %d", f.store.Len())
	}
}

func TestWatchPrintsFollowNotification(t *testing.T) {
	f := newWatchFixture(t)

	f.conn.Inject(t, realtime.EventFollowNotification, models.FollowNotification{FromUserName: "Budi", Message: "Budi followed you"})

	realtimetest.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "* Budi followed you")
	}, "follow notification printed")
}
