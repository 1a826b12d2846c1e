// ABOUTME: Tests for the follow toggle, profile loading, and follow notifications.
// ABOUTME: Uses an in-memory follow graph in place of the REST client.
package follow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/realtime/realtimetest"
	"github.com/2389-research/circle/internal/session"
	"github.com/2389-research/circle/internal/session/sessiontest"
)

type fakeGraph struct {
	mu        sync.Mutex
	following map[int][]models.Follow
	nextID    int
	err       error
	removed   []int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{following: map[int][]models.Follow{}, nextID: 50}
}

func (g *fakeGraph) Following(ctx context.Context, userID int) ([]models.Follow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return append([]models.Follow(nil), g.following[userID]...), nil
}

func (g *fakeGraph) AddFollowing(ctx context.Context, userID, followID int) (models.Follow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return models.Follow{}, g.err
	}
	g.nextID++
	edge := models.Follow{ID: g.nextID, User: models.Author{ID: followID}}
	g.following[userID] = append(g.following[userID], edge)
	return edge, nil
}

func (g *fakeGraph) Unfollow(ctx context.Context, followID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.removed = append(g.removed, followID)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []realtime.Event
}

func (p *fakePublisher) Publish(ctx context.Context, name string, payload interface{}) error {
	ev, err := realtime.NewEvent(name, payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, ev)
	return nil
}

func TestCheckFindsEdge(t *testing.T) {
	g := newFakeGraph()
	g.following[1] = []models.Follow{
		{ID: 7, User: models.Author{ID: 3}},
		{ID: 8, User: models.Author{ID: 4}},
	}
	tog := NewToggle(g, &fakePublisher{}, sessiontest.Session(t, 1), 4)

	following, err := tog.Check(context.Background())
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !following || tog.FollowID() != 8 {
		t.Errorf("expected following via edge 8, got %v/%d", following, tog.FollowID())
	}
}

func TestFollowThenUnfollow(t *testing.T) {
	g := newFakeGraph()
	pub := &fakePublisher{}
	tog := NewToggle(g, pub, sessiontest.Session(t, 1), 2)
	ctx := context.Background()

	if err := tog.Follow(ctx); err != nil {
		t.Fatalf("Follow error: %v", err)
	}
	if !tog.Following() || tog.FollowID() != 51 {
		t.Fatalf("expected following via edge 51, got %v/%d", tog.Following(), tog.FollowID())
	}
	if len(pub.sent) != 1 || pub.sent[0].Name != realtime.EventFollow {
		t.Fatalf("expected one follow event, got %+v", pub.sent)
	}
	ev, err := realtime.Decode[models.FollowEvent](pub.sent[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev != (models.FollowEvent{FromUserID: 1, ToUserID: 2, FollowID: 51}) {
		t.Errorf("unexpected follow event %+v", ev)
	}

	if err := tog.Unfollow(ctx); err != nil {
		t.Fatalf("Unfollow error: %v", err)
	}
	if tog.Following() || tog.FollowID() != 0 {
		t.Error("expected not following after unfollow")
	}
	if len(g.removed) != 1 || g.removed[0] != 51 {
		t.Errorf("expected edge 51 removed, got %v", g.removed)
	}
	ev, _ = realtime.Decode[models.FollowEvent](pub.sent[1])
	if pub.sent[1].Name != realtime.EventUnfollow || ev.UnfollowID != 51 {
		t.Errorf("unexpected unfollow event %s %+v", pub.sent[1].Name, ev)
	}
}

func TestUnfollowChecksFirst(t *testing.T) {
	g := newFakeGraph()
	g.following[1] = []models.Follow{{ID: 9, User: models.Author{ID: 2}}}
	tog := NewToggle(g, &fakePublisher{}, sessiontest.Session(t, 1), 2)

	if err := tog.Unfollow(context.Background()); err != nil {
		t.Fatalf("Unfollow error: %v", err)
	}
	if len(g.removed) != 1 || g.removed[0] != 9 {
		t.Errorf("expected edge 9 removed, got %v", g.removed)
	}
}

func TestUnfollowWhenNotFollowing(t *testing.T) {
	g := newFakeGraph()
	tog := NewToggle(g, &fakePublisher{}, sessiontest.Session(t, 1), 2)
	if err := tog.Unfollow(context.Background()); !errors.Is(err, ErrNotFollowing) {
		t.Errorf("expected ErrNotFollowing, got %v", err)
	}
}

func TestSelfFollowRefused(t *testing.T) {
	g := newFakeGraph()
	tog := NewToggle(g, &fakePublisher{}, sessiontest.Session(t, 3), 3)
	if err := tog.Follow(context.Background()); !errors.Is(err, ErrSelfFollow) {
		t.Errorf("expected ErrSelfFollow, got %v", err)
	}
	if len(g.following) != 0 {
		t.Error("no edge should be created")
	}
}

func TestFollowFailure(t *testing.T) {
	g := newFakeGraph()
	g.err = errors.New("down")
	pub := &fakePublisher{}
	tog := NewToggle(g, pub, sessiontest.Session(t, 1), 2)
	if err := tog.Follow(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if tog.Following() || len(pub.sent) != 0 {
		t.Error("failed follow must not change state or broadcast")
	}
}

func TestToggleUnauthenticated(t *testing.T) {
	tog := NewToggle(newFakeGraph(), &fakePublisher{}, session.New(""), 2)
	if _, err := tog.Check(context.Background()); !errors.Is(err, session.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

type fakeProfileAPI struct {
	*fakeGraph
	userErr error
}

func (f *fakeProfileAPI) GetUser(ctx context.Context, userID int) (*models.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &models.User{ID: userID, Name: "Citra"}, nil
}

func (f *fakeProfileAPI) CountFollow(ctx context.Context, userID int) (models.FollowCounts, error) {
	return models.FollowCounts{Followers: 2, Following: 1}, nil
}

func (f *fakeProfileAPI) Followers(ctx context.Context, userID int) ([]models.Follow, error) {
	return []models.Follow{{ID: 1, User: models.Author{ID: 8}}, {ID: 2, User: models.Author{ID: 9}}}, nil
}

func (f *fakeProfileAPI) ListUserPosts(ctx context.Context, userID int) ([]models.Post, error) {
	return []models.Post{{ID: 4, UserID: userID}}, nil
}

func TestLoadProfile(t *testing.T) {
	f := &fakeProfileAPI{fakeGraph: newFakeGraph()}
	f.following[5] = []models.Follow{{ID: 3, User: models.Author{ID: 6}}}

	p, err := LoadProfile(context.Background(), f, 5)
	if err != nil {
		t.Fatalf("LoadProfile error: %v", err)
	}
	if p.User.Name != "Citra" || p.Counts.Followers != 2 {
		t.Errorf("unexpected profile %+v", p)
	}
	if len(p.Followers) != 2 || len(p.Following) != 1 || len(p.Posts) != 1 {
		t.Errorf("unexpected lists: %d followers, %d following, %d posts", len(p.Followers), len(p.Following), len(p.Posts))
	}
}

func TestLoadProfileFailure(t *testing.T) {
	f := &fakeProfileAPI{fakeGraph: newFakeGraph(), userErr: errors.New("404")}
	if _, err := LoadProfile(context.Background(), f, 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotifierReceivesFollowNotifications(t *testing.T) {
	sess := sessiontest.Session(t, 1)
	tr := realtimetest.NewTransport()
	m := realtime.NewManager(tr, sess)

	var mu sync.Mutex
	var got []models.FollowNotification
	unbind := Notifier(func(n models.FollowNotification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	}).Bind(m)
	defer unbind()

	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	tr.Last().Inject(t, realtime.EventFollowNotification, models.FollowNotification{FromUserName: "Dian", Message: "started following you"})
	realtimetest.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "notification delivered")
	m.Release()
	m.Wait()

	if got[0].FromUserName != "Dian" {
		t.Errorf("unexpected notification %+v", got[0])
	}
}
