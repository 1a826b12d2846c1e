// ABOUTME: Tests for like toggling, first-observation-wins, and remote reconciliation.
// ABOUTME: The like API and publisher are replaced with recording fakes.
package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/realtime/realtimetest"
	"github.com/2389-research/circle/internal/session"
	"github.com/2389-research/circle/internal/session/sessiontest"
)

type fakeLikes struct {
	err     error
	likes   []int
	unlikes []int
}

func (f *fakeLikes) LikePost(ctx context.Context, postID int) error {
	if f.err != nil {
		return f.err
	}
	f.likes = append(f.likes, postID)
	return nil
}

func (f *fakeLikes) UnlikePost(ctx context.Context, postID int) error {
	if f.err != nil {
		return f.err
	}
	f.unlikes = append(f.unlikes, postID)
	return nil
}

type published struct {
	name    string
	payload interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	sent []published
}

func (p *fakePublisher) Publish(ctx context.Context, name string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{name, payload})
	return p.err
}

func TestToggleRoundTrip(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 1))
	s.InitializeIfAbsent(1, false, 3)

	s.Toggle(1, true)
	st, _ := s.State(1)
	assert.Equal(t, st, LikeState{Liked: true, Count: 4})

	s.Toggle(1, false)
	st, _ = s.State(1)
	assert.Equal(t, st, LikeState{Liked: false, Count: 3})
}

func TestToggleUnknownPostStartsAtZero(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 1))
	s.Toggle(9, true)
	st, ok := s.State(9)
	assert.Equal(t, ok, true)
	assert.Equal(t, st, LikeState{Liked: true, Count: 1})
}

func TestToggleClampsAtZero(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 1))
	s.InitializeIfAbsent(1, true, 0)
	s.Toggle(1, false)
	s.Toggle(1, false)
	st, _ := s.State(1)
	assert.Equal(t, st.Count, 0)
}

func TestInitializeIfAbsentFirstWins(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 1))
	s.InitializeIfAbsent(1, true, 5)
	s.InitializeIfAbsent(1, false, 0)
	st, _ := s.State(1)
	assert.Equal(t, st, LikeState{Liked: true, Count: 5})

	_, ok := s.State(2)
	assert.Equal(t, ok, false)
}

func TestInitializeFromPost(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 4))
	s.InitializeFromPost(models.Post{ID: 1, Likes: []models.Like{{UserID: 2}, {UserID: 4}}})
	s.InitializeFromPost(models.Post{ID: 2, Likes: []models.Like{{UserID: 2}}})

	st, _ := s.State(1)
	assert.Equal(t, st, LikeState{Liked: true, Count: 2})
	st, _ = s.State(2)
	assert.Equal(t, st, LikeState{Liked: false, Count: 1})
}

func TestToggleLocalConfirmsThenApplies(t *testing.T) {
	likes := &fakeLikes{}
	pub := &fakePublisher{}
	s := NewStore(likes, pub, sessiontest.Session(t, 7))
	s.InitializeIfAbsent(3, false, 2)

	st, err := s.ToggleLocal(context.Background(), 3)
	assert.Equal(t, err, nil)
	assert.Equal(t, st, LikeState{Liked: true, Count: 3})
	assert.Equal(t, likes.likes, []int{3})
	assert.Equal(t, len(pub.sent), 1)
	assert.Equal(t, pub.sent[0].name, realtime.EventNewLike)
	assert.Equal(t, pub.sent[0].payload, models.LikeEvent{PostID: 3, UserID: 7, Action: models.ActionLike})

	st, err = s.ToggleLocal(context.Background(), 3)
	assert.Equal(t, err, nil)
	assert.Equal(t, st, LikeState{Liked: false, Count: 2})
	assert.Equal(t, likes.unlikes, []int{3})
	assert.Equal(t, pub.sent[1].payload, models.LikeEvent{PostID: 3, UserID: 7, Action: models.ActionUnlike})
}

func TestToggleLocalFailureLeavesState(t *testing.T) {
	boom := errors.New("boom")
	pub := &fakePublisher{}
	s := NewStore(&fakeLikes{err: boom}, pub, sessiontest.Session(t, 7))
	s.InitializeIfAbsent(3, false, 2)

	_, err := s.ToggleLocal(context.Background(), 3)
	assert.Equal(t, errors.Is(err, boom), true)
	st, _ := s.State(3)
	assert.Equal(t, st, LikeState{Liked: false, Count: 2})
	assert.Equal(t, len(pub.sent), 0)
}

func TestToggleLocalBroadcastFailureKeepsState(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{err: realtime.ErrClosed}, sessiontest.Session(t, 7))
	st, err := s.ToggleLocal(context.Background(), 3)
	assert.Equal(t, err, nil)
	assert.Equal(t, st, LikeState{Liked: true, Count: 1})
}

func TestToggleLocalUnauthenticated(t *testing.T) {
	likes := &fakeLikes{}
	s := NewStore(likes, &fakePublisher{}, session.New(""))
	_, err := s.ToggleLocal(context.Background(), 3)
	assert.Equal(t, errors.Is(err, session.ErrUnauthenticated), true)
	assert.Equal(t, len(likes.likes), 0)
}

func TestApplyRemoteOtherUserMovesCountOnly(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 1))
	s.InitializeIfAbsent(5, false, 3)

	s.ApplyRemote(models.NewLikeEvent(5, 2, true))
	st, _ := s.State(5)
	assert.Equal(t, st, LikeState{Liked: false, Count: 4})

	s.InitializeIfAbsent(6, true, 1)
	s.ApplyRemote(models.NewLikeEvent(6, 2, false))
	st, _ = s.State(6)
	assert.Equal(t, st, LikeState{Liked: true, Count: 0})
}

func TestApplyRemoteOwnEventFromOtherDevice(t *testing.T) {
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sessiontest.Session(t, 1))
	s.InitializeIfAbsent(5, false, 3)

	s.ApplyRemote(models.NewLikeEvent(5, 1, true))
	st, _ := s.State(5)
	assert.Equal(t, st, LikeState{Liked: true, Count: 4})

	// already applied: no double count
	s.ApplyRemote(models.NewLikeEvent(5, 1, true))
	st, _ = s.State(5)
	assert.Equal(t, st, LikeState{Liked: true, Count: 4})
}

func TestApplyRemoteAfterLogout(t *testing.T) {
	sess := sessiontest.Session(t, 1)
	s := NewStore(&fakeLikes{}, &fakePublisher{}, sess)
	s.InitializeIfAbsent(5, false, 3)
	sess.Invalidate()

	s.ApplyRemote(models.NewLikeEvent(5, 2, true))
	st, _ := s.State(5)
	assert.Equal(t, st.Count, 3)
}

func TestBindAppliesRemoteEvents(t *testing.T) {
	sess := sessiontest.Session(t, 1)
	tr := realtimetest.NewTransport()
	m := realtime.NewManager(tr, sess)
	s := NewStore(&fakeLikes{}, m, sess)
	s.InitializeIfAbsent(5, false, 0)

	unbind := s.Bind(m)
	defer unbind()
	assert.Equal(t, m.Acquire(context.Background()), nil)
	conn := tr.Last()
	conn.Inject(t, realtime.EventNewLike, models.NewLikeEvent(5, 2, true))
	conn.Inject(t, realtime.EventNewLike, map[string]interface{}{"postId": 5, "userId": 3, "action": "poke"})
	conn.Inject(t, realtime.EventNewLike, models.NewLikeEvent(5, 3, true))

	realtimetest.Eventually(t, func() bool {
		st, _ := s.State(5)
		return st.Count == 2
	}, "two remote likes applied")

	m.Release()
	m.Wait()
	st, _ := s.State(5)
	assert.Equal(t, st, LikeState{Liked: false, Count: 2})
}
