// ABOUTME: Follow state between the viewer and one target user.
// ABOUTME: Follow and unfollow hit the API first and then broadcast the change.
package follow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
)

var (
	// ErrSelfFollow is returned when the target is the viewer.
	ErrSelfFollow = errors.New("cannot follow yourself")
	// ErrNotFollowing is returned by Unfollow when there is no edge to remove.
	ErrNotFollowing = errors.New("not following this user")
)

// API is the subset of the REST client a Toggle needs.
type API interface {
	Following(ctx context.Context, userID int) ([]models.Follow, error)
	AddFollowing(ctx context.Context, userID, followID int) (models.Follow, error)
	Unfollow(ctx context.Context, followID int) error
}

// Toggle tracks whether the viewer follows target.
type Toggle struct {
	api       API
	publisher realtime.Publisher
	session   *session.Session
	target    int

	mu        sync.Mutex
	checked   bool
	following bool
	followID  int
}

// NewToggle creates a toggle for target. Call Check to learn the current state.
func NewToggle(client API, publisher realtime.Publisher, sess *session.Session, target int) *Toggle {
	return &Toggle{api: client, publisher: publisher, session: sess, target: target}
}

// Target returns the user being followed.
func (t *Toggle) Target() int {
	return t.target
}

func (t *Toggle) viewer() (int, error) {
	identity, err := t.session.Identity()
	if err != nil {
		return 0, err
	}
	if identity.UserID == t.target {
		return 0, ErrSelfFollow
	}
	return identity.UserID, nil
}

// Check scans the viewer's following list for target.
func (t *Toggle) Check(ctx context.Context) (bool, error) {
	me, err := t.viewer()
	if err != nil {
		return false, err
	}
	list, err := t.api.Following(ctx, me)
	if err != nil {
		glog.Errorf("failed to check follow status of user %d: %v", t.target, err)
		return false, fmt.Errorf("failed to check follow status: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked = true
	t.following = false
	t.followID = 0
	for _, f := range list {
		if f.User.ID == t.target {
			t.following = true
			t.followID = f.ID
			break
		}
	}
	return t.following, nil
}

// Following reports the last known state.
func (t *Toggle) Following() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.following
}

// FollowID returns the id of the follow edge, or 0.
func (t *Toggle) FollowID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.followID
}

// Follow makes the viewer follow target and broadcasts a follow event.
func (t *Toggle) Follow(ctx context.Context) error {
	me, err := t.viewer()
	if err != nil {
		return err
	}
	edge, err := t.api.AddFollowing(ctx, me, t.target)
	if err != nil {
		glog.Errorf("failed to follow user %d: %v", t.target, err)
		return fmt.Errorf("failed to follow: %w", err)
	}

	t.mu.Lock()
	t.checked = true
	t.following = true
	t.followID = edge.ID
	t.mu.Unlock()

	ev := models.FollowEvent{FromUserID: me, ToUserID: t.target, FollowID: edge.ID}
	if err := t.publisher.Publish(ctx, realtime.EventFollow, ev); err != nil {
		glog.Warningf("failed to broadcast follow of user %d: %v", t.target, err)
	}
	return nil
}

// Unfollow removes the follow edge and broadcasts an unfollow event.
func (t *Toggle) Unfollow(ctx context.Context) error {
	me, err := t.viewer()
	if err != nil {
		return err
	}

	t.mu.Lock()
	checked := t.checked
	t.mu.Unlock()
	if !checked {
		if _, err := t.Check(ctx); err != nil {
			return err
		}
	}

	followID := t.FollowID()
	if followID == 0 {
		return ErrNotFollowing
	}
	if err := t.api.Unfollow(ctx, followID); err != nil {
		glog.Errorf("failed to unfollow user %d: %v", t.target, err)
		return fmt.Errorf("failed to unfollow: %w", err)
	}

	t.mu.Lock()
	t.following = false
	t.followID = 0
	t.mu.Unlock()

	ev := models.FollowEvent{FromUserID: me, ToUserID: t.target, UnfollowID: followID}
	if err := t.publisher.Publish(ctx, realtime.EventUnfollow, ev); err != nil {
		glog.Warningf("failed to broadcast unfollow of user %d: %v", t.target, err)
	}
	return nil
}
