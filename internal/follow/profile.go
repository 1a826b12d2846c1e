// ABOUTME: Profile loading and follow notification delivery.
// ABOUTME: A profile is assembled from several concurrent API calls.
package follow

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
)

// ProfileAPI is the subset of the REST client LoadProfile needs.
type ProfileAPI interface {
	GetUser(ctx context.Context, userID int) (*models.User, error)
	CountFollow(ctx context.Context, userID int) (models.FollowCounts, error)
	Followers(ctx context.Context, userID int) ([]models.Follow, error)
	Following(ctx context.Context, userID int) ([]models.Follow, error)
	ListUserPosts(ctx context.Context, userID int) ([]models.Post, error)
}

// Profile is everything shown on a user's profile page.
type Profile struct {
	User      models.User
	Counts    models.FollowCounts
	Followers []models.Follow
	Following []models.Follow
	Posts     []models.Post
}

// LoadProfile fetches a user's profile. Any failed call fails the whole load.
func LoadProfile(ctx context.Context, client ProfileAPI, userID int) (*Profile, error) {
	var p Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := client.GetUser(gctx, userID)
		if err != nil {
			return err
		}
		p.User = *user
		return nil
	})
	g.Go(func() error {
		var err error
		p.Counts, err = client.CountFollow(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		p.Followers, err = client.Followers(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		p.Following, err = client.Following(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		p.Posts, err = client.ListUserPosts(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		glog.Errorf("failed to load profile of user %d: %v", userID, err)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}

// Notifier receives follow notifications addressed to the viewer.
type Notifier func(models.FollowNotification)

// Bind subscribes n to follow notifications. The returned func unsubscribes.
func (n Notifier) Bind(sub realtime.Subscriber) func() {
	s := sub.Subscribe(realtime.EventFollowNotification, func(ev realtime.Event) {
		note, err := realtime.Decode[models.FollowNotification](ev)
		if err != nil {
			glog.Warningf("ignoring follow notification: %v", err)
			return
		}
		n(note)
	})
	return s.Unsubscribe
}
