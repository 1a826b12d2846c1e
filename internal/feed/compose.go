// ABOUTME: Post creation: publish over REST, add to the local feed, broadcast newPost.
// ABOUTME: The broadcast reaches other sessions; this one merges the post itself.
package feed

import (
	"context"
	"errors"
	"strings"

	"github.com/golang/glog"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
)

// ErrEmptyPost is returned when posting blank content.
var ErrEmptyPost = errors.New("post is empty")

// Creator publishes a post. *api.Client satisfies it.
type Creator interface {
	CreatePost(ctx context.Context, content string) (models.Post, error)
}

// Composer creates posts on behalf of the viewer.
type Composer struct {
	api       Creator
	publisher realtime.Publisher
	session   *session.Session
	store     *Store
	profile   models.Author
}

// NewComposer creates a composer. store may be nil when no feed is shown;
// profile fills in the author when the API returns the post without one.
func NewComposer(client Creator, publisher realtime.Publisher, sess *session.Session, store *Store, profile models.Author) *Composer {
	return &Composer{api: client, publisher: publisher, session: sess, store: store, profile: profile}
}

// Post creates a post from content. The created post is merged into the
// store and broadcast as newPost; a failed broadcast is only logged.
func (c *Composer) Post(ctx context.Context, content string) (models.Post, error) {
	if !c.session.Valid() {
		return models.Post{}, session.ErrUnauthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Post{}, ErrEmptyPost
	}

	post, err := c.api.CreatePost(ctx, content)
	if err != nil {
		glog.Errorf("failed to create post: %v", err)
		return models.Post{}, err
	}
	if post.User.ID == 0 {
		post.User = c.profile
		if post.User.ID == 0 {
			post.User.ID = c.session.UserID()
		}
	}
	if post.UserID == 0 {
		post.UserID = post.User.ID
	}

	if c.store != nil {
		c.store.ReceiveCreated(post)
	}
	if err := c.publisher.Publish(ctx, realtime.EventNewPost, post); err != nil {
		glog.Warningf("post %d created but not broadcast: %v", post.ID, err)
	}
	return post, nil
}
