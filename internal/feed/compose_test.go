// ABOUTME: Tests for post creation through the composer.
// ABOUTME: Checks the local merge, the newPost broadcast, and failure paths.
package feed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
	"github.com/2389-research/circle/internal/session/sessiontest"
)

type fakeCreator struct {
	mu       sync.Mutex
	contents []string
	post     models.Post
	err      error
}

func (f *fakeCreator) CreatePost(ctx context.Context, content string) (models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, content)
	if f.err != nil {
		return models.Post{}, f.err
	}
	p := f.post
	p.Content = content
	return p, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []realtime.Event
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, name string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	ev, err := realtime.NewEvent(name, payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, ev)
	return nil
}

func TestComposerPost(t *testing.T) {
	sess := sessiontest.Session(t, 4)
	store := NewStore(&scriptedFetcher{}, sess, 5)
	store.Seed(postsWithIDs(1, 2))
	creator := &fakeCreator{post: models.Post{ID: 30, UserID: 4, User: models.Author{ID: 4, Name: "Ayu"}}}
	pub := &recordingPublisher{}
	c := NewComposer(creator, pub, sess, store, models.Author{ID: 4, Name: "Ayu"})

	post, err := c.Post(context.Background(), "  halo  ")
	assert.Equal(t, err, nil)
	assert.Equal(t, post.ID, 30)
	assert.Equal(t, creator.contents, []string{"halo"})

	// the new post leads the feed
	assert.Equal(t, ids(store.Posts()), []int{30, 1, 2})

	assert.Equal(t, len(pub.sent), 1)
	assert.Equal(t, pub.sent[0].Name, realtime.EventNewPost)
	sent, err := realtime.Decode[models.Post](pub.sent[0])
	assert.Equal(t, err, nil)
	assert.Equal(t, sent.ID, 30)
	assert.Equal(t, sent.Content, "halo")
	assert.Equal(t, sent.User.Name, "Ayu")
}

func TestComposerFillsMissingAuthor(t *testing.T) {
	sess := sessiontest.Session(t, 4)
	creator := &fakeCreator{post: models.Post{ID: 31}}
	c := NewComposer(creator, &recordingPublisher{}, sess, nil, models.Author{ID: 4, Name: "Ayu"})

	post, err := c.Post(context.Background(), "hi")
	assert.Equal(t, err, nil)
	assert.Equal(t, post.User.Name, "Ayu")
	assert.Equal(t, post.UserID, 4)
	assert.Equal(t, post.AuthorID(), 4)
}

func TestComposerBroadcastFailureKeepsPost(t *testing.T) {
	sess := sessiontest.Session(t, 4)
	store := NewStore(&scriptedFetcher{}, sess, 5)
	c := NewComposer(&fakeCreator{post: models.Post{ID: 32}}, &recordingPublisher{err: errors.New("offline")}, sess, store, models.Author{ID: 4})

	_, err := c.Post(context.Background(), "still here")
	assert.Equal(t, err, nil)
	assert.Equal(t, store.Len(), 1)
}

func TestComposerFailures(t *testing.T) {
	sess := sessiontest.Session(t, 4)
	store := NewStore(&scriptedFetcher{}, sess, 5)
	creator := &fakeCreator{err: errors.New("500")}
	pub := &recordingPublisher{}
	c := NewComposer(creator, pub, sess, store, models.Author{ID: 4})

	_, err := c.Post(context.Background(), "   ")
	assert.Equal(t, err, ErrEmptyPost)
	assert.Equal(t, len(creator.contents), 0)

	_, err = c.Post(context.Background(), "boom")
	assert.NotEqual(t, err, nil)
	assert.Equal(t, store.Len(), 0)
	assert.Equal(t, len(pub.sent), 0)

	loggedOut := NewComposer(creator, pub, session.New(""), store, models.Author{})
	_, err = loggedOut.Post(context.Background(), "hi")
	assert.Equal(t, errors.Is(err, session.ErrUnauthenticated), true)
}
