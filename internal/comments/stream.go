// ABOUTME: CommentStream: the comment list of one open post plus the draft input.
// ABOUTME: Loads over REST, appends realtime comments for the same post, and submits new ones.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/circle/internal/api"
	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
)

// ErrEmptyComment is returned when submitting blank input.
var ErrEmptyComment = errors.New("comment is empty")

// API is the subset of the REST client the stream needs.
type API interface {
	ListComments(ctx context.Context, postID int) ([]models.Comment, error)
	GetPost(ctx context.Context, postID int) (*models.Post, error)
	CreateComment(ctx context.Context, postID int, content string) (api.CreatedComment, error)
}

// Stream is the state of one comment dialog.
type Stream struct {
	api          API
	publisher    realtime.Publisher
	session      *session.Session
	profile      models.Author
	onNewComment func(postID int)
	now          func() time.Time

	mu       sync.Mutex
	postID   int
	post     *models.Post
	comments []models.Comment
	input    string
	unbind   func()
}

// NewStream creates a stream. profile is the viewer's author summary used on
// submitted comments; onNewComment may be nil.
func NewStream(client API, publisher realtime.Publisher, sess *session.Session, profile models.Author, onNewComment func(postID int)) *Stream {
	return &Stream{
		api:          client,
		publisher:    publisher,
		session:      sess,
		profile:      profile,
		onNewComment: onNewComment,
		now:          time.Now,
	}
}

// Load fetches the comments and the post of postID concurrently and replaces
// the stream's contents with them. Switching posts drops the previous post's
// contents up front, so a failed load leaves the stream empty rather than
// showing another post.
func (s *Stream) Load(ctx context.Context, postID int) error {
	s.mu.Lock()
	if s.postID != postID {
		s.comments = nil
		s.post = nil
	}
	s.postID = postID
	s.mu.Unlock()

	var (
		list []models.Comment
		post *models.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.api.ListComments(gctx, postID)
		return err
	})
	g.Go(func() error {
		var err error
		post, err = s.api.GetPost(gctx, postID)
		return err
	})
	if err := g.Wait(); err != nil {
		glog.Errorf("failed to load comments for post %d: %v", postID, err)
		return fmt.Errorf("failed to load comments: %w", err)
	}

	loaded := make([]models.Comment, 0, len(list))
	for _, c := range list {
		loaded = append(loaded, c.WithAuthor())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postID != postID {
		// a newer Load took over
		return nil
	}
	s.comments = loaded
	s.post = post
	return nil
}

// Receive appends a comment if it belongs to the loaded post. It reports
// whether the comment was appended.
func (s *Stream) Receive(c models.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postID == 0 || c.PostID != s.postID {
		return false
	}
	s.comments = append(s.comments, c.WithAuthor())
	return true
}

// SetInput replaces the draft text.
func (s *Stream) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input returns the draft text.
func (s *Stream) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Submit posts the draft. On success the comment is appended locally with
// the client's timestamp, broadcast to other sessions, and the draft is
// cleared. On failure the draft is kept.
func (s *Stream) Submit(ctx context.Context) error {
	if !s.session.Valid() {
		return session.ErrUnauthenticated
	}

	s.mu.Lock()
	postID := s.postID
	text := strings.TrimSpace(s.input)
	s.mu.Unlock()
	if text == "" {
		return ErrEmptyComment
	}
	if postID == 0 {
		return fmt.Errorf("no post loaded")
	}

	created, err := s.api.CreateComment(ctx, postID, text)
	if err != nil {
		glog.Errorf("failed to submit comment on post %d: %v", postID, err)
		return fmt.Errorf("failed to submit comment: %w", err)
	}

	author := s.profile
	comment := models.Comment{
		ID:        created.ID,
		Content:   text,
		UserID:    author.ID,
		PostID:    postID,
		CreatedAt: s.now(),
		User:      &author,
	}

	s.mu.Lock()
	if s.postID == postID {
		s.comments = append(s.comments, comment)
	}
	s.input = ""
	s.mu.Unlock()

	if err := s.publisher.Publish(ctx, realtime.EventNewComment, comment); err != nil {
		glog.Warningf("failed to broadcast comment %d: %v", comment.ID, err)
	}
	if s.onNewComment != nil {
		s.onNewComment(postID)
	}
	return nil
}

// Comments returns a copy of the loaded comments in arrival order.
func (s *Stream) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment(nil), s.comments...)
}

// Post returns the loaded post detail, or nil before Load succeeds.
func (s *Stream) Post() *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post
}

// PostID returns the post the stream is open on.
func (s *Stream) PostID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postID
}

// Bind subscribes the stream to comment events until Close.
func (s *Stream) Bind(sub realtime.Subscriber) {
	subscription := sub.Subscribe(realtime.EventComment, func(ev realtime.Event) {
		ce, err := realtime.Decode[realtime.CommentEvent](ev)
		if err != nil {
			glog.Warningf("ignoring comment event: %v", err)
			return
		}
		if ce.Kind != realtime.CommentKindCreated {
			return
		}
		s.Receive(ce.Comment)
	})

	s.mu.Lock()
	prev := s.unbind
	s.unbind = subscription.Unsubscribe
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Close stops receiving realtime comments.
func (s *Stream) Close() {
	s.mu.Lock()
	unbind := s.unbind
	s.unbind = nil
	s.mu.Unlock()
	if unbind != nil {
		unbind()
	}
}
