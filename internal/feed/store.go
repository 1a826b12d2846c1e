// ABOUTME: FeedStore: the deduplicated post collection with page-cursor pagination.
// ABOUTME: Merges fetched pages and realtime-created posts by post id.
package feed

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
)

// Fetcher loads one page of posts. *api.Client satisfies it.
type Fetcher interface {
	ListPosts(ctx context.Context, page, limit int) ([]models.Post, error)
}

// Store holds the posts currently known to the client.
type Store struct {
	fetcher  Fetcher
	session  *session.Session
	pageSize int

	mu       sync.Mutex
	posts    []models.Post
	comments map[int]int
	page     int
	hasMore  bool
	loading  bool
}

// NewStore creates an empty feed positioned at page 1.
func NewStore(fetcher Fetcher, sess *session.Session, pageSize int) *Store {
	return &Store{
		fetcher:  fetcher,
		session:  sess,
		pageSize: pageSize,
		comments: make(map[int]int),
		page:     1,
		hasMore:  true,
	}
}

// merge combines incoming and existing posts keyed by id. Ids take the
// position of their first appearance in incoming-then-existing order, and
// an already-known post keeps its existing copy.
func merge(existing, incoming []models.Post) []models.Post {
	order := make([]int, 0, len(incoming)+len(existing))
	byID := make(map[int]models.Post, len(incoming)+len(existing))
	add := func(p models.Post) {
		if _, ok := byID[p.ID]; !ok {
			order = append(order, p.ID)
		}
		byID[p.ID] = p
	}
	for _, p := range incoming {
		add(p)
	}
	for _, p := range existing {
		add(p)
	}

	out := make([]models.Post, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// Seed merges a page of posts into the collection.
func (s *Store) Seed(page []models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedLocked(page)
}

func (s *Store) seedLocked(page []models.Post) {
	s.posts = merge(s.posts, page)
	for _, p := range page {
		if _, ok := s.comments[p.ID]; !ok {
			s.comments[p.ID] = p.CommentCount()
		}
	}
}

// ReceiveCreated merges a single post created elsewhere.
func (s *Store) ReceiveCreated(post models.Post) {
	s.Seed([]models.Post{post})
}

// Posts returns a copy of the current collection.
func (s *Store) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Post(nil), s.posts...)
}

// Len returns the number of posts held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// Page returns the next page to fetch.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// HasMore reports whether another fetch may be attempted.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// FetchNext fetches and merges the next page. It reports whether a fetch was
// issued: a call while another is in flight, after the feed is exhausted, or
// after the session ended does nothing. A failed fetch leaves the cursor and
// collection untouched.
func (s *Store) FetchNext(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.loading || !s.hasMore || !s.session.Valid() {
		s.mu.Unlock()
		return false, nil
	}
	s.loading = true
	page := s.page
	s.mu.Unlock()

	posts, err := s.fetcher.ListPosts(ctx, page, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		glog.Errorf("failed to fetch feed page %d: %v", page, err)
		return true, err
	}
	if !s.session.Valid() {
		glog.Infof("dropping feed page %d: session ended", page)
		return true, session.ErrUnauthenticated
	}
	if len(posts) == 0 {
		s.hasMore = false
		return true, nil
	}
	s.seedLocked(posts)
	s.page++
	glog.V(2).Infof("merged feed page %d (%d posts, %d total)", page, len(posts), len(s.posts))
	return true, nil
}

// CommentCount returns the displayed comment count for a post.
func (s *Store) CommentCount(postID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments[postID]
}

// IncrementComments bumps a post's displayed comment count.
func (s *Store) IncrementComments(postID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[postID]++
}

// Bind subscribes the store to post creation and comment events. The
// returned func unsubscribes.
func (s *Store) Bind(sub realtime.Subscriber) func() {
	posts := sub.Subscribe(realtime.EventNewPost, s.handleNewPost)
	comments := sub.Subscribe(realtime.EventComment, s.handleComment)
	return func() {
		posts.Unsubscribe()
		comments.Unsubscribe()
	}
}

func (s *Store) handleNewPost(ev realtime.Event) {
	if !s.session.Valid() {
		return
	}
	post, err := realtime.Decode[models.Post](ev)
	if err != nil {
		glog.Warningf("ignoring new post: %v", err)
		return
	}
	s.ReceiveCreated(post)
}

func (s *Store) handleComment(ev realtime.Event) {
	if !s.session.Valid() {
		return
	}
	ce, err := realtime.Decode[realtime.CommentEvent](ev)
	if err != nil {
		glog.Warningf("ignoring comment event: %v", err)
		return
	}
	if ce.Kind == realtime.CommentKindCreated {
		s.IncrementComments(ce.Comment.PostID)
	}
}
