// ABOUTME: EngagementStore: per-post liked flag and like count for the viewer.
// ABOUTME: Local toggles are confirmed by the API before being applied and broadcast.
package engagement

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/session"
)

// LikeAPI performs the like mutations. *api.Client satisfies it.
type LikeAPI interface {
	LikePost(ctx context.Context, postID int) error
	UnlikePost(ctx context.Context, postID int) error
}

// LikeState is what the viewer sees for one post.
type LikeState struct {
	Liked bool
	Count int
}

// Store tracks like state keyed by post id. The liked flag and the count are
// recorded independently so remote activity can move one without the other.
type Store struct {
	likes     LikeAPI
	publisher realtime.Publisher
	session   *session.Session

	mu     sync.Mutex
	liked  map[int]bool
	counts map[int]int
}

// NewStore creates an empty engagement store.
func NewStore(likes LikeAPI, publisher realtime.Publisher, sess *session.Session) *Store {
	return &Store{
		likes:     likes,
		publisher: publisher,
		session:   sess,
		liked:     make(map[int]bool),
		counts:    make(map[int]int),
	}
}

// InitializeIfAbsent records the first observed state for a post. Later calls
// for the same post are ignored.
func (s *Store) InitializeIfAbsent(postID int, liked bool, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, hasLiked := s.liked[postID]
	_, hasCount := s.counts[postID]
	if hasLiked || hasCount {
		return
	}
	s.liked[postID] = liked
	s.counts[postID] = count
}

// InitializeFromPost seeds state from a fetched post for the current viewer.
func (s *Store) InitializeFromPost(post models.Post) {
	s.InitializeIfAbsent(post.ID, post.LikedBy(s.session.UserID()), len(post.Likes))
}

// State returns the recorded state for a post and whether any was recorded.
func (s *Store) State(postID int) (LikeState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	liked, hasLiked := s.liked[postID]
	count, hasCount := s.counts[postID]
	return LikeState{Liked: liked, Count: count}, hasLiked || hasCount
}

// Toggle sets the liked flag and moves the count one step in that direction.
func (s *Store) Toggle(postID int, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked[postID] = liked
	s.adjustLocked(postID, liked)
}

// adjustLocked moves the count by one, never below zero.
func (s *Store) adjustLocked(postID int, up bool) {
	if up {
		s.counts[postID]++
		return
	}
	if s.counts[postID] <= 0 {
		glog.Warningf("like count for post %d would go negative, clamping at zero", postID)
		s.counts[postID] = 0
		return
	}
	s.counts[postID]--
}

// ToggleLocal flips the viewer's like on a post. The API call happens first;
// state changes and the broadcast only follow a successful call.
func (s *Store) ToggleLocal(ctx context.Context, postID int) (LikeState, error) {
	identity, err := s.session.Identity()
	if err != nil {
		return LikeState{}, err
	}

	current, _ := s.State(postID)
	target := !current.Liked
	if target {
		err = s.likes.LikePost(ctx, postID)
	} else {
		err = s.likes.UnlikePost(ctx, postID)
	}
	if err != nil {
		glog.Errorf("failed to toggle like on post %d: %v", postID, err)
		return current, fmt.Errorf("failed to toggle like: %w", err)
	}

	s.Toggle(postID, target)
	ev := models.NewLikeEvent(postID, identity.UserID, target)
	if err := s.publisher.Publish(ctx, realtime.EventNewLike, ev); err != nil {
		glog.Warningf("failed to broadcast %s for post %d: %v", ev.Action, postID, err)
	}

	state, _ := s.State(postID)
	return state, nil
}

// ApplyRemote reconciles a like event from another session. Events by other
// users only move the count. Events by the viewer (another device) also set
// the liked flag, and are skipped when the flag already matches.
func (s *Store) ApplyRemote(ev models.LikeEvent) {
	viewer := s.session.UserID()
	if viewer == 0 {
		return
	}
	liked := ev.Action.Liked()

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.UserID == viewer {
		if current, ok := s.liked[ev.PostID]; ok && current == liked {
			return
		}
		s.liked[ev.PostID] = liked
	}
	s.adjustLocked(ev.PostID, liked)
}

// Bind subscribes the store to like events. The returned func unsubscribes.
func (s *Store) Bind(sub realtime.Subscriber) func() {
	likes := sub.Subscribe(realtime.EventNewLike, func(ev realtime.Event) {
		like, err := realtime.Decode[models.LikeEvent](ev)
		if err != nil {
			glog.Warningf("ignoring like event: %v", err)
			return
		}
		if like.Action != models.ActionLike && like.Action != models.ActionUnlike {
			glog.Warningf("ignoring like event with action %q", like.Action)
			return
		}
		s.ApplyRemote(like)
	})
	return likes.Unsubscribe
}
