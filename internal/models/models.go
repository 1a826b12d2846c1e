// ABOUTME: Core data models for posts, likes, comments, users, and realtime payloads.
// ABOUTME: JSON tags follow the Circle REST contract so values decode straight from the API.
package models

import (
	"time"
)

// Author is the user summary embedded in posts and comments.
type Author struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// AnonymousName is shown for comments that arrive without an author.
const AnonymousName = "Anonymous"

// AnonymousAuthor returns the placeholder author used for incomplete payloads.
func AnonymousAuthor() Author {
	return Author{Name: AnonymousName}
}

// Like is a single like record as returned with a fetched post.
type Like struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	PostID    int       `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a comment on a post. User may be nil on realtime payloads.
type Comment struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	UserID    int       `json:"userId,omitempty"`
	PostID    int       `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
	User      *Author   `json:"user,omitempty"`
}

// WithAuthor returns c with the anonymous author filled in when the payload
// carried none.
func (c Comment) WithAuthor() Comment {
	if c.User == nil {
		anon := AnonymousAuthor()
		c.User = &anon
	}
	return c
}

// Post is a feed entry.
type Post struct {
	ID        int        `json:"id"`
	Content   string     `json:"content"`
	Image     *string    `json:"image"`
	UserID    int        `json:"userId"`
	User      Author     `json:"user"`
	Likes     []Like     `json:"likes"`
	Comments  []Comment  `json:"comments"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// LikedBy reports whether userID appears among the post's likers.
func (p *Post) LikedBy(userID int) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// AuthorID is the id of the post's author, read from the embedded user
// summary when present.
func (p *Post) AuthorID() int {
	if p.User.ID != 0 {
		return p.User.ID
	}
	return p.UserID
}

// CommentCount is the comment total at fetch time.
func (p *Post) CommentCount() int {
	return len(p.Comments)
}

// User is the full profile returned by /auth/user/{id}.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// FollowCounts holds the follower/following totals for a user.
type FollowCounts struct {
	Followers int `json:"totalFollowers"`
	Following int `json:"totalFollowing"`
}

// Follow is one edge of the follow graph as listed by the API.
type Follow struct {
	ID   int    `json:"id"`
	User Author `json:"user"`
}

// LikeAction is the verb carried by a like event.
type LikeAction string

const (
	ActionLike   LikeAction = "like"
	ActionUnlike LikeAction = "unlike"
)

// Liked returns the liked state the action leads to.
func (a LikeAction) Liked() bool {
	return a == ActionLike
}

// LikeEvent is broadcast after a confirmed like or unlike.
type LikeEvent struct {
	PostID int        `json:"postId"`
	UserID int        `json:"userId"`
	Action LikeAction `json:"action"`
}

// NewLikeEvent builds the event for a confirmed toggle.
func NewLikeEvent(postID, userID int, liked bool) LikeEvent {
	action := ActionUnlike
	if liked {
		action = ActionLike
	}
	return LikeEvent{PostID: postID, UserID: userID, Action: action}
}

// FollowEvent is broadcast after a follow or unfollow succeeds.
type FollowEvent struct {
	FromUserID int `json:"fromUserId"`
	ToUserID   int `json:"toUserId"`
	FollowID   int `json:"followId,omitempty"`
	UnfollowID int `json:"unfollowId,omitempty"`
}

// FollowNotification is delivered to the followed user's room.
type FollowNotification struct {
	FromUserName string `json:"fromUserName"`
	Message      string `json:"message"`
}
