// ABOUTME: Profile, follow, and search endpoints of the Circle REST API.
// ABOUTME: Consumed by the follow and search packages.
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/2389-research/circle/internal/models"
)

// GetUser fetches a user's profile.
func (c *Client) GetUser(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/user/"+itoa(userID), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CountFollow fetches follower and following totals.
func (c *Client) CountFollow(ctx context.Context, userID int) (models.FollowCounts, error) {
	var counts models.FollowCounts
	err := c.do(ctx, http.MethodGet, "/auth/count-follow/"+itoa(userID), nil, nil, &counts)
	return counts, err
}

// Following lists the users userID follows.
func (c *Client) Following(ctx context.Context, userID int) ([]models.Follow, error) {
	return getList[models.Follow](ctx, c, "/auth/following/"+itoa(userID), nil)
}

// Followers lists the users following userID.
func (c *Client) Followers(ctx context.Context, userID int) ([]models.Follow, error) {
	return getList[models.Follow](ctx, c, "/auth/followers/"+itoa(userID), nil)
}

type addFollowingPayload struct {
	UserID   int `json:"userId"`
	FollowID int `json:"followId"`
}

type addFollowingResponse struct {
	Following models.Follow `json:"following"`
}

// AddFollowing makes userID follow followID and returns the new edge.
func (c *Client) AddFollowing(ctx context.Context, userID, followID int) (models.Follow, error) {
	var resp addFollowingResponse
	err := c.do(ctx, http.MethodPost, "/auth/add-following", nil, addFollowingPayload{UserID: userID, FollowID: followID}, &resp)
	return resp.Following, err
}

// Unfollow deletes a follow edge by its id.
func (c *Client) Unfollow(ctx context.Context, followID int) error {
	return c.do(ctx, http.MethodDelete, "/auth/unfollow/"+itoa(followID), nil, nil, nil)
}

// SearchUsers finds users by name; an empty name lists everyone.
func (c *Client) SearchUsers(ctx context.Context, name string) ([]models.User, error) {
	q := url.Values{}
	q.Set("name", name)
	return getList[models.User](ctx, c, "/auth/search", q)
}
