// ABOUTME: Post, like, and comment endpoints of the Circle REST API.
// ABOUTME: Backs the feed, engagement, and comment stores.
package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/2389-research/circle/internal/models"
)

// ListPosts fetches one page of the feed.
func (c *Client) ListPosts(ctx context.Context, page, limit int) ([]models.Post, error) {
	q := url.Values{}
	q.Set("page", itoa(page))
	q.Set("limit", itoa(limit))
	return getList[models.Post](ctx, c, "/post", q)
}

type createPostResponse struct {
	Post models.Post `json:"post"`
}

// CreatePost publishes a text post. The API takes a multipart form so that an
// image can ride along; circle only sends the content field.
func (c *Client) CreatePost(ctx context.Context, content string) (models.Post, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("content", content); err != nil {
		return models.Post{}, fmt.Errorf("failed to encode post: %w", err)
	}
	if err := form.Close(); err != nil {
		return models.Post{}, fmt.Errorf("failed to encode post: %w", err)
	}

	var resp createPostResponse
	if err := c.send(ctx, http.MethodPost, "/post/create", nil, &buf, form.FormDataContentType(), &resp); err != nil {
		return models.Post{}, err
	}
	return resp.Post, nil
}

// GetPost fetches a single post for the comment dialog header.
func (c *Client) GetPost(ctx context.Context, postID int) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, "/post/post-by-postId/"+itoa(postID), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// LikePost records a like by the viewer.
func (c *Client) LikePost(ctx context.Context, postID int) error {
	return c.do(ctx, http.MethodPost, "/post/"+itoa(postID)+"/like", nil, struct{}{}, nil)
}

// UnlikePost removes the viewer's like.
func (c *Client) UnlikePost(ctx context.Context, postID int) error {
	return c.do(ctx, http.MethodDelete, "/post/"+itoa(postID)+"/unlike", nil, nil, nil)
}

// ListComments fetches the comments of a post.
func (c *Client) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	return getList[models.Comment](ctx, c, "/comments/"+itoa(postID), nil)
}

type createCommentPayload struct {
	PostID  int    `json:"postId"`
	Content string `json:"content"`
}

// CreatedComment is the server's acknowledgement of a new comment.
type CreatedComment struct {
	ID     int `json:"id"`
	PostID int `json:"postId"`
}

// CreateComment posts a comment and returns its authoritative id.
func (c *Client) CreateComment(ctx context.Context, postID int, content string) (CreatedComment, error) {
	var created CreatedComment
	err := c.do(ctx, http.MethodPost, "/comments", nil, createCommentPayload{PostID: postID, Content: content}, &created)
	return created, err
}

// ListUserPosts fetches the posts written by userID for the profile page.
func (c *Client) ListUserPosts(ctx context.Context, userID int) ([]models.Post, error) {
	return getList[models.Post](ctx, c, "/post/"+itoa(userID), nil)
}
