// ABOUTME: MCP tool implementations for reading the feed, posting, and liking posts.
// ABOUTME: Registers read_feed, create_post, and toggle_like.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/circle/internal/models"
)

func (s *Server) registerFeedTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_feed",
		Description: "Load the next page of the Circle feed and show every post loaded so far.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pages": {"type": "number", "description": "How many more pages to load (default 1, 0 shows what is already loaded)"}
			}
		}`),
	}, s.handleReadFeed)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "create_post",
		Description: "Publish a text post to the Circle feed.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"content": {"type": "string", "description": "The post text.", "minLength": 1}
			},
			"required": ["content"]
		}`),
	}, s.handleCreatePost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "toggle_like",
		Description: "Like a post, or remove your like if you already liked it.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"post_id": {"type": "number", "description": "ID of the post to like or unlike."}
			},
			"required": ["post_id"]
		}`),
	}, s.handleToggleLike)
}

func (s *Server) handleReadFeed(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	args := struct {
		Pages *int `json:"pages"`
	}{}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}
	pages := 1
	if args.Pages != nil {
		pages = *args.Pages
	}
	if !s.session.Valid() {
		return toolError("not logged in - run 'circle login <token>' first"), nil
	}

	for i := 0; i < pages && s.feed.HasMore(); i++ {
		if _, err := s.feed.FetchNext(ctx); err != nil {
			return toolError("failed to load feed: %v", err), nil
		}
	}

	posts := s.feed.Posts()
	if len(posts) == 0 {
		return toolText("No posts found."), nil
	}

	var sb strings.Builder
	for _, post := range posts {
		s.likes.InitializeFromPost(post)
		sb.WriteString(s.formatPost(post))
	}
	if !s.feed.HasMore() {
		sb.WriteString("---\n(end of feed)\n")
	}
	return toolText(sb.String()), nil
}

func (s *Server) formatPost(post models.Post) string {
	like, _ := s.likes.State(post.ID)
	heart := ""
	if like.Liked {
		heart = ", liked by you"
	}
	return fmt.Sprintf("---\n#%d @%s [%s] %d likes%s, %d comments\n%s\n",
		post.ID, post.User.Name, post.CreatedAt.Format("2006-01-02 15:04:05"),
		like.Count, heart, s.feed.CommentCount(post.ID), post.Content)
}

func (s *Server) handleCreatePost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Content) == "" {
		return toolError("content is required"), nil
	}

	post, err := s.composer.Post(ctx, args.Content)
	if err != nil {
		return toolError("failed to create post: %v", err), nil
	}
	s.likes.InitializeFromPost(post)
	return toolText(fmt.Sprintf("Post created (ID: %d)", post.ID)), nil
}

func (s *Server) handleToggleLike(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		PostID int `json:"post_id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.PostID <= 0 {
		return toolError("post_id is required"), nil
	}

	state, err := s.likes.ToggleLocal(ctx, args.PostID)
	if err != nil {
		return toolError("failed to toggle like: %v", err), nil
	}

	verb := "Unliked"
	if state.Liked {
		verb = "Liked"
	}
	return toolText(fmt.Sprintf("%s post %d (%d likes)", verb, args.PostID, state.Count)), nil
}
