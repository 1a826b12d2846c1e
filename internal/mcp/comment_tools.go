// ABOUTME: MCP tool implementations for comments and user search.
// ABOUTME: Registers read_comments, add_comment, and search_users.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/circle/internal/comments"
	"github.com/2389-research/circle/internal/search"
)

func (s *Server) registerCommentTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_comments",
		Description: "Show a post and its comments.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"post_id": {"type": "number", "description": "ID of the post."}
			},
			"required": ["post_id"]
		}`),
	}, s.handleReadComments)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "add_comment",
		Description: "Comment on a post.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"post_id": {"type": "number", "description": "ID of the post."},
				"content": {"type": "string", "description": "The comment text.", "minLength": 1}
			},
			"required": ["post_id", "content"]
		}`),
	}, s.handleAddComment)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_users",
		Description: "Find Circle users by name. An empty name lists everyone.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Part of the user's name."}
			}
		}`),
	}, s.handleSearchUsers)
}

type postArgs struct {
	PostID  int    `json:"post_id"`
	Content string `json:"content"`
}

func (s *Server) openStream(ctx context.Context, req *gomcp.CallToolRequest) (*comments.Stream, *gomcp.CallToolResult) {
	var args postArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, toolError("invalid arguments: %v", err)
	}
	if args.PostID <= 0 {
		return nil, toolError("post_id is required")
	}

	stream := comments.NewStream(s.backend, s.publisher, s.session, s.profile, s.feed.IncrementComments)
	if err := stream.Load(ctx, args.PostID); err != nil {
		return nil, toolError("failed to load post %d: %v", args.PostID, err)
	}
	stream.SetInput(args.Content)
	return stream, nil
}

func (s *Server) handleReadComments(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	stream, errResult := s.openStream(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	var sb strings.Builder
	if post := stream.Post(); post != nil {
		sb.WriteString(fmt.Sprintf("#%d @%s\n%s\n", post.ID, post.User.Name, post.Content))
	}
	list := stream.Comments()
	if len(list) == 0 {
		sb.WriteString("---\nNo comments yet.\n")
	}
	for _, c := range list {
		sb.WriteString(fmt.Sprintf("---\n@%s [%s]\n%s\n", c.User.Name, c.CreatedAt.Format("2006-01-02 15:04:05"), c.Content))
	}
	return toolText(sb.String()), nil
}

func (s *Server) handleAddComment(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	stream, errResult := s.openStream(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	if strings.TrimSpace(stream.Input()) == "" {
		return toolError("content is required"), nil
	}

	if err := stream.Submit(ctx); err != nil {
		return toolError("failed to add comment: %v", err), nil
	}
	list := stream.Comments()
	added := list[len(list)-1]
	return toolText(fmt.Sprintf("Comment added (ID: %d) on post %d", added.ID, added.PostID)), nil
}

func (s *Server) handleSearchUsers(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Name string `json:"name"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: %v", err), nil
		}
	}

	users := search.Search(ctx, s.backend, args.Name)
	if len(users) == 0 {
		return toolText("No users found."), nil
	}

	var sb strings.Builder
	for _, u := range users {
		sb.WriteString(fmt.Sprintf("#%d %s\n", u.ID, u.Name))
	}
	return toolText(sb.String()), nil
}
