// ABOUTME: MCP server initialization and configuration for circle.
// ABOUTME: Exposes the feed, post, like, comment, and user search stores as agent tools.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/circle/internal/comments"
	"github.com/2389-research/circle/internal/engagement"
	"github.com/2389-research/circle/internal/feed"
	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
	"github.com/2389-research/circle/internal/search"
	"github.com/2389-research/circle/internal/session"
)

// Backend is the REST surface the tools call beyond the stores.
// *api.Client satisfies it.
type Backend interface {
	comments.API
	search.UserSearcher
	feed.Creator
}

// Server wraps the MCP server with the client-side stores.
type Server struct {
	mcp       *gomcp.Server
	backend   Backend
	session   *session.Session
	feed      *feed.Store
	likes     *engagement.Store
	publisher realtime.Publisher
	profile   models.Author
	composer  *feed.Composer
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithProfile sets the author summary attached to comments added by tools.
func WithProfile(profile models.Author) ServerOption {
	return func(s *Server) {
		s.profile = profile
	}
}

// NewServer creates an MCP server over the given stores. publisher carries
// like and comment broadcasts to other sessions.
func NewServer(backend Backend, sess *session.Session, feedStore *feed.Store, likes *engagement.Store, publisher realtime.Publisher, opts ...ServerOption) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if feedStore == nil || likes == nil {
		return nil, fmt.Errorf("feed and engagement stores are required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "circle",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		backend:   backend,
		session:   sess,
		feed:      feedStore,
		likes:     likes,
		publisher: publisher,
		profile:   models.Author{ID: sess.UserID()},
	}

	for _, opt := range opts {
		opt(s)
	}
	s.composer = feed.NewComposer(backend, publisher, sess, feedStore, s.profile)

	s.registerFeedTools()
	s.registerCommentTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolText(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}
