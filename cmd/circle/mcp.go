// ABOUTME: CLI command that starts the MCP server.
// ABOUTME: Runs over stdio with the feed and like stores kept live by the realtime channel.
package main

import (
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/circle/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio)",
	Long:  "Start the Model Context Protocol server over stdio so agents can read and act on the feed.",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store := newFeedStore()
	likes := newEngagementStore()

	// tools still work over REST when the channel is down
	if err := globalManager.Acquire(ctx); err != nil {
		glog.Warningf("realtime unavailable: %v", err)
	} else {
		defer globalManager.Release()
	}
	defer store.Bind(globalManager)()
	defer likes.Bind(globalManager)()

	server, err := mcppkg.NewServer(globalClient, globalSession, store, likes, globalManager,
		mcppkg.WithProfile(viewerProfile(ctx)))
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}
