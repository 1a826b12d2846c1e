// ABOUTME: CLI commands for the feed and likes.
// ABOUTME: Provides feed and like, plus the post printer shared with watch.
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/engagement"
	"github.com/2389-research/circle/internal/feed"
	"github.com/2389-research/circle/internal/models"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Read the feed",
	Long:  "Fetch pages of the feed, newest first.",
	RunE:  runFeed,
}

var postCmd = &cobra.Command{
	Use:   "post <text>",
	Short: "Publish a text post",
	Long:  "Publish a post. Everything on the command line is the post text.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPost,
}

var likeCmd = &cobra.Command{
	Use:   "like <postId>",
	Short: "Like or unlike a post",
	Long:  "Toggle your like on a post. Running it twice undoes it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLike,
}

// Flags
var feedPages int

func init() {
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(likeCmd)

	feedCmd.Flags().IntVar(&feedPages, "pages", 1, "Number of pages to fetch")
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func newFeedStore() *feed.Store {
	return feed.NewStore(globalClient, globalSession, globalConfig.PageSize())
}

func newEngagementStore() *engagement.Store {
	return engagement.NewStore(globalClient, globalManager, globalSession)
}

func printPost(w io.Writer, post models.Post, like engagement.LikeState, comments int) {
	mine := ""
	if like.Liked {
		mine = " (liked)"
	}
	fmt.Fprintf(w, "--- #%d @%s [%s] ♥ %d%s  💬 %d\n%s\n\n",
		post.ID, post.User.Name, post.CreatedAt.Format("2006-01-02 15:04:05"),
		like.Count, mine, comments, post.Content)
}

func runFeed(cmd *cobra.Command, args []string) error {
	store := newFeedStore()
	likes := newEngagementStore()

	for i := 0; i < feedPages && store.HasMore(); i++ {
		if _, err := store.FetchNext(cmd.Context()); err != nil {
			return fmt.Errorf("failed to fetch feed: %w", err)
		}
	}

	posts := store.Posts()
	if len(posts) == 0 {
		fmt.Println("No posts found.")
		return nil
	}
	for _, post := range posts {
		likes.InitializeFromPost(post)
		state, _ := likes.State(post.ID)
		printPost(cmd.OutOrStdout(), post, state, store.CommentCount(post.ID))
	}
	if !store.HasMore() {
		fmt.Println("(end of feed)")
	}
	return nil
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := globalManager.Acquire(ctx); err != nil {
		fmt.Printf("warning: realtime unavailable: %v\n", err)
	}

	composer := feed.NewComposer(globalClient, globalManager, globalSession, nil, viewerProfile(ctx))
	post, err := composer.Post(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	fmt.Printf("Post created (ID: %d)\n", post.ID)
	return nil
}

func runLike(cmd *cobra.Command, args []string) error {
	postID, err := parseID(args[0], "post id")
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	post, err := globalClient.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	likes := newEngagementStore()
	likes.InitializeFromPost(*post)

	// broadcasting is best effort; the like itself goes through REST
	if err := globalManager.Acquire(ctx); err != nil {
		fmt.Printf("warning: realtime unavailable: %v\n", err)
	}

	state, err := likes.ToggleLocal(ctx, postID)
	if err != nil {
		return err
	}
	if state.Liked {
		fmt.Printf("Liked post %d (%d likes)\n", postID, state.Count)
	} else {
		fmt.Printf("Unliked post %d (%d likes)\n", postID, state.Count)
	}
	return nil
}
