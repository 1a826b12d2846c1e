// ABOUTME: CLI commands for reading and writing comments.
// ABOUTME: Provides comments and comment, backed by a comment stream.
package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/comments"
	"github.com/2389-research/circle/internal/models"
)

var commentsCmd = &cobra.Command{
	Use:   "comments <postId>",
	Short: "Show a post and its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runComments,
}

var commentCmd = &cobra.Command{
	Use:   "comment <postId> <text>",
	Short: "Comment on a post",
	Long:  "Add a comment to a post. Everything after the post id is the comment text.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runComment,
}

func init() {
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(commentCmd)
}

// viewerProfile returns the author summary for the logged in user, falling
// back to the bare id when the profile cannot be fetched.
func viewerProfile(ctx context.Context) models.Author {
	id := globalSession.UserID()
	user, err := globalClient.GetUser(ctx, id)
	if err != nil {
		glog.Warningf("failed to load profile for user %d: %v", id, err)
		return models.Author{ID: id}
	}
	return models.Author{ID: user.ID, Name: user.Name, Avatar: user.Avatar}
}

func openStream(ctx context.Context, arg string) (*comments.Stream, error) {
	postID, err := parseID(arg, "post id")
	if err != nil {
		return nil, err
	}
	stream := comments.NewStream(globalClient, globalManager, globalSession, viewerProfile(ctx), nil)
	if err := stream.Load(ctx, postID); err != nil {
		return nil, fmt.Errorf("failed to load post %d: %w", postID, err)
	}
	return stream, nil
}

func printComment(w io.Writer, c models.Comment) {
	c = c.WithAuthor()
	fmt.Fprintf(w, "  @%s [%s]\n  %s\n\n", c.User.Name, c.CreatedAt.Format("2006-01-02 15:04:05"), c.Content)
}

func runComments(cmd *cobra.Command, args []string) error {
	stream, err := openStream(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if post := stream.Post(); post != nil {
		fmt.Printf("#%d @%s\n%s\n\n", post.ID, post.User.Name, post.Content)
	}
	list := stream.Comments()
	if len(list) == 0 {
		fmt.Println("No comments yet.")
		return nil
	}
	for _, c := range list {
		printComment(cmd.OutOrStdout(), c)
	}
	return nil
}

func runComment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stream, err := openStream(ctx, args[0])
	if err != nil {
		return err
	}

	if err := globalManager.Acquire(ctx); err != nil {
		fmt.Printf("warning: realtime unavailable: %v\n", err)
	}

	stream.SetInput(strings.Join(args[1:], " "))
	if err := stream.Submit(ctx); err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	list := stream.Comments()
	added := list[len(list)-1]
	fmt.Printf("Comment added (ID: %d) on post %d\n", added.ID, added.PostID)
	return nil
}
