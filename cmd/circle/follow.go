// ABOUTME: CLI commands for the follow graph.
// ABOUTME: Provides follow, unfollow, and profile.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/follow"
)

var followCmd = &cobra.Command{
	Use:   "follow <userId>",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollow,
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <userId>",
	Short: "Stop following a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnfollow,
}

var profileCmd = &cobra.Command{
	Use:   "profile [userId]",
	Short: "Show a user's profile",
	Long:  "Show a user's profile, follow counts, and posts. Defaults to your own.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfile,
}

func init() {
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(unfollowCmd)
	rootCmd.AddCommand(profileCmd)
}

func newToggle(cmd *cobra.Command, arg string) (*follow.Toggle, error) {
	target, err := parseID(arg, "user id")
	if err != nil {
		return nil, err
	}
	if err := globalManager.Acquire(cmd.Context()); err != nil {
		fmt.Printf("warning: realtime unavailable: %v\n", err)
	}
	return follow.NewToggle(globalClient, globalManager, globalSession, target), nil
}

func runFollow(cmd *cobra.Command, args []string) error {
	toggle, err := newToggle(cmd, args[0])
	if err != nil {
		return err
	}
	following, err := toggle.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to check follow status: %w", err)
	}
	if following {
		fmt.Printf("Already following user %d\n", toggle.Target())
		return nil
	}
	if err := toggle.Follow(cmd.Context()); err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	fmt.Printf("Following user %d\n", toggle.Target())
	return nil
}

func runUnfollow(cmd *cobra.Command, args []string) error {
	toggle, err := newToggle(cmd, args[0])
	if err != nil {
		return err
	}
	if err := toggle.Unfollow(cmd.Context()); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	fmt.Printf("Unfollowed user %d\n", toggle.Target())
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	userID := globalSession.UserID()
	if len(args) == 1 {
		id, err := parseID(args[0], "user id")
		if err != nil {
			return err
		}
		userID = id
	}

	p, err := follow.LoadProfile(cmd.Context(), globalClient, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	fmt.Printf("%s (#%d)\n", p.User.Name, p.User.ID)
	fmt.Printf("%d followers, %d following, %d posts\n\n", p.Counts.Followers, p.Counts.Following, len(p.Posts))
	for _, post := range p.Posts {
		fmt.Printf("--- #%d [%s]\n%s\n\n", post.ID, post.CreatedAt.Format("2006-01-02 15:04:05"), post.Content)
	}
	return nil
}
