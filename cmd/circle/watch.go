// ABOUTME: CLI command that streams live activity.
// ABOUTME: Binds the feed, like, and follow stores to the realtime channel until interrupted.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/engagement"
	"github.com/2389-research/circle/internal/feed"
	"github.com/2389-research/circle/internal/follow"
	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/realtime"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live posts, likes, comments, and follows",
	Long:  "Load the first page of the feed, then print live activity until interrupted.",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// activityPrinter writes live events as they arrive. It reads the stores, so
// it is bound after them and sees their updated state.
type activityPrinter struct {
	out    io.Writer
	viewer int
	feed   *feed.Store
	likes  *engagement.Store
}

func (p *activityPrinter) bind(sub realtime.Subscriber) func() {
	subs := []*realtime.Subscription{
		sub.Subscribe(realtime.EventNewPost, p.newPost),
		sub.Subscribe(realtime.EventNewLike, p.newLike),
		sub.Subscribe(realtime.EventComment, p.comment),
	}
	unbindFollows := follow.Notifier(func(n models.FollowNotification) {
		fmt.Fprintf(p.out, "* %s\n", n.Message)
	}).Bind(sub)

	return func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
		unbindFollows()
	}
}

func (p *activityPrinter) newPost(ev realtime.Event) {
	post, err := realtime.Decode[models.Post](ev)
	if err != nil {
		return
	}
	if post.AuthorID() == p.viewer {
		fmt.Fprintf(p.out, "* you posted #%d\n", post.ID)
	} else {
		fmt.Fprintf(p.out, "* new post from %s\n", post.User.Name)
	}
	p.likes.InitializeFromPost(post)
	state, _ := p.likes.State(post.ID)
	printPost(p.out, post, state, p.feed.CommentCount(post.ID))
}

func (p *activityPrinter) newLike(ev realtime.Event) {
	like, err := realtime.Decode[models.LikeEvent](ev)
	if err != nil {
		return
	}
	state, _ := p.likes.State(like.PostID)
	fmt.Fprintf(p.out, "* user %d %sd post %d (%d likes)\n", like.UserID, like.Action, like.PostID, state.Count)
}

func (p *activityPrinter) comment(ev realtime.Event) {
	ce, err := realtime.Decode[realtime.CommentEvent](ev)
	if err != nil || ce.Kind != realtime.CommentKindCreated {
		return
	}
	fmt.Fprintf(p.out, "* new comment on post %d (%d total)\n", ce.Comment.PostID, p.feed.CommentCount(ce.Comment.PostID))
	printComment(p.out, ce.Comment)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store := newFeedStore()
	likes := newEngagementStore()

	if _, err := store.FetchNext(ctx); err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	for _, post := range store.Posts() {
		likes.InitializeFromPost(post)
	}

	if err := globalManager.Acquire(ctx); err != nil {
		return err
	}
	defer globalManager.Release()

	defer store.Bind(globalManager)()
	defer likes.Bind(globalManager)()
	printer := &activityPrinter{out: cmd.OutOrStdout(), viewer: globalSession.UserID(), feed: store, likes: likes}
	defer printer.bind(globalManager)()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d posts. Press Ctrl+C to stop.\n", store.Len())
	select {
	case <-ctx.Done():
	case <-globalSession.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Session ended.")
	}
	return nil
}
