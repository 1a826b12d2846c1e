// ABOUTME: CLI command for finding users by name.
// ABOUTME: Runs one query from arguments, or a debounced interactive search over stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/circle/internal/models"
	"github.com/2389-research/circle/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [name]",
	Short: "Find users by name",
	Long: `Find users by name. With no argument, each line typed on stdin becomes a
query; quick successive lines are coalesced so only the last one is searched.`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func printUsers(w io.Writer, query string, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintf(w, "No users match %q.\n", query)
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "#%d %s\n", u.ID, u.Name)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) > 0 {
		query := strings.Join(args, " ")
		printUsers(out, query, search.Search(cmd.Context(), globalClient, query))
		return nil
	}
	return searchLines(cmd.Context(), globalClient, globalConfig.SearchDebounce(), cmd.InOrStdin(), out)
}

// searchLines feeds each input line to a debounced searcher. At end of input
// the last pending query runs without waiting out the debounce.
func searchLines(ctx context.Context, client search.UserSearcher, debounce time.Duration, in io.Reader, out io.Writer) error {
	searcher := search.NewSearcher(client, debounce, func(query string, users []models.User) {
		printUsers(out, query, users)
	})
	defer searcher.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				searcher.Flush()
				return nil
			}
			searcher.Query(strings.TrimSpace(line))
		}
	}
}
