// ABOUTME: Debounced user search.
// ABOUTME: Rapid queries are coalesced so only the last one in the window reaches the API.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/2389-research/circle/internal/models"
)

// UserSearcher runs one search. *api.Client satisfies it.
type UserSearcher interface {
	SearchUsers(ctx context.Context, name string) ([]models.User, error)
}

// ResultFunc receives the results of a query.
type ResultFunc func(query string, users []models.User)

// Searcher debounces queries and delivers results to a callback.
type Searcher struct {
	api      UserSearcher
	debounce time.Duration
	deliver  ResultFunc
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	text    string
	pending bool
	closed  bool
	wg      sync.WaitGroup
}

// NewSearcher creates a searcher that waits debounce after the last Query.
func NewSearcher(client UserSearcher, debounce time.Duration, deliver ResultFunc) *Searcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Searcher{
		api:      client,
		debounce: debounce,
		deliver:  deliver,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Search runs a query immediately. Failures are logged and yield no users.
func Search(ctx context.Context, client UserSearcher, query string) []models.User {
	users, err := client.SearchUsers(ctx, query)
	if err != nil {
		glog.Errorf("user search for %q failed: %v", query, err)
		return []models.User{}
	}
	return users
}

// Query schedules a search for text, replacing any pending one.
func (s *Searcher) Query(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.text = text
	s.pending = true
	s.timer = time.AfterFunc(s.debounce, func() { s.run(seq, text) })
}

// Flush runs the pending query now instead of waiting out the debounce, then
// waits for any search in progress to deliver.
func (s *Searcher) Flush() {
	s.mu.Lock()
	if s.closed || !s.pending {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.timer.Stop()
	seq, text := s.seq, s.text
	s.mu.Unlock()

	s.run(seq, text)
	s.wg.Wait()
}

// run executes the query scheduled as seq unless it was superseded or already
// started by Flush.
func (s *Searcher) run(seq uint64, text string) {
	s.mu.Lock()
	if s.closed || seq != s.seq || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	users := Search(s.ctx, s.api, text)

	s.mu.Lock()
	stale := s.closed || seq != s.seq
	s.mu.Unlock()
	if stale {
		glog.V(2).Infof("dropping results for superseded query %q", text)
		return
	}
	s.deliver(text, users)
}

// Close cancels any pending or running search and waits for it to finish.
func (s *Searcher) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
