package ledgerfeed

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/haileyok/ledgerfeed/models"
)

// Store holds the session's own profile and the global feed. Only the
// synchronization layer writes to it; readers get copies.
type Store struct {
	logger    *slog.Logger
	cfg       Config
	viewer    string
	discovery *EventDiscovery
	fetcher   *ObjectFetcher
	profiles  *ProfileCache

	mu         sync.RWMutex
	profile    *models.UserProfile
	feed       []models.Post
	newContent int
	closed     bool
}

type StoreArgs struct {
	Logger    *slog.Logger
	Config    Config
	Viewer    string
	Discovery *EventDiscovery
	Fetcher   *ObjectFetcher
	// Profiles, when set, is seeded with every profile the store loads.
	Profiles *ProfileCache
}

func NewStore(args StoreArgs) *Store {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &Store{
		logger:    args.Logger,
		cfg:       args.Config,
		viewer:    args.Viewer,
		discovery: args.Discovery,
		fetcher:   args.Fetcher,
		profiles:  args.Profiles,
	}
}

func (s *Store) Viewer() string {
	return s.viewer
}

// Profile returns the viewer's profile, or nil if none was found.
func (s *Store) Profile() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Feed returns the cached feed, newest first.
func (s *Store) Feed() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feed)
}

// FeedHead returns created_at of the newest cached post, 0 for an empty feed.
func (s *Store) FeedHead() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.feed) == 0 {
		return 0
	}
	return s.feed[0].CreatedAt
}

// NewContentCount is the number of events newer than the feed head seen by
// the last poll.
func (s *Store) NewContentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newContent
}

func (s *Store) setNewContentCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.newContent = n
	newContentGauge.Set(float64(n))
}

// Refresh refetches the profile and the feed concurrently.
func (s *Store) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.RefreshProfile(ctx)
	}()
	go func() {
		defer wg.Done()
		s.RefreshFeed(ctx)
	}()
	wg.Wait()
}

// RefreshProfile reloads the viewer's profile. A failed lookup clears it.
func (s *Store) RefreshProfile(ctx context.Context) {
	if s.viewer == "" {
		s.setProfile(nil)
		return
	}

	p := s.fetcher.ProfileByOwner(ctx, s.viewer)
	s.setProfile(p)
}

func (s *Store) setProfile(p *models.UserProfile) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding profile fetched after close")
		return
	}
	s.profile = p
	s.mu.Unlock()

	if p != nil && s.profiles != nil {
		s.profiles.Put(*p)
	}
}

// RefreshFeed rediscovers recent posts and replaces the feed. If the ledger
// could not be reached the previous feed is kept.
func (s *Store) RefreshFeed(ctx context.Context) {
	ids, err := s.discovery.discover(ctx, s.cfg.FeedLimit)
	if err != nil {
		s.logger.Error("error discovering posts, keeping cached feed", "error", err)
		return
	}

	var posts []models.Post
	if len(ids) > 0 {
		posts, err = fetchByIDs(ctx, s.fetcher, ids, models.PostStruct, models.DecodePost)
		if err != nil {
			if len(posts) == 0 {
				s.logger.Error("error fetching posts, keeping cached feed", "error", err)
				return
			}
			s.logger.Warn("some post batches failed", "fetched", len(posts), "error", err)
		}
	}

	// multi-get batches complete in any order
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt > posts[j].CreatedAt
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("discarding feed fetched after close")
		return
	}
	s.feed = posts
	feedSize.Set(float64(len(posts)))
}

// AbsorbNewContent folds newly available posts into the feed and resets the
// new content counter.
func (s *Store) AbsorbNewContent(ctx context.Context) {
	s.RefreshFeed(ctx)
	s.setNewContentCount(0)
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
