package ledgerfeed

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/haileyok/ledgerfeed/models"
)

const defaultSearchLimit = 5

// Aggregator derives read models from the store's caches. It never writes to
// the store; profiles it has to look up go through the shared cache.
type Aggregator struct {
	logger   *slog.Logger
	cfg      Config
	store    *Store
	fetcher  *ObjectFetcher
	profiles *ProfileCache
}

type AggregatorArgs struct {
	Logger   *slog.Logger
	Config   Config
	Store    *Store
	Fetcher  *ObjectFetcher
	Profiles *ProfileCache
}

func NewAggregator(args AggregatorArgs) *Aggregator {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &Aggregator{
		logger:   args.Logger,
		cfg:      args.Config,
		store:    args.Store,
		fetcher:  args.Fetcher,
		profiles: args.Profiles,
	}
}

type LeaderboardEntry struct {
	Profile    models.UserProfile `json:"profile"`
	TotalLikes uint64             `json:"total_likes"`
}

// Leaderboard ranks the authors of the cached feed by the likes their posts
// received.
func (a *Aggregator) Leaderboard(ctx context.Context) []LeaderboardEntry {
	feed := a.store.Feed()
	profiles := a.profiles.ResolveMany(ctx, authorsOf(feed))
	return RankAuthors(feed, profiles)
}

// RankAuthors groups posts by author, sums like_count and orders the authors
// by total likes, then follower_count, then post_count, all descending.
// Authors missing from profiles are left out. Full ties keep the order in
// which the authors first appear in posts.
func RankAuthors(posts []models.Post, profiles map[string]models.UserProfile) []LeaderboardEntry {
	totals := make(map[string]uint64)
	var order []string
	for _, p := range posts {
		if _, ok := totals[p.Author]; !ok {
			order = append(order, p.Author)
		}
		totals[p.Author] += p.LikeCount
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, author := range order {
		profile, ok := profiles[author]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{Profile: profile, TotalLikes: totals[author]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return rankLess(entries[i], entries[j])
	})

	return entries
}

func rankLess(a, b LeaderboardEntry) bool {
	if a.TotalLikes != b.TotalLikes {
		return a.TotalLikes > b.TotalLikes
	}
	if a.Profile.FollowerCount != b.Profile.FollowerCount {
		return a.Profile.FollowerCount > b.Profile.FollowerCount
	}
	return a.Profile.PostCount > b.Profile.PostCount
}

type ThreadEntry struct {
	Comment models.Comment `json:"comment"`
	// Author is nil when the commenter has no profile.
	Author *models.UserProfile `json:"author,omitempty"`
}

// CommentThread returns the comments on postID oldest first.
//
// Comments are found by scanning the objects owned by the session viewer, so
// only the viewer's own comments are visible. The ledger offers no index from
// post to comments.
func (a *Aggregator) CommentThread(ctx context.Context, postID string) []ThreadEntry {
	if postID == "" {
		return []ThreadEntry{}
	}

	var comments []models.Comment
	for _, c := range a.fetcher.OwnedComments(ctx, a.store.Viewer()) {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt < comments[j].CreatedAt
	})

	authors := make([]string, 0, len(comments))
	for _, c := range comments {
		authors = append(authors, c.Author)
	}
	profiles := a.profiles.ResolveMany(ctx, authors)

	out := make([]ThreadEntry, 0, len(comments))
	for _, c := range comments {
		entry := ThreadEntry{Comment: c}
		if p, ok := profiles[c.Author]; ok {
			entry.Author = &p
		}
		out = append(out, entry)
	}

	return out
}

// FollowStatus reports whether viewer owns a follow edge pointing at target.
func (a *Aggregator) FollowStatus(ctx context.Context, viewer, target string) bool {
	if viewer == "" || target == "" {
		return false
	}

	return slices.ContainsFunc(a.fetcher.OwnedFollows(ctx, viewer), func(e models.FollowEdge) bool {
		return e.Following == target
	})
}

// AuthorPosts returns the cached feed posts written by author, newest first.
func (a *Aggregator) AuthorPosts(author string) []models.Post {
	var out []models.Post
	for _, p := range a.store.Feed() {
		if p.Author == author {
			out = append(out, p)
		}
	}
	return out
}

// SearchProfiles matches query against the profiles of feed authors. A
// profile matches when its username contains query ignoring case, or its
// address contains query. At most limit results are returned, 5 when limit
// is not positive.
func (a *Aggregator) SearchProfiles(ctx context.Context, query string, limit int) []models.UserProfile {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserProfile{}
	}
	if limit <= 0 {
		limit = a.cfg.SearchLimit
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	authors := authorsOf(a.store.Feed())
	profiles := a.profiles.ResolveMany(ctx, authors)
	lower := strings.ToLower(query)

	out := []models.UserProfile{}
	for _, addr := range authors {
		p, ok := profiles[addr]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(p.Username), lower) || strings.Contains(addr, query) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}

	return out
}

// authorsOf lists the distinct authors of posts in first-appearance order.
func authorsOf(posts []models.Post) []string {
	seen := make(map[string]struct{}, len(posts))
	var out []string
	for _, p := range posts {
		if _, ok := seen[p.Author]; ok || p.Author == "" {
			continue
		}
		seen[p.Author] = struct{}{}
		out = append(out, p.Author)
	}
	return out
}
