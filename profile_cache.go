package ledgerfeed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/haileyok/ledgerfeed/models"
)

// ProfileCache memoizes Address -> UserProfile for the session. Entries are
// added on the first successful lookup and never evicted. Addresses without
// a profile are not remembered, so a later lookup tries again.
type ProfileCache struct {
	logger  *slog.Logger
	fetcher *ObjectFetcher

	mu       sync.RWMutex
	profiles map[string]models.UserProfile
	closed   bool
}

func NewProfileCache(logger *slog.Logger, fetcher *ObjectFetcher) *ProfileCache {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileCache{
		logger:   logger,
		fetcher:  fetcher,
		profiles: make(map[string]models.UserProfile),
	}
}

func (c *ProfileCache) Get(addr string) (models.UserProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[addr]
	return p, ok
}

// Put stores a profile under its owner. Writes after Close are discarded.
func (c *ProfileCache) Put(p models.UserProfile) {
	if p.Owner == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.profiles[p.Owner] = p
	profileCacheSize.Set(float64(len(c.profiles)))
}

// Resolve returns the cached profile for addr, fetching it on a miss.
func (c *ProfileCache) Resolve(ctx context.Context, addr string) (models.UserProfile, bool) {
	if p, ok := c.Get(addr); ok {
		return p, true
	}

	p := c.fetcher.ProfileByOwner(ctx, addr)
	if p == nil {
		return models.UserProfile{}, false
	}

	c.putFor(addr, *p)
	return *p, true
}

// ResolveMany resolves all addrs, fetching the missing ones concurrently,
// and returns the profiles that exist keyed by address.
func (c *ProfileCache) ResolveMany(ctx context.Context, addrs []string) map[string]models.UserProfile {
	out := make(map[string]models.UserProfile, len(addrs))

	var missing []string
	seen := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok || addr == "" {
			continue
		}
		seen[addr] = struct{}{}

		if p, ok := c.Get(addr); ok {
			out[addr] = p
			continue
		}
		missing = append(missing, addr)
	}

	if len(missing) > 0 {
		c.logger.Debug("resolving profiles", "missing", len(missing))

		var wg sync.WaitGroup
		for _, addr := range missing {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if p := c.fetcher.ProfileByOwner(ctx, addr); p != nil {
					c.putFor(addr, *p)
				}
			}()
		}
		wg.Wait()

		for _, addr := range missing {
			if p, ok := c.Get(addr); ok {
				out[addr] = p
			}
		}
	}

	return out
}

// Known returns every cached profile.
func (c *ProfileCache) Known() []models.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.UserProfile, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p)
	}
	return out
}

func (c *ProfileCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.profiles = make(map[string]models.UserProfile)
}

// putFor keys by the address that was looked up, which is the profile's
// owning address.
func (c *ProfileCache) putFor(addr string, p models.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.profiles[addr] = p
	profileCacheSize.Set(float64(len(c.profiles)))
}
