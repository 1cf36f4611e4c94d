// Package ledgerfeed keeps a session's view of a ledger-backed social graph
// in sync: it discovers and decodes posts, profiles, comments and follows,
// tracks writes to finality, polls for new content and derives leaderboards
// and threads from what it has cached.
package ledgerfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/haileyok/ledgerfeed/ledger"
	"github.com/haileyok/ledgerfeed/models"
	"github.com/haileyok/ledgerfeed/pinning"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Session struct {
	logger      *slog.Logger
	cfg         Config
	metricsAddr string
	pinner      Pinner

	fetcher    *ObjectFetcher
	discovery  *EventDiscovery
	profiles   *ProfileCache
	store      *Store
	poller     *Poller
	submitter  *Submitter
	aggregator *Aggregator

	metricsServer *http.Server

	mu      sync.Mutex
	started bool
	closed  bool
}

type Args struct {
	Logger *slog.Logger
	Config Config
	// Ledger defaults to a JSON-RPC client for Config.RPCURL.
	Ledger Ledger
	// Wallet is optional; without it the session is read only.
	Wallet Wallet
	Pinner Pinner
	// Viewer overrides the wallet address as the session's identity.
	Viewer       string
	MetricsAddr  string
	OnTransition func(Submission)
}

func New(ctx context.Context, args *Args) (*Session, error) {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	if err := args.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l := args.Ledger
	if l == nil {
		c, err := ledger.NewClient(ledger.Config{
			RPCURL:            args.Config.RPCURL,
			RequestsPerSecond: args.Config.RequestsPerSecond,
			Logger:            args.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ledger client: %w", err)
		}
		l = c
	}

	viewer := args.Viewer
	if viewer == "" && args.Wallet != nil {
		viewer = args.Wallet.Address()
	}

	s := &Session{
		logger:      args.Logger.With("network", args.Config.Network, "viewer", viewer),
		cfg:         args.Config,
		metricsAddr: args.MetricsAddr,
		pinner:      args.Pinner,
	}

	s.fetcher = NewObjectFetcher(ObjectFetcherArgs{
		Logger: s.logger,
		Ledger: l,
		Config: s.cfg,
	})

	s.discovery = NewEventDiscovery(EventDiscoveryArgs{
		Logger: s.logger,
		Ledger: l,
		Config: s.cfg,
	})

	s.profiles = NewProfileCache(s.logger, s.fetcher)

	s.store = NewStore(StoreArgs{
		Logger:    s.logger,
		Config:    s.cfg,
		Viewer:    viewer,
		Discovery: s.discovery,
		Fetcher:   s.fetcher,
		Profiles:  s.profiles,
	})

	s.poller = NewPoller(PollerArgs{
		Logger:    s.logger,
		Discovery: s.discovery,
		Store:     s.store,
		Config:    s.cfg,
	})

	s.submitter = NewSubmitter(SubmitterArgs{
		Logger:       s.logger,
		Config:       s.cfg,
		Ledger:       l,
		Wallet:       args.Wallet,
		Store:        s.store,
		OnTransition: args.OnTransition,
	})

	s.aggregator = NewAggregator(AggregatorArgs{
		Logger:   s.logger,
		Config:   s.cfg,
		Store:    s.store,
		Fetcher:  s.fetcher,
		Profiles: s.profiles,
	})

	return s, nil
}

// Start loads the profile and feed, then starts polling and, if an address
// was given, the metrics server.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.started {
		return fmt.Errorf("session already started")
	}

	if s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsServer = &http.Server{Addr: s.metricsAddr, Handler: mux}

		go func(srv *http.Server) {
			s.logger.Info("starting metrics server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server failed", "error", err)
			}
		}(s.metricsServer)
	}

	s.store.Refresh(ctx)
	s.logger.Info("initial sync complete", "posts", len(s.store.Feed()), "has_profile", s.store.Profile() != nil)

	if err := s.poller.Start(ctx); err != nil {
		return err
	}

	s.started = true
	return nil
}

// Close stops the poller and tears down the caches. Results of fetches still
// in flight are discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.poller.Stop()
	s.store.Close()
	s.profiles.Close()

	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to stop metrics server", "error", err)
		}
	}

	s.logger.Info("session closed")
	return nil
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) Store() *Store {
	return s.store
}

func (s *Session) Poller() *Poller {
	return s.poller
}

func (s *Session) Submitter() *Submitter {
	return s.submitter
}

func (s *Session) Aggregator() *Aggregator {
	return s.aggregator
}

func (s *Session) Profiles() *ProfileCache {
	return s.profiles
}

func (s *Session) Fetcher() *ObjectFetcher {
	return s.fetcher
}

func (s *Session) Discovery() *EventDiscovery {
	return s.discovery
}

// Publish creates a post from the viewer's profile. When media is non-nil it
// is pinned first and referenced from the structured content.
func (s *Session) Publish(ctx context.Context, text string, media io.Reader, name string) (Submission, error) {
	profile := s.store.Profile()
	if profile == nil {
		return s.submitter.Status(), ErrNoProfile
	}

	content := models.PostContent{Text: text}
	if media != nil {
		if s.pinner == nil {
			return s.submitter.Status(), fmt.Errorf("no pinning service configured")
		}

		id, err := s.pinner.Pin(ctx, name, media)
		if err != nil {
			return s.submitter.Status(), fmt.Errorf("failed to pin media: %w", err)
		}

		uri := pinning.URI(id)
		content.Image = &uri
		s.logger.Info("pinned media", "name", name, "cid", id)
	}

	encoded, err := content.Encode()
	if err != nil {
		return s.submitter.Status(), err
	}

	return s.submitter.CreatePost(ctx, profile.ID, encoded)
}
