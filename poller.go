package ledgerfeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Poller periodically checks the event log for content newer than the
// cached feed head. It only publishes a count; the feed is left untouched
// until the caller asks the store to absorb it.
type Poller struct {
	logger    *slog.Logger
	discovery *EventDiscovery
	store     *Store
	interval  time.Duration
	limit     int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type PollerArgs struct {
	Logger    *slog.Logger
	Discovery *EventDiscovery
	Store     *Store
	Config    Config
}

func NewPoller(args PollerArgs) *Poller {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	interval := args.Config.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	limit := args.Config.PollLimit
	if limit <= 0 {
		limit = 5
	}

	return &Poller{
		logger:    args.Logger,
		discovery: args.Discovery,
		store:     args.Store,
		interval:  interval,
		limit:     limit,
	}
}

// Start launches the polling loop. It runs until Stop is called or ctx is
// cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel

	p.logger.Info("starting poller", "interval", p.interval, "limit", p.limit)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx)
	}()

	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("poller stopped")
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one check and returns the published count, or -1 when the event
// log could not be read.
func (p *Poller) poll(ctx context.Context) int {
	events, err := p.discovery.RecentEvents(ctx, p.limit)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("error polling events", "error", err)
		}
		return -1
	}

	if len(events) == 0 {
		return p.store.NewContentCount()
	}

	head := p.store.FeedHead()
	if events[0].Timestamp() <= head {
		p.store.setNewContentCount(0)
		return 0
	}

	n := 0
	for _, evt := range events {
		if evt.Timestamp() > head {
			n++
		}
	}

	if ctx.Err() != nil {
		return -1
	}

	p.logger.Debug("new content available", "count", n, "head", head)
	p.store.setNewContentCount(n)
	return n
}
