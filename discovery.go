package ledgerfeed

import (
	"context"
	"log/slog"
	"sort"

	"github.com/haileyok/ledgerfeed/ledger"
	"github.com/tidwall/gjson"
)

// EventDiscovery finds object ids that cannot be listed directly by reading
// the module's event log.
type EventDiscovery struct {
	logger *slog.Logger
	ledger Ledger
	cfg    Config
}

type EventDiscoveryArgs struct {
	Logger *slog.Logger
	Ledger Ledger
	Config Config
}

func NewEventDiscovery(args EventDiscoveryArgs) *EventDiscovery {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &EventDiscovery{
		logger: args.Logger,
		ledger: args.Ledger,
		cfg:    args.Config,
	}
}

// Discover returns the ids referenced by the most recent limit events,
// newest first and without duplicates. It never fails: transport errors are
// logged and yield no ids.
func (d *EventDiscovery) Discover(ctx context.Context, limit int) []string {
	ids, err := d.discover(ctx, limit)
	if err != nil {
		d.logger.Error("error discovering objects", "limit", limit, "error", err)
		return []string{}
	}
	return ids
}

func (d *EventDiscovery) discover(ctx context.Context, limit int) ([]string, error) {
	events, err := d.RecentEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	return d.extractIDs(events), nil
}

// RecentEvents returns up to limit module events ordered newest first.
func (d *EventDiscovery) RecentEvents(ctx context.Context, limit int) ([]ledger.Event, error) {
	events, err := d.ledger.QueryEvents(ctx, d.cfg.eventQuery(), limit, true)
	if err != nil {
		return nil, err
	}

	// the node already orders by recency; this keeps equal timestamps in
	// log order and guards against a transport that does not
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp() > events[j].Timestamp()
	})

	return events, nil
}

func (d *EventDiscovery) extractIDs(events []ledger.Event) []string {
	field := d.cfg.EventIDField
	if field == "" {
		field = "id"
	}

	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, evt := range events {
		if len(evt.ParsedJSON) == 0 {
			continue
		}

		id := gjson.GetBytes(evt.ParsedJSON, field)
		if id.Type != gjson.String || id.Str == "" {
			continue
		}

		if _, ok := seen[id.Str]; ok {
			continue
		}
		seen[id.Str] = struct{}{}
		ids = append(ids, id.Str)
	}

	return ids
}
