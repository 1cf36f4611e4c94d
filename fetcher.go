package ledgerfeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/haileyok/ledgerfeed/ledger"
	"github.com/haileyok/ledgerfeed/models"
)

type ObjectFetcher struct {
	logger *slog.Logger
	ledger Ledger
	cfg    Config
}

type ObjectFetcherArgs struct {
	Logger *slog.Logger
	Ledger Ledger
	Config Config
}

func NewObjectFetcher(args ObjectFetcherArgs) *ObjectFetcher {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &ObjectFetcher{
		logger: args.Logger,
		ledger: args.Ledger,
		cfg:    args.Config,
	}
}

// Decoder turns one raw ledger object into a typed entity or a
// *models.DecodeError.
type Decoder[T any] func(raw []byte) (*T, error)

// FetchByIDs reads the given objects in concurrent batches and decodes each
// one. Records that fail to decode are dropped. Transport failures are
// logged and the batches that did succeed are returned.
func FetchByIDs[T any](ctx context.Context, f *ObjectFetcher, ids []string, structName string, decode Decoder[T]) []T {
	items, err := fetchByIDs(ctx, f, ids, structName, decode)
	if err != nil {
		f.logger.Error("error fetching objects", "type", structName, "ids", len(ids), "error", err)
	}
	return items
}

// FetchOwned reads every object of structName owned by owner. On transport
// failure it logs and returns nothing.
func FetchOwned[T any](ctx context.Context, f *ObjectFetcher, owner, structName string, decode Decoder[T]) []T {
	items, err := fetchOwned(ctx, f, owner, structName, decode)
	if err != nil {
		f.logger.Error("error fetching owned objects", "owner", owner, "type", structName, "error", err)
		return nil
	}
	return items
}

func fetchByIDs[T any](ctx context.Context, f *ObjectFetcher, ids []string, structName string, decode Decoder[T]) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	size := f.cfg.FetchBatchSize
	if size <= 0 || size > ledger.MaxMultiGetObjects {
		size = ledger.MaxMultiGetObjects
	}

	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}

	results := make([][]T, len(batches))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			objs, err := f.ledger.MultiGetObjects(ctx, batch)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = decodeObjects(f.logger, objs, structName, decode)
		}()
	}
	wg.Wait()

	var items []T
	for _, r := range results {
		items = append(items, r...)
	}

	return items, errors.Join(errs...)
}

func fetchOwned[T any](ctx context.Context, f *ObjectFetcher, owner, structName string, decode Decoder[T]) ([]T, error) {
	if owner == "" {
		return nil, nil
	}

	objs, err := f.ledger.GetOwnedObjects(ctx, owner, f.cfg.StructType(structName))
	if err != nil {
		return nil, err
	}

	return decodeObjects(f.logger, objs, structName, decode), nil
}

func decodeObjects[T any](logger *slog.Logger, objs []ledger.ObjectResponse, structName string, decode Decoder[T]) []T {
	items := make([]T, 0, len(objs))
	for _, obj := range objs {
		if len(obj.Data) == 0 {
			logger.Debug("object missing from response", "type", structName, "error", string(obj.Error))
			decodeDropped.WithLabelValues(structName).Inc()
			continue
		}

		item, err := decode(obj.Data)
		if err != nil {
			logger.Debug("dropping undecodable record", "type", structName, "error", err)
			decodeDropped.WithLabelValues(structName).Inc()
			continue
		}

		items = append(items, *item)
	}
	return items
}

func (f *ObjectFetcher) Posts(ctx context.Context, ids []string) []models.Post {
	return FetchByIDs(ctx, f, ids, models.PostStruct, models.DecodePost)
}

func (f *ObjectFetcher) OwnedComments(ctx context.Context, owner string) []models.Comment {
	return FetchOwned(ctx, f, owner, models.CommentStruct, models.DecodeComment)
}

func (f *ObjectFetcher) OwnedFollows(ctx context.Context, owner string) []models.FollowEdge {
	return FetchOwned(ctx, f, owner, models.FollowStruct, models.DecodeFollowEdge)
}

// ProfileByOwner returns the first profile owned by owner, or nil. One
// profile per address is a convention the ledger does not enforce.
func (f *ObjectFetcher) ProfileByOwner(ctx context.Context, owner string) *models.UserProfile {
	p, err := f.profileByOwner(ctx, owner)
	if err != nil {
		f.logger.Error("error fetching profile", "owner", owner, "error", err)
		return nil
	}
	return p
}

func (f *ObjectFetcher) profileByOwner(ctx context.Context, owner string) (*models.UserProfile, error) {
	profiles, err := fetchOwned(ctx, f, owner, models.ProfileStruct, models.DecodeUserProfile)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}
