package ledgerfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/haileyok/ledgerfeed/ledger"
	"github.com/haileyok/ledgerfeed/models"
)

func testConfig() Config {
	cfg := DefaultConfig(NetworkTestnet)
	cfg.SettleDelay = 0
	cfg.PollInterval = 5 * time.Millisecond
	return cfg
}

// fakeLedger serves objects and events from memory.
type fakeLedger struct {
	cfg Config

	mu      sync.Mutex
	objects map[string]json.RawMessage
	owned   map[string][]string
	events  []ledger.Event
	txs     map[string]*ledger.TransactionBlock

	eventsErr   error
	ownedErr    error
	multiGetErr error
	waitErr     error
	// failIDs makes any multi-get batch containing one of them fail.
	failIDs []string

	multiGetCalls [][]string
	ownedCalls    int
	lastQuery     ledger.EventQuery
	lastDesc      bool
}

func newFakeLedger(cfg Config) *fakeLedger {
	return &fakeLedger{
		cfg:     cfg,
		objects: make(map[string]json.RawMessage),
		owned:   make(map[string][]string),
		txs:     make(map[string]*ledger.TransactionBlock),
	}
}

func ownedKey(owner, structType string) string {
	return owner + "|" + structType
}

func (f *fakeLedger) put(id string, raw json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[id] = raw
}

func (f *fakeLedger) own(owner, structName, id string, raw json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[id] = raw
	key := ownedKey(owner, f.cfg.StructType(structName))
	f.owned[key] = append(f.owned[key], id)
}

func (f *fakeLedger) disown(owner, structName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.owned, ownedKey(owner, f.cfg.StructType(structName)))
}

func (f *fakeLedger) setEvents(events ...ledger.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
}

func (f *fakeLedger) setErr(target *error, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*target = err
}

func (f *fakeLedger) GetOwnedObjects(ctx context.Context, owner, structType string) ([]ledger.ObjectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownedCalls++
	if f.ownedErr != nil {
		return nil, f.ownedErr
	}

	var out []ledger.ObjectResponse
	for _, id := range f.owned[ownedKey(owner, structType)] {
		out = append(out, ledger.ObjectResponse{Data: f.objects[id]})
	}
	return out, nil
}

func (f *fakeLedger) MultiGetObjects(ctx context.Context, ids []string) ([]ledger.ObjectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.multiGetCalls = append(f.multiGetCalls, slices.Clone(ids))
	if f.multiGetErr != nil {
		return nil, f.multiGetErr
	}
	for _, id := range ids {
		if slices.Contains(f.failIDs, id) {
			return nil, &ledger.TransportError{Method: "iota_multiGetObjects", Err: errors.New("connection reset")}
		}
	}

	out := make([]ledger.ObjectResponse, 0, len(ids))
	for _, id := range ids {
		raw, ok := f.objects[id]
		if !ok {
			out = append(out, ledger.ObjectResponse{Error: json.RawMessage(`{"code":"notExists","object_id":"` + id + `"}`)})
			continue
		}
		out = append(out, ledger.ObjectResponse{Data: raw})
	}
	return out, nil
}

func (f *fakeLedger) QueryEvents(ctx context.Context, query ledger.EventQuery, limit int, descending bool) ([]ledger.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query
	f.lastDesc = descending
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}

	events := slices.Clone(f.events)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (f *fakeLedger) WaitForTransaction(ctx context.Context, digest string) (*ledger.TransactionBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if tx, ok := f.txs[digest]; ok {
		return tx, nil
	}
	return &ledger.TransactionBlock{
		Digest:  digest,
		Effects: &ledger.TransactionEffects{Status: ledger.ExecutionStatus{Status: "success"}},
	}, nil
}

type fakeWallet struct {
	addr string
	err  error
	// block, when set, holds SignAndExecute until it is closed.
	block chan struct{}
	// onSign runs inside SignAndExecute before it returns.
	onSign func()

	mu    sync.Mutex
	calls []*ledger.MoveCall
}

func (w *fakeWallet) Address() string {
	return w.addr
}

func (w *fakeWallet) SignAndExecute(ctx context.Context, call *ledger.MoveCall) (string, error) {
	w.mu.Lock()
	w.calls = append(w.calls, call)
	n := len(w.calls)
	w.mu.Unlock()

	if w.block != nil {
		<-w.block
	}
	if w.onSign != nil {
		w.onSign()
	}
	if w.err != nil {
		return "", w.err
	}
	return fmt.Sprintf("digest-%d", n), nil
}

func (w *fakeWallet) Calls() []*ledger.MoveCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.calls)
}

type fakePinner struct {
	cid     string
	err     error
	name    string
	payload string
}

func (p *fakePinner) Pin(ctx context.Context, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	p.name = name
	p.payload = string(b)
	return p.cid, p.err
}

func moveObject(cfg Config, id, structName string, fields map[string]any) json.RawMessage {
	typ := cfg.StructType(structName)
	b, err := json.Marshal(map[string]any{
		"objectId": id,
		"type":     typ,
		"content": map[string]any{
			"dataType": "moveObject",
			"type":     typ,
			"fields":   fields,
		},
	})
	if err != nil {
		panic(err)
	}
	return b
}

func postObject(cfg Config, id, author string, likes, createdAt uint64) json.RawMessage {
	return moveObject(cfg, id, models.PostStruct, map[string]any{
		"author":        author,
		"content":       "post " + id,
		"like_count":    strconv.FormatUint(likes, 10),
		"comment_count": "0",
		"created_at":    strconv.FormatUint(createdAt, 10),
		"likes":         map[string]any{"fields": map[string]any{"contents": []string{}}},
	})
}

func profileObject(cfg Config, id, owner, username string, followers, posts uint64) json.RawMessage {
	return moveObject(cfg, id, models.ProfileStruct, map[string]any{
		"owner":           owner,
		"username":        username,
		"bio":             "",
		"follower_count":  strconv.FormatUint(followers, 10),
		"following_count": "0",
		"post_count":      strconv.FormatUint(posts, 10),
		"created_at":      "1",
	})
}

func commentObject(cfg Config, id, postID, author string, createdAt uint64) json.RawMessage {
	return moveObject(cfg, id, models.CommentStruct, map[string]any{
		"post_id":    postID,
		"author":     author,
		"content":    "comment " + id,
		"created_at": strconv.FormatUint(createdAt, 10),
	})
}

func followObject(cfg Config, id, follower, following string) json.RawMessage {
	return moveObject(cfg, id, models.FollowStruct, map[string]any{
		"follower":   follower,
		"following":  following,
		"created_at": "1",
	})
}

func postEvent(id string, ts uint64) ledger.Event {
	return ledger.Event{
		Type:        TestnetPackageID + "::social_media::PostCreated",
		ParsedJSON:  json.RawMessage(`{"id":"` + id + `"}`),
		TimestampMs: strconv.FormatUint(ts, 10),
	}
}

// testEnv wires the components the way a Session does, over a fake ledger.
type testEnv struct {
	cfg       Config
	ledger    *fakeLedger
	fetcher   *ObjectFetcher
	discovery *EventDiscovery
	profiles  *ProfileCache
	store     *Store
}

func newTestEnv(cfg Config, viewer string) *testEnv {
	l := newFakeLedger(cfg)
	fetcher := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})
	discovery := NewEventDiscovery(EventDiscoveryArgs{Ledger: l, Config: cfg})
	profiles := NewProfileCache(nil, fetcher)
	store := NewStore(StoreArgs{
		Config:    cfg,
		Viewer:    viewer,
		Discovery: discovery,
		Fetcher:   fetcher,
		Profiles:  profiles,
	})

	return &testEnv{
		cfg:       cfg,
		ledger:    l,
		fetcher:   fetcher,
		discovery: discovery,
		profiles:  profiles,
		store:     store,
	}
}

// addPost stores a post and emits its creation event, newest first.
func (e *testEnv) addPost(id, author string, likes, createdAt uint64) {
	e.ledger.put(id, postObject(e.cfg, id, author, likes, createdAt))

	e.ledger.mu.Lock()
	defer e.ledger.mu.Unlock()
	e.ledger.events = append([]ledger.Event{postEvent(id, createdAt)}, e.ledger.events...)
}

func (e *testEnv) addProfile(id, owner, username string, followers, posts uint64) {
	e.ledger.own(owner, models.ProfileStruct, id, profileObject(e.cfg, id, owner, username, followers, posts))
}
