package ledgerfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/haileyok/ledgerfeed/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postIDs(posts []models.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestFetchByIDsBatchesAndKeepsOrder(t *testing.T) {
	cfg := testConfig()
	cfg.FetchBatchSize = 2
	l := newFakeLedger(cfg)

	var ids []string
	for i := range 5 {
		id := fmt.Sprintf("0xp%d", i)
		ids = append(ids, id)
		l.put(id, postObject(cfg, id, "0xa", 0, uint64(i)))
	}

	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})
	posts := f.Posts(context.Background(), ids)

	assert.Equal(t, ids, postIDs(posts))
	require.Len(t, l.multiGetCalls, 3)
	for _, call := range l.multiGetCalls {
		assert.LessOrEqual(t, len(call), 2)
	}
}

func TestFetchByIDsDropsBadRecords(t *testing.T) {
	cfg := testConfig()
	l := newFakeLedger(cfg)
	l.put("0xgood", postObject(cfg, "0xgood", "0xa", 1, 10))
	l.put("0xcomment", commentObject(cfg, "0xcomment", "0xgood", "0xa", 11))
	l.put("0xbroken", json.RawMessage(`{"objectId":"0xbroken","content":{"dataType":"package"}}`))
	l.put("0xpartial", json.RawMessage(`{"objectId":"0xpartial","content":{"dataType":"moveObject","fields":{}}}`))

	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})
	posts := f.Posts(context.Background(), []string{"0xgood", "0xcomment", "0xmissing", "0xbroken", "0xpartial"})

	require.Equal(t, []string{"0xgood", "0xpartial"}, postIDs(posts))
	assert.Equal(t, uint64(1), posts[0].LikeCount)
	assert.Equal(t, "", posts[1].Author)
	assert.Equal(t, uint64(0), posts[1].CreatedAt)
}

func TestFetchByIDsReturnsSuccessfulBatches(t *testing.T) {
	cfg := testConfig()
	cfg.FetchBatchSize = 2
	l := newFakeLedger(cfg)
	for _, id := range []string{"0x1", "0x2", "0x3", "0x4"} {
		l.put(id, postObject(cfg, id, "0xa", 0, 1))
	}
	l.failIDs = []string{"0x3"}

	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})

	posts, err := fetchByIDs(context.Background(), f, []string{"0x1", "0x2", "0x3", "0x4"}, models.PostStruct, models.DecodePost)
	assert.Error(t, err)
	assert.Equal(t, []string{"0x1", "0x2"}, postIDs(posts))

	assert.Equal(t, []string{"0x1", "0x2"}, postIDs(f.Posts(context.Background(), []string{"0x1", "0x2", "0x3", "0x4"})))
}

func TestFetchByIDsEmpty(t *testing.T) {
	cfg := testConfig()
	l := newFakeLedger(cfg)
	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})

	assert.Empty(t, f.Posts(context.Background(), nil))
	assert.Empty(t, l.multiGetCalls)
}

func TestFetchOwned(t *testing.T) {
	cfg := testConfig()
	l := newFakeLedger(cfg)
	l.own("0xv", models.CommentStruct, "0xc1", commentObject(cfg, "0xc1", "0xp", "0xv", 5))
	l.own("0xv", models.FollowStruct, "0xf1", followObject(cfg, "0xf1", "0xv", "0xt"))

	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})

	comments := f.OwnedComments(context.Background(), "0xv")
	require.Len(t, comments, 1)
	assert.Equal(t, "0xp", comments[0].PostID)

	follows := f.OwnedFollows(context.Background(), "0xv")
	require.Len(t, follows, 1)
	assert.Equal(t, "0xt", follows[0].Following)

	assert.Empty(t, f.OwnedComments(context.Background(), "0xother"))
}

func TestFetchOwnedFailsSoft(t *testing.T) {
	cfg := testConfig()
	l := newFakeLedger(cfg)
	l.own("0xv", models.CommentStruct, "0xc1", commentObject(cfg, "0xc1", "0xp", "0xv", 5))
	l.setErr(&l.ownedErr, errors.New("unreachable"))

	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})
	assert.Empty(t, f.OwnedComments(context.Background(), "0xv"))
	assert.Nil(t, f.ProfileByOwner(context.Background(), "0xv"))
}

func TestProfileByOwner(t *testing.T) {
	cfg := testConfig()
	l := newFakeLedger(cfg)
	l.own("0xa", models.ProfileStruct, "0xprof1", profileObject(cfg, "0xprof1", "0xa", "alice", 10, 2))
	l.own("0xa", models.ProfileStruct, "0xprof2", profileObject(cfg, "0xprof2", "0xa", "alice2", 0, 0))

	f := NewObjectFetcher(ObjectFetcherArgs{Ledger: l, Config: cfg})

	p := f.ProfileByOwner(context.Background(), "0xa")
	require.NotNil(t, p)
	assert.Equal(t, "0xprof1", p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, uint64(10), p.FollowerCount)

	assert.Nil(t, f.ProfileByOwner(context.Background(), "0xnobody"))

	calls := l.ownedCalls
	assert.Nil(t, f.ProfileByOwner(context.Background(), ""))
	assert.Equal(t, calls, l.ownedCalls)
}
