package ledgerfeed

import (
	"context"
	"errors"
	"testing"

	"github.com/haileyok/ledgerfeed/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRefresh(t *testing.T) {
	env := newTestEnv(testConfig(), "0xv")
	env.addProfile("0xprof", "0xv", "viewer", 3, 2)
	env.addPost("0xp1", "0xv", 1, 100)
	env.addPost("0xp2", "0xa", 4, 300)
	env.addPost("0xp3", "0xv", 0, 200)

	assert.Equal(t, uint64(0), env.store.FeedHead())
	assert.Nil(t, env.store.Profile())

	env.store.Refresh(context.Background())

	p := env.store.Profile()
	require.NotNil(t, p)
	assert.Equal(t, "viewer", p.Username)

	assert.Equal(t, []string{"0xp2", "0xp3", "0xp1"}, postIDs(env.store.Feed()))
	assert.Equal(t, uint64(300), env.store.FeedHead())

	cached, ok := env.profiles.Get("0xv")
	require.True(t, ok)
	assert.Equal(t, "0xprof", cached.ID)
}

func TestStoreFeedSortedByCreatedAt(t *testing.T) {
	env := newTestEnv(testConfig(), "")
	env.addPost("0xold", "0xa", 0, 100)
	env.addPost("0xnew", "0xa", 0, 500)
	// events can reference posts out of creation order
	env.ledger.setEvents(postEvent("0xold", 600), postEvent("0xnew", 500))

	env.store.RefreshFeed(context.Background())
	assert.Equal(t, []string{"0xnew", "0xold"}, postIDs(env.store.Feed()))
}

func TestStoreFeedIsACopy(t *testing.T) {
	env := newTestEnv(testConfig(), "")
	env.addPost("0xp1", "0xa", 0, 100)
	env.store.RefreshFeed(context.Background())

	feed := env.store.Feed()
	feed[0].Author = "0xmutated"
	assert.Equal(t, "0xa", env.store.Feed()[0].Author)

	p := env.store.Profile()
	assert.Nil(t, p)
}

func TestStoreKeepsFeedOnDiscoveryFailure(t *testing.T) {
	env := newTestEnv(testConfig(), "")
	env.addPost("0xp1", "0xa", 0, 100)
	env.store.RefreshFeed(context.Background())
	require.Len(t, env.store.Feed(), 1)

	env.addPost("0xp2", "0xa", 0, 200)
	env.ledger.setErr(&env.ledger.eventsErr, errors.New("node down"))
	env.store.RefreshFeed(context.Background())

	assert.Equal(t, []string{"0xp1"}, postIDs(env.store.Feed()))
}

func TestStoreKeepsFeedWhenAllFetchesFail(t *testing.T) {
	env := newTestEnv(testConfig(), "")
	env.addPost("0xp1", "0xa", 0, 100)
	env.store.RefreshFeed(context.Background())

	env.addPost("0xp2", "0xa", 0, 200)
	env.ledger.setErr(&env.ledger.multiGetErr, errors.New("node down"))
	env.store.RefreshFeed(context.Background())

	assert.Equal(t, []string{"0xp1"}, postIDs(env.store.Feed()))
}

func TestStoreEmptyDiscoveryClearsFeed(t *testing.T) {
	env := newTestEnv(testConfig(), "")
	env.addPost("0xp1", "0xa", 0, 100)
	env.store.RefreshFeed(context.Background())

	env.ledger.setEvents()
	env.store.RefreshFeed(context.Background())

	assert.Empty(t, env.store.Feed())
	assert.Equal(t, uint64(0), env.store.FeedHead())
}

func TestStoreProfileClearedWhenGone(t *testing.T) {
	env := newTestEnv(testConfig(), "0xv")
	env.addProfile("0xprof", "0xv", "viewer", 0, 0)

	env.store.RefreshProfile(context.Background())
	require.NotNil(t, env.store.Profile())

	env.ledger.disown("0xv", models.ProfileStruct)
	env.store.RefreshProfile(context.Background())
	assert.Nil(t, env.store.Profile())
}

func TestStoreDiscardsResultsAfterClose(t *testing.T) {
	env := newTestEnv(testConfig(), "0xv")
	env.addProfile("0xprof", "0xv", "viewer", 0, 0)
	env.addPost("0xp1", "0xa", 0, 100)

	env.store.Close()
	env.store.Refresh(context.Background())
	env.store.setNewContentCount(3)

	assert.Empty(t, env.store.Feed())
	assert.Nil(t, env.store.Profile())
	assert.Equal(t, 0, env.store.NewContentCount())
}
