package dialog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(account, id string, updated time.Time) *Session {
	return &Session{
		ID:         id,
		AccountID:  account,
		Definition: "survey",
		Current:    "mood",
		Answers:    []Answer{{Step: "name", Value: "Ada"}},
		History:    []string{"name"},
		Params:     map[string]string{"k": "v"},
		StartedAt:  updated,
		UpdatedAt:  updated,
	}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	got, err := store.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Nil(t, got)

	s := newTestSession("acct", "s1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.Put(ctx, s))

	got, err = store.Get(ctx, "acct")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, s.Answers, got.Answers)
	assert.Equal(t, s.History, got.History)
	assert.Equal(t, "v", got.Params["k"])

	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(1), s.Version, "Put bumps the caller's version")

	// A writer holding an older copy loses.
	stale := s.Clone()
	stale.Version = 0
	assert.ErrorIs(t, store.Put(ctx, stale), ErrStale)

	got.Current = "score"
	require.NoError(t, store.Put(ctx, got))
	assert.Equal(t, int64(2), got.Version)
	assert.ErrorIs(t, store.Put(ctx, s), ErrStale, "version 1 was overwritten by version 2")

	taken, err := store.Take(ctx, "acct", "other", 2)
	require.NoError(t, err)
	assert.False(t, taken, "wrong session id must not be taken")

	taken, err = store.Take(ctx, "acct", "s1", 1)
	require.NoError(t, err)
	assert.False(t, taken, "old version must not be taken")

	taken, err = store.Take(ctx, "acct", "s1", 2)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.Take(ctx, "acct", "s1", 2)
	require.NoError(t, err)
	assert.False(t, taken, "second take finds nothing")

	// A taken session cannot be written back by a late writer.
	assert.ErrorIs(t, store.Put(ctx, got), ErrStale)
	got, err = store.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Nil(t, got)

	fresh := newTestSession("acct", "s2", s.UpdatedAt)
	require.NoError(t, store.Put(ctx, fresh))
	require.NoError(t, store.Delete(ctx, "acct"))
	got, err = store.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Put(ctx, newTestSession("acct", "s1", testNow)))

	got, err := store.Get(ctx, "acct")
	require.NoError(t, err)
	got.Answers[0].Value = "changed"
	got.History = append(got.History, "mood")

	again, err := store.Get(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Answers[0].Value)
	assert.Len(t, again.History, 1)
}

func TestMemoryStore_IdleExpiry(t *testing.T) {
	ctx := context.Background()
	now := testNow
	store := NewMemoryStore(30 * time.Minute).WithClock(func() time.Time { return now })

	require.NoError(t, store.Put(ctx, newTestSession("a", "s1", testNow)))
	require.NoError(t, store.Put(ctx, newTestSession("b", "s2", testNow.Add(20*time.Minute))))

	now = testNow.Add(31 * time.Minute)
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got, "idle session expired")

	got, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = testNow.Add(2 * time.Hour)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore_Contract(t *testing.T) {
	addr := os.Getenv("KAIZEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KAIZEN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := DialRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	prefix := "kaizen-test:" + time.Now().Format("150405.000000") + ":"
	store := NewRedisStore(rdb, prefix, time.Minute)
	storeContract(t, store)

	require.NoError(t, store.Put(ctx, newTestSession("ttl", "s1", testNow)))
	ttl, err := rdb.TTL(ctx, prefix+"session:ttl").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, store.Delete(ctx, "ttl"))
}
