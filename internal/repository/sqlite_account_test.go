package repository

import (
	"context"
	"testing"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepo_GetOrCreate_IsLazyAndStable(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAccountRepo(db)
	ctx := context.Background()

	a, err := repo.GetOrCreate(ctx, "discord:1", "ann", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, "discord:1", a.ID)
	assert.Equal(t, "ann", a.DisplayName)
	assert.True(t, a.Active)
	assert.False(t, a.PenaltiesEnabled)
	assert.Equal(t, int64(0), a.Balance)
	assert.Equal(t, int64(0), a.TotalEarned)

	// Second call returns the same row, untouched.
	b, err := repo.GetOrCreate(ctx, "discord:1", "renamed", testutil.Now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "ann", b.DisplayName)
	assert.Equal(t, a.CreatedAt, b.CreatedAt)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAccountRepo_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteAccountRepo(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRepo_Flags(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAccountRepo(db)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "a1", 0)
	testutil.SeedAccount(t, db, "a2", 0)

	require.NoError(t, repo.SetActive(ctx, "a1", false, testutil.Now))
	require.NoError(t, repo.SetPenaltiesEnabled(ctx, "a2", true, testutil.Now))

	a1, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, a1.Active)

	a2, err := repo.GetByID(ctx, "a2")
	require.NoError(t, err)
	assert.True(t, a2.PenaltiesEnabled)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a2", active[0].ID)

	assert.ErrorIs(t, repo.SetActive(ctx, "ghost", true, testutil.Now), ErrNotFound)
}

func TestAccountRepo_ApplyDelta(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAccountRepo(db)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "a1", 40)

	ok, err := repo.ApplyDelta(ctx, "a1", 25, testutil.Now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ApplyDelta(ctx, "a1", -65, testutil.Now)
	require.NoError(t, err)
	assert.True(t, ok, "debit down to exactly zero is allowed")

	ok, err = repo.ApplyDelta(ctx, "a1", -1, testutil.Now)
	require.NoError(t, err)
	assert.False(t, ok, "debit below zero must be refused")

	a, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Balance)
	assert.Equal(t, int64(65), a.TotalEarned)
	assert.Equal(t, int64(65), a.TotalSpent)
}

func TestAccountRepo_Rates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAccountRepo(db)
	ctx := context.Background()
	testutil.SeedAccount(t, db, "a1", 0)

	rates, err := repo.GetRates(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, rates)

	require.NoError(t, repo.SetRates(ctx, "a1", domain.Rates{domain.TriggerTaskDone: 25, domain.TriggerExercise: 0}, testutil.Now))
	require.NoError(t, repo.SetRates(ctx, "a1", domain.Rates{domain.TriggerTaskDone: 30}, testutil.Now))

	rates, err = repo.GetRates(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.Rates{domain.TriggerTaskDone: 30, domain.TriggerExercise: 0}, rates)
}
