package ritual

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
)

func TestWeeklyReview_SavesAndPaysOncePerWeek(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.inbox.Capture(ctx, acct, "one")
	require.NoError(t, err)
	_, err = h.inbox.Capture(ctx, acct, "two")
	require.NoError(t, err)

	reply := h.begin(t, domain.RitualWeekly)
	assert.Contains(t, reply.Prompt, "2 item(s)")

	reply = h.answer(t, "yes", "no", "yes", "shipped the report", "sleep matters", "")
	require.True(t, reply.Done)
	assert.Contains(t, reply.Summary, "2024-05-06")
	assert.Equal(t, int64(100), h.balance(t))

	review, err := h.weekly.Get(ctx, acct, "2024-05-06")
	require.NoError(t, err)
	assert.True(t, review.Completed)
	assert.True(t, review.InboxProcessed)
	assert.False(t, review.GoalsReviewed)
	assert.True(t, review.SomedayReviewed)
	assert.Equal(t, "shipped the report", review.Wins)
	assert.Empty(t, review.Plan)

	h.begin(t, domain.RitualWeekly, dialog.WithRestart())
	reply = h.answer(t, "yes", "yes", "yes", "again", "again", "rest")
	require.True(t, reply.Done)
	assert.Equal(t, int64(100), h.balance(t))

	review, err = h.weekly.Get(ctx, acct, "2024-05-06")
	require.NoError(t, err)
	assert.Equal(t, "rest", review.Plan)
}

func TestWeeklyReview_WinsRequired(t *testing.T) {
	h := newHarness(t)
	h.begin(t, domain.RitualWeekly)
	h.answer(t, "yes", "yes", "yes")

	_, err := h.engine.Skip(context.Background(), acct)
	require.ErrorIs(t, err, dialog.ErrNotSkippable)
}
