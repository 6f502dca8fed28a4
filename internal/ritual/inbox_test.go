package ritual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/testutil"
)

func TestInboxTriage_TwoMinuteDonePaysOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := testutil.NewTestInboxItem(acct, "reply to landlord", testutil.WithInboxCreatedAt(testutil.Now.Add(-time.Hour)))
	require.NoError(t, h.inboxRepo.Create(ctx, first))
	require.NoError(t, h.inboxRepo.Create(ctx, testutil.NewTestInboxItem(acct, "renew passport")))

	reply := h.begin(t, domain.RitualInbox)
	assert.Contains(t, reply.Prompt, "reply to landlord", "oldest pending item first")

	reply = h.answer(t, "yes", "done")
	require.True(t, reply.Done)
	assert.Equal(t, int64(15), h.balance(t))

	item, err := h.inbox.Get(ctx, acct, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxProcessed, item.Status)

	_, err = h.engine.Begin(ctx, acct, string(domain.RitualInbox), dialog.WithParams(map[string]string{"item_id": first.ID}))
	requirePrecondition(t, err)
}

func TestInboxTriage_LaterLeavesItemPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item, err := h.inbox.Capture(ctx, acct, "water plants")
	require.NoError(t, err)

	h.begin(t, domain.RitualInbox)
	reply := h.answer(t, "yes", "later")
	require.True(t, reply.Done)

	got, err := h.inbox.Get(ctx, acct, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxPending, got.Status)
	assert.Zero(t, h.balance(t))
}

func TestInboxTriage_TagAndDefer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item, err := h.inbox.Capture(ctx, acct, "plan vacation")
	require.NoError(t, err)

	h.begin(t, domain.RitualInbox, dialog.WithParams(map[string]string{"item_id": item.ID}))
	reply := h.answer(t, "no", "High", "30min", "someday")
	require.True(t, reply.Done)
	assert.Contains(t, reply.Summary, "someday")

	got, err := h.inbox.Get(ctx, acct, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxSomeday, got.Status)
	assert.Equal(t, domain.EnergyHigh, got.Energy)
	assert.Equal(t, domain.Time30Min, got.TimeEstimate)

	// Finishing it later pays by its tags: ceil(25 * 2.0).
	h.begin(t, domain.RitualInbox, dialog.WithParams(map[string]string{"item_id": item.ID}))
	reply = h.answer(t, "yes", "done")
	require.True(t, reply.Done)
	assert.Equal(t, int64(50), h.balance(t))
}

func TestInboxTriage_SkippedTagsAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item, err := h.inbox.Capture(ctx, acct, "old idea")
	require.NoError(t, err)

	h.begin(t, domain.RitualInbox)
	reply := h.answer(t, "no", "", "", "delete")
	require.True(t, reply.Done)

	_, err = h.inbox.Get(ctx, acct, item.ID)
	require.ErrorIs(t, err, domain.ErrInboxItemNotFound)
}

func TestInboxTriage_EmptyInbox(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Begin(context.Background(), acct, string(domain.RitualInbox))
	requirePrecondition(t, err)
	assert.Contains(t, err.Error(), "inbox is empty")
}

func TestInboxTriage_UnknownItem(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Begin(context.Background(), acct, string(domain.RitualInbox),
		dialog.WithParams(map[string]string{"item_id": "missing"}))
	requirePrecondition(t, err)
}
