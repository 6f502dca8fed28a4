package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/app"
	"github.com/arbr39/kaizen/internal/config"
	"github.com/arbr39/kaizen/internal/testutil"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.Build(context.Background(), config.DefaultConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		app.WithDB(testutil.NewTestDB(t)),
		app.WithClock(func() time.Time { return testutil.Now }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// run executes the CLI with args against a and returns stdout.
func run(t *testing.T, a *app.App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(a, nil)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stripANSI(out.String()), err
}

func mustRun(t *testing.T, a *app.App, args ...string) string {
	t.Helper()
	out, err := run(t, a, args...)
	require.NoError(t, err, "kaizen %v", args)
	return out
}

func TestBalance_NewAccountStartsAtZero(t *testing.T) {
	a := testApp(t)
	out := mustRun(t, a, "balance")
	assert.Contains(t, out, "Balance")
	assert.Contains(t, out, "none")

	acc, err := a.Ledger.GetAccount(context.Background(), "local:local")
	require.NoError(t, err)
	assert.Equal(t, "local", acc.DisplayName)
}

func TestWeekAndHabits_EmptyAccount(t *testing.T) {
	a := testApp(t)
	out := mustRun(t, a, "week")
	assert.Contains(t, out, "2024-05-02 to 2024-05-08")
	assert.Contains(t, out, "0/7")

	out = mustRun(t, a, "habits")
	assert.Contains(t, out, "exercise")
	assert.Contains(t, out, "Avg bedtime")
}

func TestAccountFlagSelectsAccount(t *testing.T) {
	a := testApp(t)
	mustRun(t, a, "--account", "sam", "ledger", "adjust", "40")

	balance, err := a.Ledger.Balance(context.Background(), "local:sam")
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)
}

func TestItemsAndBuy(t *testing.T) {
	a := testApp(t)

	out := mustRun(t, a, "items", "add", "--name", "Coffee", "--price", "100", "--category", "treats")
	assert.Equal(t, "Added Coffee for 100.\n", out)

	out = mustRun(t, a, "items")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "0%")

	_, err := run(t, a, "buy", "coffee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costs 100, balance is 0")

	mustRun(t, a, "ledger", "adjust", "150", "--reason", "gift")
	out = mustRun(t, a, "buy", "coffee")
	assert.Contains(t, out, "Enjoy your Coffee!")
	assert.Contains(t, out, "balance 50")

	out = mustRun(t, a, "history")
	assert.Contains(t, out, "reward_spent")
	assert.Contains(t, out, "gift")

	out = mustRun(t, a, "ledger", "verify")
	assert.Contains(t, out, "local:local")
	assert.Contains(t, out, "ok")
}

func TestItemsAdd_NonInteractiveNeedsFlags(t *testing.T) {
	a := testApp(t)
	_, err := run(t, a, "items", "add", "--name", "Coffee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name and --price are required")
}

func TestItemsArchiveAndUnarchive(t *testing.T) {
	a := testApp(t)
	mustRun(t, a, "items", "add", "--name", "Movie", "--price", "300")

	assert.Equal(t, "Movie: archived.\n", mustRun(t, a, "items", "archive", "1"))
	assert.NotContains(t, mustRun(t, a, "items"), "Movie")
	assert.Contains(t, mustRun(t, a, "items", "--all"), "Archived")

	assert.Equal(t, "Movie: unarchived.\n", mustRun(t, a, "items", "unarchive", "movie"))
	assert.Equal(t, "Movie: removed.\n", mustRun(t, a, "items", "remove", "Movie"))
	assert.Contains(t, mustRun(t, a, "items", "--all"), "No reward items")
}

func TestInbox(t *testing.T) {
	a := testApp(t)

	assert.Equal(t, "Captured: call the dentist\n", mustRun(t, a, "inbox", "add", "call", "the", "dentist"))
	assert.Contains(t, mustRun(t, a, "inbox"), "call the dentist")

	assert.Equal(t, "Done! +15\n", mustRun(t, a, "inbox", "done", "1"))
	assert.Contains(t, mustRun(t, a, "inbox"), "Inbox is empty.")

	_, err := run(t, a, "inbox", "done", "1")
	require.Error(t, err)
}

func TestRates(t *testing.T) {
	a := testApp(t)

	assert.Contains(t, mustRun(t, a, "rates"), "morning_kaizen")
	assert.Equal(t, "morning_kaizen is now 60\n", mustRun(t, a, "rates", "set", "morning_kaizen", "60"))

	rates, err := a.Ledger.Rates(context.Background(), "local:local")
	require.NoError(t, err)
	assert.Equal(t, int64(60), rates["morning_kaizen"])

	_, err = run(t, a, "rates", "set", "reward_spent", "5")
	require.Error(t, err)
}

func TestPenalties(t *testing.T) {
	a := testApp(t)
	assert.Equal(t, "Missed-evening penalty on.\n", mustRun(t, a, "penalties", "on"))

	acc, err := a.Ledger.GetAccount(context.Background(), "local:local")
	require.NoError(t, err)
	assert.True(t, acc.PenaltiesEnabled)

	_, err = run(t, a, "penalties", "maybe")
	require.Error(t, err)
}

func TestServe_RequiresATransport(t *testing.T) {
	a := testApp(t)
	_, err := run(t, a, "serve")
	assert.ErrorIs(t, err, errNothingToServe)
}

func TestRoot_NonInteractivePrintsHelp(t *testing.T) {
	a := testApp(t)
	out := mustRun(t, a)
	assert.Contains(t, out, "Daily rituals")
	assert.Contains(t, out, "serve")
}

func TestDashedFlags(t *testing.T) {
	assert.Equal(t, "some-flag", string(dashedFlags(nil, "some_flag")))
	assert.Equal(t, "account", string(dashedFlags(nil, "account")))
}
