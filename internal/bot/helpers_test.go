package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/ritual"
	"github.com/arbr39/kaizen/internal/service"
	"github.com/arbr39/kaizen/internal/testutil"
)

const acct = "discord:42"

type botFixture struct {
	d       *Dispatcher
	ledger  service.LedgerService
	items   service.ItemService
	entries repository.DailyEntryRepo
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	now := func() time.Time { return testutil.Now }

	entries := repository.NewSQLiteDailyEntryRepo(database)
	ledger := service.NewLedgerService(
		repository.NewSQLiteAccountRepo(database),
		repository.NewSQLiteTransactionRepo(database),
		entries,
		testutil.NewTestTxRunner(database),
		nil,
	)
	items := service.NewItemService(repository.NewSQLiteItemRepo(database))
	inbox := service.NewInboxService(repository.NewSQLiteInboxRepo(database), ledger)

	set, err := ritual.New(ritual.Deps{
		Ledger:      ledger,
		Entries:     entries,
		Inbox:       inbox,
		Weekly:      repository.NewSQLiteWeeklyReviewRepo(database),
		Assessments: repository.NewSQLiteAssessmentRepo(database),
		Now:         now,
	})
	require.NoError(t, err)
	reg, err := set.Registry()
	require.NoError(t, err)
	engine := dialog.NewEngine(reg, dialog.NewMemoryStore(time.Hour), dialog.WithClock(now))

	return &botFixture{
		d: NewDispatcher(Deps{
			Dialogs: engine,
			Ledger:  ledger,
			Items:   items,
			Inbox:   inbox,
			Reports: service.NewReportService(entries),
			Now:     now,
		}),
		ledger:  ledger,
		items:   items,
		entries: entries,
	}
}

// say sends text as the test account.
func (f *botFixture) say(t *testing.T, text string) Response {
	t.Helper()
	resp, err := f.d.Handle(context.Background(), ParseText(acct, "Tester", text))
	require.NoError(t, err, "handling %q", text)
	return resp
}
