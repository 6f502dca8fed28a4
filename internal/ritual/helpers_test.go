package ritual

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/calendar"
	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/service"
	"github.com/arbr39/kaizen/internal/testutil"
)

const acct = "discord:1"

// fakeCalendar records created events and hands out sequential ids.
type fakeCalendar struct {
	mu     sync.Mutex
	events []calendar.Event
	fail   error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, e calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.events = append(f.events, e)
	return fmt.Sprintf("evt-%d", len(f.events)), nil
}

type harness struct {
	engine      *dialog.Engine
	set         *Set
	ledger      service.LedgerService
	inbox       service.InboxService
	entries     *repository.SQLiteDailyEntryRepo
	weekly      *repository.SQLiteWeeklyReviewRepo
	assessments *repository.SQLiteAssessmentRepo
	inboxRepo   *repository.SQLiteInboxRepo
	cal         *fakeCalendar
	now         time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	testutil.SeedAccount(t, database, acct, 0)

	h := &harness{
		entries:     repository.NewSQLiteDailyEntryRepo(database),
		weekly:      repository.NewSQLiteWeeklyReviewRepo(database),
		assessments: repository.NewSQLiteAssessmentRepo(database),
		inboxRepo:   repository.NewSQLiteInboxRepo(database),
		cal:         &fakeCalendar{},
		now:         testutil.Now,
	}
	h.ledger = service.NewLedgerService(
		repository.NewSQLiteAccountRepo(database),
		repository.NewSQLiteTransactionRepo(database),
		h.entries,
		testutil.NewTestTxRunner(database),
		nil,
	)
	h.inbox = service.NewInboxService(h.inboxRepo, h.ledger)

	set, err := New(Deps{
		Ledger:      h.ledger,
		Entries:     h.entries,
		Inbox:       h.inbox,
		Weekly:      h.weekly,
		Assessments: h.assessments,
		Calendar:    h.cal,
		Now:         h.clock,
	})
	require.NoError(t, err)
	h.set = set

	reg, err := set.Registry()
	require.NoError(t, err)
	h.engine = dialog.NewEngine(reg, dialog.NewMemoryStore(time.Hour), dialog.WithClock(h.clock))
	return h
}

func (h *harness) clock() time.Time { return h.now }

func (h *harness) begin(t *testing.T, r domain.Ritual, opts ...dialog.BeginOption) *dialog.Reply {
	t.Helper()
	reply, err := h.engine.Begin(context.Background(), acct, string(r), opts...)
	require.NoError(t, err)
	return reply
}

// answer feeds values in order; "" means skip.
func (h *harness) answer(t *testing.T, values ...string) *dialog.Reply {
	t.Helper()
	var reply *dialog.Reply
	var err error
	for _, v := range values {
		if v == "" {
			reply, err = h.engine.Skip(context.Background(), acct)
		} else {
			reply, err = h.engine.Submit(context.Background(), acct, v)
		}
		require.NoError(t, err, "answering %q", v)
	}
	return reply
}

func (h *harness) balance(t *testing.T) int64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), acct)
	require.NoError(t, err)
	return b
}

func (h *harness) entry(t *testing.T, date string) *domain.DailyEntry {
	t.Helper()
	e, err := h.entries.Get(context.Background(), acct, date)
	require.NoError(t, err)
	return e
}

// completeMorning runs a morning with three tasks and task 1 as priority.
func (h *harness) completeMorning(t *testing.T) {
	t.Helper()
	h.begin(t, domain.RitualMorning)
	reply := h.answer(t, "06:45", "", "", "write report", "gym", "call mom", "1")
	require.True(t, reply.Done)
}

func requirePrecondition(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, dialog.ErrPrecondition), "got %v", err)
}
