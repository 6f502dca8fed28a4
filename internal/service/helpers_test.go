package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/testutil"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	db       *sql.DB
	ledger   LedgerService
	items    ItemService
	inbox    InboxService
	accounts repository.AccountRepo
	txs      repository.TransactionRepo
	itemRepo repository.ItemRepo
	entries  repository.DailyEntryRepo
}

func newLedgerFixture(t *testing.T, database *sql.DB, uow db.UnitOfWork) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		db:       database,
		accounts: repository.NewSQLiteAccountRepo(database),
		txs:      repository.NewSQLiteTransactionRepo(database),
		itemRepo: repository.NewSQLiteItemRepo(database),
		entries:  repository.NewSQLiteDailyEntryRepo(database),
	}
	f.ledger = NewLedgerService(f.accounts, f.txs, f.entries, uow, nil)
	f.items = NewItemService(f.itemRepo)
	f.inbox = NewInboxService(repository.NewSQLiteInboxRepo(database), f.ledger)
	return f
}

func setupLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	return newLedgerFixture(t, database, testutil.NewTestTxRunner(database))
}

func (f *ledgerFixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), accountID)
	require.NoError(t, err)
	return b
}

func (f *ledgerFixture) txCount(t *testing.T, accountID string) int {
	t.Helper()
	txs, err := f.txs.ListRecent(context.Background(), accountID, 1000)
	require.NoError(t, err)
	return len(txs)
}

func (f *ledgerFixture) requireConsistent(t *testing.T, accountID string) {
	t.Helper()
	report, err := f.ledger.Reconcile(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, report.Consistent(), "balance %d != ledger sum %d", report.Balance, report.LedgerSum)
}

func (f *ledgerFixture) seedItem(t *testing.T, accountID, name string, price int64, opts ...testutil.ItemOption) *domain.RedeemableItem {
	t.Helper()
	item := testutil.NewTestItem(accountID, name, price, opts...)
	require.NoError(t, f.itemRepo.Create(context.Background(), item))
	return item
}
