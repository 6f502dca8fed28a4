package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/arbr39/kaizen/internal/db"
)

// NewTestDB returns a migrated, private in-memory kaizen database. It is
// pinned to one connection, so it suits sequential tests only.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openForTest(t, db.MemoryPath)
}

// NewFileTestDB returns a migrated database file under t.TempDir. It has a
// real connection pool with WAL and busy waits, which the concurrent ledger
// tests rely on.
func NewFileTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openForTest(t, filepath.Join(t.TempDir(), "kaizen_test.db"))
}

// NewTestTxRunner wraps database in the TxRunner the ledger uses in
// production.
func NewTestTxRunner(database *sql.DB) db.UnitOfWork {
	return db.NewTxRunner(database)
}

func openForTest(t *testing.T, path string) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(path)
	if err != nil {
		t.Fatalf("opening kaizen test database %s: %v", path, err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}
