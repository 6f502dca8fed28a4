package db

import (
	"database/sql"
	"fmt"
)

// Migrate creates the kaizen schema. Every statement is IF NOT EXISTS, so
// it runs on every start.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id                TEXT PRIMARY KEY,
		display_name      TEXT NOT NULL DEFAULT '',
		active            INTEGER NOT NULL DEFAULT 1,
		penalties_enabled INTEGER NOT NULL DEFAULT 0,
		balance           INTEGER NOT NULL DEFAULT 0 CHECK(balance >= 0),
		total_earned      INTEGER NOT NULL DEFAULT 0 CHECK(total_earned >= 0),
		total_spent       INTEGER NOT NULL DEFAULT 0 CHECK(total_spent >= 0),
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS account_rates (
		account_id TEXT NOT NULL REFERENCES accounts(id),
		trigger    TEXT NOT NULL,
		amount     INTEGER NOT NULL CHECK(amount >= 0),
		updated_at TEXT NOT NULL,
		PRIMARY KEY (account_id, trigger)
	)`,

	`CREATE TABLE IF NOT EXISTS reward_items (
		id                TEXT PRIMARY KEY,
		account_id        TEXT NOT NULL REFERENCES accounts(id),
		name              TEXT NOT NULL,
		price             INTEGER NOT NULL CHECK(price > 0),
		category          TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL DEFAULT 'active'
		                  CHECK(status IN ('active','archived','deleted')),
		times_purchased   INTEGER NOT NULL DEFAULT 0,
		last_purchased_at TEXT,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_reward_items_account ON reward_items(account_id, status)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id          TEXT PRIMARY KEY,
		account_id  TEXT NOT NULL REFERENCES accounts(id),
		amount      INTEGER NOT NULL,
		trigger     TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		ref_type    TEXT NOT NULL DEFAULT '',
		ref_id      TEXT NOT NULL DEFAULT '',
		dedup_key   TEXT,
		created_at  TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_dedup ON transactions(account_id, dedup_key)
		WHERE dedup_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_created ON transactions(account_id, created_at)`,

	// Ledger entries are append-only.
	`CREATE TRIGGER IF NOT EXISTS trg_transactions_no_update
		BEFORE UPDATE ON transactions
		BEGIN SELECT RAISE(ABORT, 'transactions are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_transactions_no_delete
		BEFORE DELETE ON transactions
		BEGIN SELECT RAISE(ABORT, 'transactions are immutable'); END`,

	`CREATE TABLE IF NOT EXISTS daily_entries (
		account_id        TEXT NOT NULL REFERENCES accounts(id),
		entry_date        TEXT NOT NULL,
		wake_time         TEXT NOT NULL DEFAULT '',
		energy_plus       TEXT NOT NULL DEFAULT '',
		energy_minus      TEXT NOT NULL DEFAULT '',
		task_1            TEXT NOT NULL DEFAULT '',
		task_2            TEXT NOT NULL DEFAULT '',
		task_3            TEXT NOT NULL DEFAULT '',
		priority_task     INTEGER NOT NULL DEFAULT 0 CHECK(priority_task BETWEEN 0 AND 3),
		morning_completed INTEGER NOT NULL DEFAULT 0,
		morning_at        TEXT,
		task_1_done       INTEGER NOT NULL DEFAULT 0,
		task_2_done       INTEGER NOT NULL DEFAULT 0,
		task_3_done       INTEGER NOT NULL DEFAULT 0,
		insight           TEXT NOT NULL DEFAULT '',
		improve           TEXT NOT NULL DEFAULT '',
		exercised         INTEGER NOT NULL DEFAULT 0,
		ate_well          INTEGER NOT NULL DEFAULT 0,
		sleep_time        TEXT NOT NULL DEFAULT '',
		evening_completed INTEGER NOT NULL DEFAULT 0,
		evening_at        TEXT,
		task_1_event_id   TEXT NOT NULL DEFAULT '',
		task_2_event_id   TEXT NOT NULL DEFAULT '',
		task_3_event_id   TEXT NOT NULL DEFAULT '',
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		PRIMARY KEY (account_id, entry_date)
	)`,

	`CREATE TABLE IF NOT EXISTS inbox_items (
		id            TEXT PRIMARY KEY,
		account_id    TEXT NOT NULL REFERENCES accounts(id),
		text          TEXT NOT NULL,
		energy        TEXT NOT NULL DEFAULT '',
		time_estimate TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'pending'
		              CHECK(status IN ('pending','processed','someday','deleted')),
		processed_at  TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_inbox_items_account ON inbox_items(account_id, status)`,

	`CREATE TABLE IF NOT EXISTS weekly_reviews (
		account_id       TEXT NOT NULL REFERENCES accounts(id),
		week_start       TEXT NOT NULL,
		inbox_processed  INTEGER NOT NULL DEFAULT 0,
		goals_reviewed   INTEGER NOT NULL DEFAULT 0,
		someday_reviewed INTEGER NOT NULL DEFAULT 0,
		wins             TEXT NOT NULL DEFAULT '',
		learnings        TEXT NOT NULL DEFAULT '',
		plan             TEXT NOT NULL DEFAULT '',
		completed        INTEGER NOT NULL DEFAULT 0,
		completed_at     TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		PRIMARY KEY (account_id, week_start)
	)`,

	`CREATE TABLE IF NOT EXISTS monthly_assessments (
		id            TEXT PRIMARY KEY,
		account_id    TEXT NOT NULL REFERENCES accounts(id),
		year          INTEGER NOT NULL,
		month         INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
		current_day   INTEGER NOT NULL DEFAULT 1 CHECK(current_day BETWEEN 1 AND 6),
		average_score INTEGER,
		completed     INTEGER NOT NULL DEFAULT 0,
		completed_at  TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		UNIQUE (account_id, year, month)
	)`,

	`CREATE TABLE IF NOT EXISTS principle_ratings (
		assessment_id    TEXT NOT NULL REFERENCES monthly_assessments(id) ON DELETE CASCADE,
		principle_number INTEGER NOT NULL CHECK(principle_number BETWEEN 1 AND 25),
		score            INTEGER NOT NULL CHECK(score BETWEEN 1 AND 10),
		rated_on         TEXT NOT NULL,
		PRIMARY KEY (assessment_id, principle_number)
	)`,
}
