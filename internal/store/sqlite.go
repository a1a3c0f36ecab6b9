package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wakefi/wakefid/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS streaks (
		account_id TEXT PRIMARY KEY,
		streak INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		last_win_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS stake_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('staked', 'rescued')),
		amount REAL NOT NULL,
		commitment_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stake_events_account ON stake_events(account_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetStreak retrieves the streak record for an account.
func (s *SQLiteStore) GetStreak(ctx context.Context, accountID string) (*domain.StreakRecord, error) {
	query := `SELECT account_id, streak, best_streak, last_win_at FROM streaks WHERE account_id = ?`

	row := s.db.QueryRowContext(ctx, query, accountID)

	var record domain.StreakRecord
	var lastWinAt sql.NullInt64

	err := row.Scan(&record.AccountID, &record.CurrentStreak, &record.BestStreak, &lastWinAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan streak row: %w", err)
	}

	if lastWinAt.Valid {
		t := time.Unix(lastWinAt.Int64, 0)
		record.LastWinAt = &t
	}

	return &record, nil
}

// UpsertStreak creates or updates a streak record. The stored best_streak is
// monotonic: it only ever grows, so a reset write carrying best 0 cannot
// clobber an earlier high-water mark. last_win_at likewise survives writes
// that omit it.
func (s *SQLiteStore) UpsertStreak(ctx context.Context, record *domain.StreakRecord) error {
	query := `
	INSERT INTO streaks (account_id, streak, best_streak, last_win_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(account_id) DO UPDATE SET
		streak = excluded.streak,
		best_streak = MAX(streaks.best_streak, excluded.best_streak),
		last_win_at = COALESCE(excluded.last_win_at, streaks.last_win_at)`

	var lastWinAt interface{}
	if record.LastWinAt != nil {
		lastWinAt = record.LastWinAt.Unix()
	}

	err := withWriteRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			record.AccountID, record.CurrentStreak, record.BestStreak, lastWinAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("upsert streak: %w", err)
	}
	return nil
}

// AppendStakeEvent appends one entry to the stake event log.
func (s *SQLiteStore) AppendStakeEvent(ctx context.Context, event *domain.StakeEvent) error {
	query := `
	INSERT INTO stake_events (account_id, kind, amount, commitment_id, created_at)
	VALUES (?, ?, ?, ?, ?)`

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var result sql.Result
	err := withWriteRetry(ctx, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query,
			event.AccountID, string(event.Kind), event.Amount, event.CommitmentID, createdAt.Unix(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("append stake event: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// StakeTotals reduces the stake event log for one account.
func (s *SQLiteStore) StakeTotals(ctx context.Context, accountID string) (*domain.StakeTotals, error) {
	query := `
	SELECT
		COALESCE(SUM(CASE WHEN kind = 'staked' THEN amount ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN kind = 'rescued' THEN amount ELSE 0 END), 0)
	FROM stake_events WHERE account_id = ?`

	var totals domain.StakeTotals
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(&totals.TotalStaked, &totals.TotalRescued)
	if err != nil {
		return nil, fmt.Errorf("reduce stake events: %w", err)
	}

	return &totals, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
