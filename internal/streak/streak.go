// Package streak owns the consecutive-win counter protocol against the
// durable store.
package streak

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wakefi/wakefid/internal/domain"
	"github.com/wakefi/wakefid/internal/store"
)

// Counter wraps the repository with the read-then-upsert streak protocol.
//
// The win path is read-then-write and therefore last-writer-wins under
// concurrent sessions for the same account. A single account is expected to
// drive at most one active session at a time; supporting more would require
// a conditional upsert at the store boundary.
type Counter struct {
	repo   store.Repository
	now    func() time.Time
	logger *slog.Logger
}

// NewCounter creates a streak counter backed by the repository.
func NewCounter(repo store.Repository, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{repo: repo, now: time.Now, logger: logger}
}

// Read returns the current streak, 0 when the account has never won.
// Absence is not an error.
func (c *Counter) Read(ctx context.Context, accountID string) (int, error) {
	record, err := c.repo.GetStreak(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("read streak for %s: %w", accountID, err)
	}
	if record == nil {
		return 0, nil
	}
	return record.CurrentStreak, nil
}

// RecordWin increments the streak by exactly one: fetch current, write
// current+1 with an updated lastWinAt and bestStreak. The record is created
// lazily on the first win.
func (c *Counter) RecordWin(ctx context.Context, accountID string) (*domain.StreakRecord, error) {
	record, err := c.repo.GetStreak(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read streak for %s: %w", accountID, err)
	}
	if record == nil {
		record = &domain.StreakRecord{AccountID: accountID}
	}

	record.CurrentStreak++
	if record.CurrentStreak > record.BestStreak {
		record.BestStreak = record.CurrentStreak
	}
	winAt := c.now()
	record.LastWinAt = &winAt

	if err := c.repo.UpsertStreak(ctx, record); err != nil {
		return nil, fmt.Errorf("record win for %s: %w", accountID, err)
	}

	c.logger.Info("Streak incremented",
		"account_id", accountID,
		"streak", record.CurrentStreak,
		"best", record.BestStreak)
	return record, nil
}

// RecordLoss resets the streak to 0 with a single unconditional upsert.
// No prior read: failure resets regardless of the stored value. The store's
// monotonic best_streak keeps the high-water mark intact.
func (c *Counter) RecordLoss(ctx context.Context, accountID string) (int, error) {
	record := &domain.StreakRecord{AccountID: accountID}
	if err := c.repo.UpsertStreak(ctx, record); err != nil {
		return 0, fmt.Errorf("record loss for %s: %w", accountID, err)
	}

	c.logger.Info("Streak reset", "account_id", accountID)
	return 0, nil
}
