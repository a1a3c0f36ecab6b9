// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/wakefi/wakefid/internal/domain"
)

// Repository defines the interface for persisting streaks and the stake
// event log.
type Repository interface {
	// GetStreak retrieves the streak record for an account.
	// Returns nil (not an error) when the account has no record yet.
	GetStreak(ctx context.Context, accountID string) (*domain.StreakRecord, error)

	// UpsertStreak creates or updates a streak record.
	UpsertStreak(ctx context.Context, record *domain.StreakRecord) error

	// AppendStakeEvent appends one entry to the stake event log.
	// The log is append-only; entries are never updated or deleted.
	AppendStakeEvent(ctx context.Context, event *domain.StakeEvent) error

	// StakeTotals reduces the stake event log for one account.
	StakeTotals(ctx context.Context, accountID string) (*domain.StakeTotals, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
