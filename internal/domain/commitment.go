// Package domain contains core domain types for the WakeFi protocol.
package domain

import (
	"time"
)

// CommitmentStatus describes the lifecycle of a forfeiture obligation.
type CommitmentStatus string

const (
	// StatusArmed means the scheduled transfer exists on the ledger and will
	// self-execute at the deadline unless cancelled.
	StatusArmed CommitmentStatus = "armed"
	// StatusCancelled means the scheduled transfer was deleted before the
	// ledger executed it. The stake is safe.
	StatusCancelled CommitmentStatus = "cancelled"
	// StatusForfeited means the ledger executed the transfer. Forfeiture is
	// never observed directly; it is inferred from a failed cancellation.
	StatusForfeited CommitmentStatus = "forfeited"
)

// Commitment represents one armed forfeiture obligation: a time-locked
// transfer of the stake to the sink account, cancellable until the ledger
// executes it.
type Commitment struct {
	ID           string           `json:"id"`
	OwnerAccount string           `json:"owner_account"`
	Amount       float64          `json:"amount"`
	ArmedAt      time.Time        `json:"armed_at"`
	Deadline     time.Time        `json:"deadline"`
	LedgerRef    string           `json:"ledger_ref,omitempty"`
	Status       CommitmentStatus `json:"status"`
}

// Active returns true while the obligation can still be cancelled.
func (c *Commitment) Active() bool {
	return c.Status == StatusArmed
}

// Remaining returns the time until the ledger executes the obligation,
// or 0 if the deadline has passed. Advisory only: the ledger's own clock
// decides the actual execution.
func (c *Commitment) Remaining(now time.Time) time.Duration {
	d := c.Deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
