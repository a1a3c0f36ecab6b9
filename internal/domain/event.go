package domain

import (
	"time"
)

// StakeEventKind classifies entries in the append-only stake event log.
type StakeEventKind string

const (
	// EventStaked is appended once when a commitment is armed.
	EventStaked StakeEventKind = "staked"
	// EventRescued is appended once when a cancellation succeeds.
	EventRescued StakeEventKind = "rescued"
)

// StakeEvent is one entry in the local audit trail. The log is reduced on
// read to produce aggregate totals; it is not authoritative for ledger state.
type StakeEvent struct {
	ID           int64          `json:"id"`
	AccountID    string         `json:"account_id"`
	Kind         StakeEventKind `json:"kind"`
	Amount       float64        `json:"amount"`
	CommitmentID string         `json:"commitment_id"`
	CreatedAt    time.Time      `json:"created_at"`
}

// StakeTotals is the reduction of the stake event log for one account.
// Both fields are monotonically non-decreasing.
type StakeTotals struct {
	TotalStaked  float64 `json:"total_staked"`
	TotalRescued float64 `json:"total_rescued"`
}
