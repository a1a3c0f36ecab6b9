// Package ledger provides the client for the external schedule gateway.
//
// The gateway owns execution: a scheduled transfer created here will be
// carried out by the ledger's own consensus at its execution time, whether or
// not this process is still alive. This package only creates and deletes
// schedules; it never decides locally whether one has executed.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyExecuted means the ledger executed the scheduled transfer
	// before the delete arrived. Terminal: the stake is gone.
	ErrAlreadyExecuted = errors.New("scheduled transfer already executed")
	// ErrAlreadyCancelled means the schedule was already deleted.
	ErrAlreadyCancelled = errors.New("scheduled transfer already cancelled")
	// ErrUnavailable means the gateway could not be reached or answered with
	// a transient failure. The remote state is unknown.
	ErrUnavailable = errors.New("ledger gateway unavailable")
	// ErrCredential means the operator credentials are missing or were
	// rejected. Fatal; retrying cannot help.
	ErrCredential = errors.New("invalid ledger credentials")
	// ErrNotFound means the schedule reference is unknown to the gateway.
	ErrNotFound = errors.New("schedule not found")
)

// ScheduledTransfer describes a time-locked conditional transfer to create.
type ScheduledTransfer struct {
	FromAccount string
	ToAccount   string
	Amount      float64
	ExecuteAt   time.Time
	Memo        string
}

// Client is the interface to the schedule gateway.
type Client interface {
	// CreateScheduledTransfer registers a transfer that self-executes at
	// ExecuteAt unless deleted first. Returns an opaque schedule reference.
	CreateScheduledTransfer(ctx context.Context, t ScheduledTransfer) (string, error)

	// DeleteScheduledTransfer cancels a schedule by reference, authorized by
	// the operator's admin key. The gateway's answer is authoritative: if the
	// transfer already executed this returns ErrAlreadyExecuted, regardless
	// of what the local clock says.
	DeleteScheduledTransfer(ctx context.Context, ref string) error
}
