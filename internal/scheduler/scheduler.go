// Package scheduler creates and cancels time-locked forfeiture obligations.
// It is the only package that moves value.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wakefi/wakefid/internal/deadline"
	"github.com/wakefi/wakefid/internal/domain"
	"github.com/wakefi/wakefid/internal/ledger"
)

// ErrInsufficientAmount is returned when the stake is below the minimum.
// The check happens before any network call; no partial obligation is ever
// created for an invalid amount.
var ErrInsufficientAmount = errors.New("stake below minimum")

// DemoDelay is the forfeiture delay used when no alarm time is given:
// the obligation self-executes two minutes from now. Kept from the original
// demo flow so the protocol can be exercised without waiting overnight.
const DemoDelay = 2 * time.Minute

// Scheduler arms and cancels commitments against the schedule gateway.
type Scheduler struct {
	client      ledger.Client
	sinkAccount string
	minStake    float64
	grace       time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// New creates a Scheduler.
func New(client ledger.Client, sinkAccount string, minStake float64, grace time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		client:      client,
		sinkAccount: sinkAccount,
		minStake:    minStake,
		grace:       grace,
		now:         time.Now,
		logger:      logger,
	}
}

// NewCommitmentID builds a caller-chosen commitment identifier. It is used
// only for memo correlation on the ledger, never for lookup.
func NewCommitmentID(ownerAccount string) string {
	return ownerAccount + "-" + uuid.NewString()
}

// Arm validates the stake, computes the deadline and registers exactly one
// scheduled transfer with the gateway. On success the returned commitment is
// Armed: the transfer has not happened, it is scheduled to happen at the
// deadline unless cancelled.
//
// An empty alarmTime selects the demo path: forfeiture DemoDelay from now.
func (s *Scheduler) Arm(ctx context.Context, ownerAccount string, amount float64, alarmTime, commitmentID string) (*domain.Commitment, error) {
	if amount < s.minStake {
		return nil, fmt.Errorf("%w: %.4f < %.4f", ErrInsufficientAmount, amount, s.minStake)
	}

	now := s.now()
	var armAt, forfeitAt time.Time
	if alarmTime == "" {
		armAt = now
		forfeitAt = now.Add(DemoDelay)
	} else {
		var err error
		armAt, forfeitAt, err = deadline.Compute(alarmTime, s.grace, now)
		if err != nil {
			return nil, err
		}
	}

	ref, err := s.client.CreateScheduledTransfer(ctx, ledger.ScheduledTransfer{
		FromAccount: ownerAccount,
		ToAccount:   s.sinkAccount,
		Amount:      amount,
		ExecuteAt:   forfeitAt,
		Memo:        "wakefi alarm:" + commitmentID,
	})
	if err != nil {
		return nil, fmt.Errorf("arm commitment %s: %w", commitmentID, err)
	}

	s.logger.Info("Commitment armed",
		"commitment_id", commitmentID,
		"owner", ownerAccount,
		"amount", amount,
		"arm_at", armAt,
		"deadline", forfeitAt,
		"ledger_ref", ref)

	return &domain.Commitment{
		ID:           commitmentID,
		OwnerAccount: ownerAccount,
		Amount:       amount,
		ArmedAt:      armAt,
		Deadline:     forfeitAt,
		LedgerRef:    ref,
		Status:       domain.StatusArmed,
	}, nil
}

// Cancel submits exactly one delete for the scheduled transfer. The gateway
// adjudicates the race against its own deadline: elapsed local time is never
// used to guess the outcome, and an ambiguous failure is surfaced untouched
// rather than retried. A blind retry could swallow an already-executed
// verdict behind a later "not found".
func (s *Scheduler) Cancel(ctx context.Context, ledgerRef string) error {
	if err := s.client.DeleteScheduledTransfer(ctx, ledgerRef); err != nil {
		s.logger.Warn("Commitment cancel failed", "ledger_ref", ledgerRef, "error", err)
		return fmt.Errorf("cancel schedule %s: %w", ledgerRef, err)
	}

	s.logger.Info("Commitment cancelled, stake rescued", "ledger_ref", ledgerRef)
	return nil
}
