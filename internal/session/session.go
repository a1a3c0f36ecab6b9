// Package session composes the scheduler, challenge engine and streak
// counter into the end-to-end commitment state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wakefi/wakefid/internal/challenge"
	"github.com/wakefi/wakefid/internal/domain"
	"github.com/wakefi/wakefid/internal/events"
	"github.com/wakefi/wakefid/internal/ledger"
	"github.com/wakefi/wakefid/internal/store"
)

var (
	// ErrInvalidState is returned when an operation is not legal in the
	// session's current state.
	ErrInvalidState = errors.New("operation not valid in current session state")
	// ErrBusy is returned while another network operation is in flight.
	// One outstanding operation per session, always.
	ErrBusy = errors.New("session operation already in flight")
)

// Armer is the commitment scheduler surface the session needs.
type Armer interface {
	Arm(ctx context.Context, ownerAccount string, amount float64, alarmTime, commitmentID string) (*domain.Commitment, error)
	Cancel(ctx context.Context, ledgerRef string) error
}

// StreakRecorder is the streak counter surface the session needs.
type StreakRecorder interface {
	Read(ctx context.Context, accountID string) (int, error)
	RecordWin(ctx context.Context, accountID string) (*domain.StreakRecord, error)
	RecordLoss(ctx context.Context, accountID string) (int, error)
}

// Publisher pushes session events to the UI stream.
type Publisher interface {
	Publish(accountID string, event events.Event)
}

// Snapshot is the read-only view of a session handed to the UI layer.
type Snapshot struct {
	State      domain.SessionState `json:"state"`
	Commitment *domain.Commitment  `json:"commitment,omitempty"`
	Challenge  *domain.Challenge   `json:"challenge,omitempty"`
	Remaining  int                 `json:"remaining,omitempty"`
	Resolution *domain.Resolution  `json:"resolution,omitempty"`
}

// Session is the cooperative state machine for one account:
// Idle → Armed → Ringing → Verifying → {Rescued | Burned | Forfeited} → Idle.
//
// The mutex guards state words only; every network call (arm, cancel,
// content fetch) happens outside it with the busy flag held, so countdown
// ticks and deadline observation stay live while a cancel is in flight.
type Session struct {
	accountID string
	scheduler Armer
	streaks   StreakRecorder
	engine    *challenge.Engine
	repo      store.Repository
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	state      domain.SessionState
	busy       bool
	commitment *domain.Commitment
	resolution *domain.Resolution
}

func newSession(accountID string, d Deps) *Session {
	s := &Session{
		accountID: accountID,
		scheduler: d.Scheduler,
		streaks:   d.Streaks,
		engine:    challenge.NewEngine(d.Provider, d.ChallengeSeconds, d.Logger),
		repo:      d.Repo,
		publisher: d.Publisher,
		logger:    d.Logger,
		now:       time.Now,
		state:     domain.StateIdle,
	}
	s.engine.TickInterval = d.TickInterval
	s.engine.OnExpire = s.handleExpiry
	s.engine.OnTick = s.handleTick
	return s
}

// State returns the current session state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the full UI view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:      s.state,
		Commitment: s.commitment,
		Challenge:  s.engine.Current(),
		Remaining:  s.engine.Remaining(),
		Resolution: s.resolution,
	}
}

// beginOp validates the state transition guard and claims the single
// outstanding-operation slot.
func (s *Session) beginOp(from domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	if s.state != from {
		return fmt.Errorf("%w: %s", ErrInvalidState, s.state)
	}
	s.busy = true
	return nil
}

func (s *Session) endOp() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Arm creates the commitment. Idle → Armed. The staked amount enters the
// local event log exactly once, on success.
func (s *Session) Arm(ctx context.Context, amount float64, alarmTime, commitmentID string) (*domain.Commitment, error) {
	if err := s.beginOp(domain.StateIdle); err != nil {
		return nil, err
	}
	defer s.endOp()

	c, err := s.scheduler.Arm(ctx, s.accountID, amount, alarmTime, commitmentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.state = domain.StateArmed
	s.commitment = c
	s.resolution = nil
	s.mu.Unlock()

	s.appendEvent(ctx, domain.EventStaked, c)
	s.publish(events.Event{Type: "armed", State: domain.StateArmed, Amount: c.Amount})
	return c, nil
}

// Ring moves Armed → Ringing when the local clock reaches armAt. Advisory
// only: it never touches the ledger. Safe to call repeatedly.
func (s *Session) Ring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateArmed || s.commitment == nil {
		return false
	}
	if s.now().Before(s.commitment.ArmedAt) {
		return false
	}

	s.state = domain.StateRinging
	go s.publish(events.Event{Type: "ringing", State: domain.StateRinging, Amount: s.commitment.Amount})
	s.logger.Info("Alarm ringing", "account_id", s.accountID, "deadline", s.commitment.Deadline)
	return true
}

// EnterVerification issues the challenge. Ringing → Verifying. The countdown
// starts when the challenge becomes visible, not when the fetch began.
func (s *Session) EnterVerification(ctx context.Context) (*domain.Challenge, error) {
	if err := s.beginOp(domain.StateRinging); err != nil {
		// Re-entering verification returns the live challenge instead of
		// issuing a second one.
		s.mu.Lock()
		if s.state == domain.StateVerifying {
			c := s.engine.Current()
			s.mu.Unlock()
			return c, nil
		}
		s.mu.Unlock()
		return nil, err
	}
	defer s.endOp()

	c := s.engine.Issue(ctx)

	s.mu.Lock()
	s.state = domain.StateVerifying
	s.mu.Unlock()

	s.publish(events.Event{Type: "verifying", State: domain.StateVerifying, Remaining: c.DeadlineSeconds})
	return c, nil
}

// SubmitAnswer grades the choice and resolves the session.
//
// Correct: race the cancellation against the ledger deadline. Success is
// Rescued; ErrAlreadyExecuted is the distinct Forfeited terminal (funds lost
// despite correct proof), never reported as Rescued. An ambiguous gateway
// failure leaves the session in Verifying — the graded challenge is
// idempotent, so the caller may submit again to drive one more cancel
// attempt; nothing retries on its own.
//
// Incorrect or expired: Burned, streak reset, no cancellation attempted.
func (s *Session) SubmitAnswer(ctx context.Context, choiceIndex int) (*domain.Resolution, error) {
	if err := s.beginOp(domain.StateVerifying); err != nil {
		return nil, err
	}
	defer s.endOp()

	c := s.engine.Submit(choiceIndex)
	if c == nil {
		return nil, fmt.Errorf("%w: no active challenge", ErrInvalidState)
	}

	switch c.Outcome {
	case domain.OutcomeCorrect:
		return s.resolveCorrect(ctx, c)
	default:
		return s.resolveLoss(ctx, c.Outcome), nil
	}
}

func (s *Session) resolveCorrect(ctx context.Context, c *domain.Challenge) (*domain.Resolution, error) {
	s.mu.Lock()
	commitment := s.commitment
	s.mu.Unlock()
	if commitment == nil {
		return nil, fmt.Errorf("%w: no commitment to rescue", ErrInvalidState)
	}

	err := s.scheduler.Cancel(ctx, commitment.LedgerRef)
	switch {
	case err == nil, errors.Is(err, ledger.ErrAlreadyCancelled):
		// Already-cancelled means an earlier attempt landed; the stake is
		// safe either way.
	case errors.Is(err, ledger.ErrAlreadyExecuted):
		return s.resolveForfeited(c), nil
	default:
		// Remote state unknown. Stay in Verifying; the resolved challenge
		// lets the caller drive another cancel attempt.
		s.logger.Error("Cancel failed with ambiguous outcome, holding state",
			"account_id", s.accountID, "ledger_ref", commitment.LedgerRef, "error", err)
		return nil, err
	}

	record, err := s.streaks.RecordWin(ctx, s.accountID)
	if err != nil {
		return nil, fmt.Errorf("record win after rescue: %w", err)
	}

	s.mu.Lock()
	s.state = domain.StateRescued
	commitment.Status = domain.StatusCancelled
	resolution := &domain.Resolution{
		State:     domain.StateRescued,
		Outcome:   c.Outcome,
		Streak:    record.CurrentStreak,
		Milestone: record.AtMilestone(),
		Amount:    commitment.Amount,
	}
	s.resolution = resolution
	s.mu.Unlock()

	s.appendEvent(ctx, domain.EventRescued, commitment)
	s.publish(events.Event{Type: "rescued", State: domain.StateRescued, Streak: record.CurrentStreak, Amount: commitment.Amount})
	return resolution, nil
}

// resolveForfeited handles the lost race: the answer was correct but the
// ledger executed the transfer first.
func (s *Session) resolveForfeited(c *domain.Challenge) *domain.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.StateForfeited
	if s.commitment != nil {
		s.commitment.Status = domain.StatusForfeited
	}
	resolution := &domain.Resolution{
		State:   domain.StateForfeited,
		Outcome: c.Outcome,
	}
	if s.commitment != nil {
		resolution.Amount = s.commitment.Amount
	}
	s.resolution = resolution

	s.logger.Warn("Cancellation lost the race, stake forfeited despite correct proof",
		"account_id", s.accountID)
	go s.publish(events.Event{Type: "forfeited", State: domain.StateForfeited, Amount: resolution.Amount})
	return resolution
}

func (s *Session) resolveLoss(ctx context.Context, outcome domain.ChallengeOutcome) *domain.Resolution {
	// Submit and expiry can race to resolve the same challenge; the first
	// one wins and the second observes its resolution.
	s.mu.Lock()
	if s.state != domain.StateVerifying {
		resolution := s.resolution
		s.mu.Unlock()
		return resolution
	}
	s.state = domain.StateBurned
	if s.commitment != nil {
		s.commitment.Status = domain.StatusForfeited
	}
	// The resolution is written in the same critical section that claims
	// the state, so the losing resolver always reads a complete one. A loss
	// resolves to streak 0 no matter what the store says.
	resolution := &domain.Resolution{
		State:   domain.StateBurned,
		Outcome: outcome,
	}
	if s.commitment != nil {
		resolution.Amount = s.commitment.Amount
	}
	s.resolution = resolution
	s.mu.Unlock()

	if _, err := s.streaks.RecordLoss(ctx, s.accountID); err != nil {
		// The burn itself is decided by the ledger; a failed reset must not
		// block the terminal state.
		s.logger.Error("Failed to reset streak", "account_id", s.accountID, "error", err)
	}

	s.publish(events.Event{Type: "burned", State: domain.StateBurned, Amount: resolution.Amount})
	return resolution
}

// handleExpiry is wired into the engine's countdown: zero with no submission
// resolves the session as a loss.
func (s *Session) handleExpiry(c *domain.Challenge) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.resolveLoss(ctx, c.Outcome)
}

func (s *Session) handleTick(remaining int) {
	s.publish(events.Event{Type: "countdown", State: domain.StateVerifying, Remaining: remaining})
}

// Acknowledge returns a terminal session to Idle, discarding the commitment
// and the challenge.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Terminal() {
		return fmt.Errorf("%w: %s", ErrInvalidState, s.state)
	}

	s.state = domain.StateIdle
	s.commitment = nil
	s.engine.Discard()
	return nil
}

func (s *Session) appendEvent(ctx context.Context, kind domain.StakeEventKind, c *domain.Commitment) {
	if s.repo == nil {
		return
	}
	err := s.repo.AppendStakeEvent(ctx, &domain.StakeEvent{
		AccountID:    s.accountID,
		Kind:         kind,
		Amount:       c.Amount,
		CommitmentID: c.ID,
		CreatedAt:    s.now(),
	})
	if err != nil {
		// The log is a local audit trail, not the source of truth; losing an
		// entry must not roll back a ledger-side transition.
		s.logger.Error("Failed to append stake event", "account_id", s.accountID, "kind", kind, "error", err)
	}
}

func (s *Session) publish(event events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(s.accountID, event)
	}
}
