package domain

// SessionState is the top-level protocol state for one account's session.
type SessionState string

const (
	// StateIdle: no commitment outstanding.
	StateIdle SessionState = "idle"
	// StateArmed: commitment created, waiting for the alarm time.
	StateArmed SessionState = "armed"
	// StateRinging: local clock reached the alarm time; challenge not yet issued.
	StateRinging SessionState = "ringing"
	// StateVerifying: challenge issued, countdown running.
	StateVerifying SessionState = "verifying"
	// StateRescued: correct answer and the cancellation won the race.
	StateRescued SessionState = "rescued"
	// StateBurned: wrong answer or challenge expiry; no cancellation attempted.
	StateBurned SessionState = "burned"
	// StateForfeited: correct answer but the ledger executed the transfer
	// first. Distinct from Rescued and Burned so the loss is never hidden.
	StateForfeited SessionState = "forfeited"
)

// Terminal returns true for states that end a commitment lifecycle and
// wait for acknowledgement.
func (s SessionState) Terminal() bool {
	return s == StateRescued || s == StateBurned || s == StateForfeited
}

// Resolution is returned to the UI layer after a challenge submission
// resolves the session.
type Resolution struct {
	State     SessionState     `json:"state"`
	Outcome   ChallengeOutcome `json:"outcome"`
	Streak    int              `json:"streak"`
	Milestone bool             `json:"milestone"`
	Amount    float64          `json:"amount"`
}
