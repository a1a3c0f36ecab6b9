package domain

import (
	"time"
)

// StreakRecord holds the consecutive-win counter for one owner account.
// Records are created lazily on the first win and never deleted.
type StreakRecord struct {
	AccountID     string     `json:"account_id"`
	CurrentStreak int        `json:"current_streak"`
	BestStreak    int        `json:"best_streak"`
	LastWinAt     *time.Time `json:"last_win_at,omitempty"`
}

// MilestoneInterval is the streak length that unlocks a milestone reward.
const MilestoneInterval = 7

// AtMilestone returns true when the current streak sits exactly on a
// milestone boundary.
func (r *StreakRecord) AtMilestone() bool {
	return r.CurrentStreak > 0 && r.CurrentStreak%MilestoneInterval == 0
}
