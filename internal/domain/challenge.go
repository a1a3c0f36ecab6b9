package domain

// ChallengeOutcome is the grading result of a single challenge.
type ChallengeOutcome string

const (
	OutcomePending   ChallengeOutcome = "pending"
	OutcomeCorrect   ChallengeOutcome = "correct"
	OutcomeIncorrect ChallengeOutcome = "incorrect"
	OutcomeTimedOut  ChallengeOutcome = "timed_out"
)

// Resolved returns true once the outcome can no longer change.
func (o ChallengeOutcome) Resolved() bool {
	return o != OutcomePending
}

// Challenge is one timed multiple-choice knowledge proof. It exists only
// for the span of a single Ringing→Verifying cycle and is never persisted.
type Challenge struct {
	Prompt          string           `json:"prompt"`
	ArticleTitle    string           `json:"article_title"`
	ArticleSnippet  string           `json:"article_snippet"`
	ArticleSource   string           `json:"article_source"`
	ArticleURL      string           `json:"article_url,omitempty"`
	Options         []string         `json:"options"`
	CorrectIndex    int              `json:"-"`
	DeadlineSeconds int              `json:"deadline_seconds"`
	SubmittedIndex  *int             `json:"submitted_index,omitempty"`
	Outcome         ChallengeOutcome `json:"outcome"`
}
