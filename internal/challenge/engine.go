package challenge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wakefi/wakefid/internal/domain"
)

// Engine drives the challenge state machine:
// Loading → Ready → Answered{Correct|Incorrect} | Expired.
//
// One countdown runs per issued challenge, owned by a generation-checked
// timer: issuing a new challenge or submitting an answer invalidates the old
// generation, so a stale tick can never fire into a state that already moved
// on.
type Engine struct {
	provider Provider
	seconds  int
	logger   *slog.Logger

	// TickInterval is the countdown resolution, one second unless overridden.
	TickInterval time.Duration
	// OnTick, if set, is called with the remaining seconds after each tick.
	OnTick func(remaining int)
	// OnExpire, if set, is called once when the countdown reaches zero
	// before an answer was submitted.
	OnExpire func(*domain.Challenge)

	// tickMu serializes countdown delivery with Submit, Issue and Discard:
	// once any of those returns, no further OnTick call can be observed.
	tickMu sync.Mutex

	mu         sync.Mutex
	current    *domain.Challenge
	remaining  int
	generation uint64
	stop       chan struct{}
}

// NewEngine creates a challenge engine with the given countdown budget.
func NewEngine(provider Provider, seconds int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider: provider,
		seconds:  seconds,
		logger:   logger,
	}
}

// Issue fetches content and returns a Ready challenge with the countdown
// already running. The countdown budget starts now, at visibility, not when
// the fetch began. Provider failure falls back to the built-in challenge:
// Ready must always be reachable.
func (e *Engine) Issue(ctx context.Context) *domain.Challenge {
	content, err := e.provider.Fetch(ctx)
	if err != nil {
		e.logger.Warn("Content provider failed, using fallback challenge", "error", err)
		content = FallbackContent()
	}

	c := &domain.Challenge{
		Prompt:          content.Prompt,
		ArticleTitle:    content.Title,
		ArticleSnippet:  content.Snippet,
		ArticleSource:   content.Source,
		ArticleURL:      content.URL,
		Options:         content.Options,
		CorrectIndex:    content.CorrectIndex,
		DeadlineSeconds: e.seconds,
		Outcome:         domain.OutcomePending,
	}

	e.tickMu.Lock()
	e.mu.Lock()
	e.stopTimerLocked()
	e.current = c
	e.remaining = e.seconds
	e.generation++
	gen := e.generation
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()
	e.tickMu.Unlock()

	go e.runCountdown(gen, stop)

	e.logger.Info("Challenge issued", "source", content.Source, "countdown_seconds", e.seconds)
	return c
}

// Submit grades a choice exactly once. A second submit on an answered or
// expired challenge is a no-op returning the existing outcome; it can never
// double-count against the streak.
func (e *Engine) Submit(choiceIndex int) *domain.Challenge {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.current
	if c == nil {
		return nil
	}
	if c.Outcome.Resolved() {
		return c
	}

	e.stopTimerLocked()

	idx := choiceIndex
	c.SubmittedIndex = &idx
	if choiceIndex == c.CorrectIndex {
		c.Outcome = domain.OutcomeCorrect
	} else {
		c.Outcome = domain.OutcomeIncorrect
	}

	e.logger.Info("Challenge answered", "choice", choiceIndex, "outcome", c.Outcome)
	return c
}

// Current returns the active challenge, or nil outside a verification cycle.
func (e *Engine) Current() *domain.Challenge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Remaining returns the seconds left on the countdown.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Discard stops the countdown and drops the current challenge. Called when
// the session leaves Verifying.
func (e *Engine) Discard() {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	e.current = nil
	e.remaining = 0
}

// stopTimerLocked invalidates the running countdown. Callers hold e.mu.
func (e *Engine) stopTimerLocked() {
	e.generation++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) runCountdown(gen uint64, stop chan struct{}) {
	interval := e.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			expired, remaining, c := e.tick(gen)
			if c == nil {
				return
			}
			if expired {
				if e.OnExpire != nil {
					e.OnExpire(c)
				}
				return
			}
			e.deliverTick(gen, remaining)
		}
	}
}

// tick decrements the countdown for the given generation. Returns the
// challenge when the tick was applied, nil when the generation is stale,
// and expired == true exactly once at zero.
func (e *Engine) tick(gen uint64) (expired bool, remaining int, c *domain.Challenge) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || e.current == nil || e.current.Outcome.Resolved() {
		return false, 0, nil
	}

	e.remaining--
	remaining = e.remaining
	c = e.current

	if remaining > 0 {
		return false, remaining, c
	}

	// Countdown hit zero: expiry grades like a wrong answer downstream,
	// distinguished only by the absent SubmittedIndex.
	c.Outcome = domain.OutcomeTimedOut
	e.stopTimerLocked()
	e.logger.Info("Challenge expired with no submission")
	return true, 0, c
}

// deliverTick invokes OnTick for a still-current generation. tickMu makes
// the staleness check and the callback atomic against Submit, Issue and
// Discard, so no countdown event trails the transition that resolved or
// replaced its challenge.
func (e *Engine) deliverTick(gen uint64, remaining int) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	stale := gen != e.generation
	onTick := e.OnTick
	e.mu.Unlock()

	if stale || onTick == nil {
		return
	}
	onTick(remaining)
}
