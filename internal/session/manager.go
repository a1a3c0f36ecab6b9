package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wakefi/wakefid/internal/challenge"
	"github.com/wakefi/wakefid/internal/store"
)

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Scheduler        Armer
	Streaks          StreakRecorder
	Provider         challenge.Provider
	Repo             store.Repository
	Publisher        Publisher
	ChallengeSeconds int
	// TickInterval overrides the one-second challenge countdown resolution;
	// used by tests.
	TickInterval time.Duration
	Logger       *slog.Logger
}

// Manager owns one Session per account, created lazily.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for an account, creating it on first use.
func (m *Manager) Get(accountID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[accountID]
	if !ok {
		s = newSession(accountID, m.deps)
		m.sessions[accountID] = s
	}
	return s
}

// all returns a snapshot of every session; Ring itself decides which are
// due.
func (m *Manager) all() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// StartRingWatcher runs a background goroutine that flips Armed sessions to
// Ringing when the local clock reaches their alarm time. Purely advisory:
// the ledger executes the forfeiture on its own schedule whether or not this
// watcher (or the whole process) is alive.
func (m *Manager) StartRingWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		m.deps.Logger.Info("Ring watcher started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				for _, s := range m.all() {
					s.Ring()
				}
			case <-ctx.Done():
				m.deps.Logger.Info("Ring watcher shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
