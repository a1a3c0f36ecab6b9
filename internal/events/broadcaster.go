// Package events provides the WebSocket push stream for session state.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/wakefi/wakefid/internal/domain"
)

// Event is one message on the session stream. Timers here are advisory for
// the UI; the ledger's own clock decides actual execution.
type Event struct {
	Type      string              `json:"type"`
	State     domain.SessionState `json:"state,omitempty"`
	Remaining int                 `json:"remaining,omitempty"`
	Streak    int                 `json:"streak,omitempty"`
	Amount    float64             `json:"amount,omitempty"`
}

const writeTimeout = 5 * time.Second

// Broadcaster fans session events out to the active WebSocket connections
// of an account.
type Broadcaster struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
	logger *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		active: make(map[string]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Register adds a connection for an account.
func (b *Broadcaster) Register(accountID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.active[accountID]; !ok {
		b.active[accountID] = make(map[*websocket.Conn]struct{})
	}
	b.active[accountID][conn] = struct{}{}
	b.logger.Info("Session stream registered", "account_id", accountID)
}

// Unregister removes a connection for an account.
func (b *Broadcaster) Unregister(accountID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if conns, ok := b.active[accountID]; ok {
		if _, exists := conns[conn]; exists {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(b.active, accountID)
			}
			b.logger.Info("Session stream unregistered", "account_id", accountID)
		}
	}
}

// Publish sends an event to every active connection of the account. Slow or
// dead connections are skipped, not waited on.
func (b *Broadcaster) Publish(accountID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to encode session event", "error", err)
		return
	}

	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.active[accountID]))
	for conn := range b.active[accountID] {
		conns = append(conns, conn)
	}
	b.mu.RUnlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			b.logger.Debug("Session stream write failed", "account_id", accountID, "error", err)
		}
		cancel()
	}
}

// ConnectionCount returns the number of active connections for an account.
func (b *Broadcaster) ConnectionCount(accountID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.active[accountID])
}
