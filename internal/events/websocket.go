package events

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/wakefi/wakefid/internal/identity"
)

// WebSocketHandler upgrades /ws/session requests onto the session stream.
type WebSocketHandler struct {
	broadcaster   *Broadcaster
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a session stream handler.
func NewWebSocketHandler(broadcaster *Broadcaster, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		broadcaster:   broadcaster,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "account_id", accountID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "account_id", accountID)
		}
	}()

	h.broadcaster.Register(accountID, ws)
	defer h.broadcaster.Unregister(accountID, ws)

	// The stream is push-only; the read loop just watches for the client
	// going away.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev || h.allowedOrigin == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || strings.HasPrefix(origin, h.allowedOrigin)
}
