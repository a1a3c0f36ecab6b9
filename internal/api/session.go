package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wakefi/wakefid/internal/deadline"
	"github.com/wakefi/wakefid/internal/identity"
	"github.com/wakefi/wakefid/internal/ledger"
	"github.com/wakefi/wakefid/internal/scheduler"
	"github.com/wakefi/wakefid/internal/session"
)

// SessionHandler handles the commitment session endpoints.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.GetSession)
		r.Post("/session/arm", h.Arm)
		r.Post("/session/verify", h.Verify)
		r.Post("/session/answer", h.Answer)
		r.Post("/session/ack", h.Acknowledge)
		r.Get("/streak", h.GetStreak)
		r.Get("/stats", h.GetStats)
	})
}

type armRequest struct {
	Amount float64 `json:"amount"`
	// AlarmTime is "HH:MM" local wall-clock time. Empty selects the short
	// demo deadline.
	AlarmTime string `json:"alarm_time"`
}

type answerRequest struct {
	ChoiceIndex int `json:"choice_index"`
}

// GetSession returns the full session snapshot for the caller.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s := h.sessions.Get(accountID)
	s.Ring()
	JSON(w, http.StatusOK, s.Snapshot())
}

// Arm stakes an amount against an alarm deadline.
func (h *SessionHandler) Arm(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req armRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.Get(accountID)
	commitmentID := scheduler.NewCommitmentID(accountID)
	c, err := s.Arm(r.Context(), req.Amount, req.AlarmTime, commitmentID)
	if err != nil {
		h.writeSessionError(w, accountID, "arm", err)
		return
	}

	slog.Info("Commitment armed", "account_id", accountID, "commitment_id", c.ID, "amount", c.Amount, "deadline", c.Deadline)
	JSON(w, http.StatusCreated, c)
}

// Verify starts the knowledge challenge. Ringing → Verifying; the countdown
// starts when the challenge becomes visible.
func (h *SessionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s := h.sessions.Get(accountID)
	s.Ring()
	c, err := s.EnterVerification(r.Context())
	if err != nil {
		h.writeSessionError(w, accountID, "verify", err)
		return
	}

	JSON(w, http.StatusOK, c)
}

// Answer submits the challenge choice and resolves the commitment.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.Get(accountID)
	resolution, err := s.SubmitAnswer(r.Context(), req.ChoiceIndex)
	if err != nil {
		h.writeSessionError(w, accountID, "answer", err)
		return
	}

	JSON(w, http.StatusOK, resolution)
}

// Acknowledge dismisses a terminal resolution and returns the session to
// idle, ready for the next commitment.
func (h *SessionHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s := h.sessions.Get(accountID)
	if err := s.Acknowledge(); err != nil {
		h.writeSessionError(w, accountID, "ack", err)
		return
	}

	JSON(w, http.StatusOK, s.Snapshot())
}

// GetStreak returns the caller's current and best streak.
func (h *SessionHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	record, err := h.repo.GetStreak(r.Context(), accountID)
	if err != nil {
		slog.Error("Failed to read streak", "error", err, "account_id", accountID)
		Error(w, http.StatusInternalServerError, "failed to read streak")
		return
	}
	if record == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"streak": 0, "best_streak": 0, "last_win_at": nil})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"streak":      record.CurrentStreak,
		"best_streak": record.BestStreak,
		"last_win_at": record.LastWinAt,
	})
}

// GetStats returns the caller's lifetime staked and rescued totals, reduced
// from the local stake event log.
func (h *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	accountID := identity.AccountIDFromContext(r.Context())
	if accountID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	totals, err := h.repo.StakeTotals(r.Context(), accountID)
	if err != nil {
		slog.Error("Failed to reduce stake totals", "error", err, "account_id", accountID)
		Error(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	JSON(w, http.StatusOK, totals)
}

// writeSessionError maps domain errors to HTTP status codes.
func (h *SessionHandler) writeSessionError(w http.ResponseWriter, accountID, op string, err error) {
	switch {
	case errors.Is(err, scheduler.ErrInsufficientAmount),
		errors.Is(err, deadline.ErrInvalidTimeFormat):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInvalidState):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrBusy):
		Error(w, http.StatusConflict, "operation_in_progress")
	case errors.Is(err, ledger.ErrCredential):
		slog.Error("Ledger rejected operator credentials", "op", op, "account_id", accountID, "error", err)
		Error(w, http.StatusBadGateway, "ledger rejected credentials")
	case errors.Is(err, ledger.ErrUnavailable):
		slog.Error("Ledger gateway unavailable", "op", op, "account_id", accountID, "error", err)
		Error(w, http.StatusBadGateway, "ledger unavailable")
	default:
		slog.Error("Session operation failed", "op", op, "account_id", accountID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
