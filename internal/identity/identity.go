// Package identity resolves the opaque owner account for each request.
//
// Authentication beyond an opaque account identifier is out of scope: a
// request either names a ledger account explicitly or gets a sticky
// anonymous guest identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// AccountCookieName carries the sticky account identity.
	AccountCookieName = "wakefi_account_id"
	// AccountHeaderName lets API clients name an account per request,
	// overriding the cookie.
	AccountHeaderName = "X-Wakefi-Account"

	accountCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const accountIDKey contextKey = iota

// Account IDs are either ledger account identifiers (0.0.1234) or generated
// guest identities.
var accountIDPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+|guest_[a-f0-9]{32})$`)

// AccountIDFromContext extracts the account ID from the request context.
func AccountIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(accountIDKey).(string); ok {
		return v
	}
	return ""
}

// WithAccountID returns a context carrying the account ID. Exposed for tests
// and internal wiring.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

func generateGuestID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate guest id: %w", err)
	}
	return "guest_" + hex.EncodeToString(buf), nil
}

// IsValidAccountID reports whether s is an acceptable account identifier.
func IsValidAccountID(s string) bool {
	return accountIDPattern.MatchString(s)
}

func accountFromRequest(r *http.Request) string {
	if id := r.Header.Get(AccountHeaderName); IsValidAccountID(id) {
		return id
	}
	if c, err := r.Cookie(AccountCookieName); err == nil && IsValidAccountID(c.Value) {
		return c.Value
	}
	return ""
}

func setAccountCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccountCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(accountCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(accountCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects the owner account into the request context, minting a
// guest identity when the request carries none. defaultAccount, when set
// (the configured operator account), upgrades guest sessions the way the
// original client preferred the env account over a stale guest.
func Middleware(defaultAccount string, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := accountFromRequest(r)

			switch {
			case defaultAccount != "" && (accountID == "" || strings.HasPrefix(accountID, "guest_")):
				// Prefer the configured ledger account over a stale guest.
				accountID = defaultAccount
				setAccountCookie(w, accountID, isDev)
			case accountID == "":
				id, err := generateGuestID()
				if err != nil {
					http.Error(w, `{"error":"failed to establish identity"}`, http.StatusInternalServerError)
					return
				}
				accountID = id
				setAccountCookie(w, accountID, isDev)
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}
