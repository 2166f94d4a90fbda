package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// CookieName is the fallback credential location when no bearer header is
// present.
const CookieName = "fintrack_token"

// Machine-distinguishable unauthorized reasons, returned in the envelope's
// error field.
const (
	ReasonMissingCredentials = "missing_credentials"
	ReasonInvalidToken       = "invalid_token"
	ReasonExpiredToken       = "expired_token"
	ReasonAccountNotFound    = "account_not_found"
	ReasonAccountSuspended   = "account_suspended"
)

// AccountLoader loads the account referenced by a verified token. The
// returned projection must not include the password hash. A missing
// account is reported as core.ErrNotFound.
type AccountLoader interface {
	GetAccountByID(ctx context.Context, id string) (core.Account, error)
}

// Middleware is the authentication gate placed in front of account-scoped
// handlers.
type Middleware struct {
	codec    *TokenCodec
	accounts AccountLoader
}

// NewMiddleware builds the gate from a codec and an account loader.
func NewMiddleware(codec *TokenCodec, accounts AccountLoader) *Middleware {
	return &Middleware{codec: codec, accounts: accounts}
}

type contextKey string

const accountContextKey contextKey = "account"

// WithAccount attaches an authenticated account to the context.
func WithAccount(ctx context.Context, account core.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFrom extracts the authenticated account from the context.
func AccountFrom(ctx context.Context) (core.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(core.Account)
	return account, ok
}

// extractToken locates the credential: bearer header first, cookie second.
func extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token, true
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// resolve runs the full gate sequence and returns the account, a
// rejection reason, or a loader error that is not the caller's fault.
func (m *Middleware) resolve(r *http.Request) (core.Account, string, error) {
	token, ok := extractToken(r)
	if !ok {
		return core.Account{}, ReasonMissingCredentials, nil
	}

	accountID, err := m.codec.Verify(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return core.Account{}, ReasonExpiredToken, nil
		}
		return core.Account{}, ReasonInvalidToken, nil
	}

	account, err := m.accounts.GetAccountByID(r.Context(), accountID)
	if errors.Is(err, core.ErrNotFound) {
		// A valid token referencing a deleted account is stale, not an
		// internal failure.
		return core.Account{}, ReasonAccountNotFound, nil
	}
	if err != nil {
		return core.Account{}, "", err
	}
	if account.Suspended() {
		return core.Account{}, ReasonAccountSuspended, nil
	}
	return account, "", nil
}

// Require rejects the request unless a valid credential resolves to an
// active account, which is then attached to the request context.
func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, reason, err := m.resolve(r)
		if err != nil {
			slog.ErrorContext(r.Context(), "Account lookup failed", "error", err)
			writeInternal(w)
			return
		}
		if reason != "" {
			writeUnauthorized(w, reason)
			return
		}
		next(w, r.WithContext(WithAccount(r.Context(), account)))
	}
}

// Optional runs the same gate but never rejects: on any failure the
// request proceeds without an attached account, so handlers can behave
// differently for anonymous callers.
func (m *Middleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if account, reason, err := m.resolve(r); err == nil && reason == "" {
			r = r.WithContext(WithAccount(r.Context(), account))
		}
		next(w, r)
	}
}

// RequireAdmin layers on Require and additionally demands the admin role.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.Require(func(w http.ResponseWriter, r *http.Request) {
		account, _ := AccountFrom(r.Context())
		if account.Role != core.RoleAdmin {
			writeForbidden(w)
			return
		}
		next(w, r)
	})
}

// The gate writes its own envelope rather than importing the handler
// package, keeping auth free of an import cycle.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeUnauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: "authentication required",
		Error:   reason,
	})
}

func writeInternal(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: "internal server error",
		Error:   "internal",
	})
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: "admin role required",
		Error:   "forbidden",
	})
}
