package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

type stubLoader struct {
	accounts map[string]core.Account
	err      error
}

func (s *stubLoader) GetAccountByID(_ context.Context, id string) (core.Account, error) {
	if s.err != nil {
		return core.Account{}, s.err
	}
	account, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return account, nil
}

func newTestGate(t *testing.T) (*Middleware, *TokenCodec, *stubLoader) {
	t.Helper()
	codec := NewTokenCodec(testSecret, time.Hour)
	loader := &stubLoader{accounts: map[string]core.Account{
		"u1": {ID: "u1", Email: "ada@example.com", Status: core.StatusActive, Role: core.RoleStandard},
		"u2": {ID: "u2", Email: "sus@example.com", Status: core.StatusSuspended, Role: core.RoleStandard},
		"adm": {ID: "adm", Email: "root@example.com", Status: core.StatusActive, Role: core.RoleAdmin},
	}}
	return NewMiddleware(codec, loader), codec, loader
}

func gateReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func TestRequireAttachesAccount(t *testing.T) {
	gate, codec, _ := newTestGate(t)
	token, err := codec.Issue("u1")
	require.NoError(t, err)

	var got core.Account
	handler := gate.Require(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AccountFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", got.ID)
	assert.Empty(t, got.PasswordHash)
}

func TestRequireCookieFallback(t *testing.T) {
	gate, codec, _ := newTestGate(t)
	token, err := codec.Issue("u1")
	require.NoError(t, err)

	handler := gate.Require(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRejections(t *testing.T) {
	gate, codec, _ := newTestGate(t)
	handler := gate.Require(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	t.Run("missing credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ReasonMissingCredentials, gateReason(t, rec))
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ReasonInvalidToken, gateReason(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		expired := NewTokenCodec(testSecret, time.Hour).WithClock(func() time.Time { return past })
		token, err := expired.Issue("u1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ReasonExpiredToken, gateReason(t, rec))
	})

	t.Run("stale token for deleted account", func(t *testing.T) {
		token, err := codec.Issue("ghost")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ReasonAccountNotFound, gateReason(t, rec))
	})

	t.Run("suspended account", func(t *testing.T) {
		token, err := codec.Issue("u2")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, ReasonAccountSuspended, gateReason(t, rec))
	})
}

func TestRequireLoaderFailureIsInternal(t *testing.T) {
	gate, codec, loader := newTestGate(t)
	loader.err = errors.New("database is locked")

	handler := gate.Require(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	token, err := codec.Issue("u1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	// A broken loader is a server fault, not a stale credential
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", gateReason(t, rec))
}

func TestOptionalNeverRejects(t *testing.T) {
	gate, codec, _ := newTestGate(t)

	var attached bool
	handler := gate.Optional(func(w http.ResponseWriter, r *http.Request) {
		_, attached = AccountFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous proceeds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, attached)
	})

	t.Run("bad token proceeds anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, attached)
	})

	t.Run("valid token attaches", func(t *testing.T) {
		token, err := codec.Issue("u1")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, attached)
	})
}

func TestRequireAdmin(t *testing.T) {
	gate, codec, _ := newTestGate(t)
	handler := gate.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("standard role forbidden", func(t *testing.T) {
		token, err := codec.Issue("u1")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin allowed", func(t *testing.T) {
		token, err := codec.Issue("adm")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
