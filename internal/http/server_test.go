package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/insights"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const testAdminEmail = "admin@example.com"

type fixture struct {
	srv  *httptest.Server
	repo *storage.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	txs := services.NewTransactionService(repo, nil, nil, nil)
	accounts := services.NewAccountService(repo, services.NewMemoryAssetStore(), txs,
		services.WelcomePolicy{AdminEmail: testAdminEmail})

	tokens := auth.NewTokenCodec("test-secret-at-least-16", time.Hour)
	gate := auth.NewMiddleware(tokens, repo)

	server := NewServer(Options{
		Addr:         ":0",
		DevMode:      true,
		CORSOrigins:  []string{"*"},
		Accounts:     accounts,
		Transactions: txs,
		Advisor:      insights.NewAdvisor("", "", time.Second),
		Tokens:       tokens,
		Gate:         gate,
		Logger:       applog.New(applog.DefaultConfig()),
		Ready:        func(context.Context) error { return nil },
	})
	t.Cleanup(func() { server.Shutdown(context.Background()) })

	ts := httptest.NewServer(server.Server.Handler)
	t.Cleanup(ts.Close)

	return &fixture{srv: ts, repo: repo}
}

// call sends a JSON request and decodes the envelope.
func (f *fixture) call(t *testing.T, method, path, token string, body any) (int, Envelope) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// raw sends a request and returns the response without decoding.
func (f *fixture) raw(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// register creates an account and returns its token.
func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	status, env := f.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     email,
		"password":  "correcthorse",
		"firstName": "Ada",
	})
	require.Equal(t, http.StatusCreated, status)
	data := env.Data.(map[string]any)
	return data["token"].(string)
}

// dataMap unwraps env.Data as an object.
func dataMap(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	require.True(t, ok, "expected object data, got %T", env.Data)
	return m
}
