// Package http exposes the JSON API: auth, profile, transactions,
// dashboard, insights and the admin surface.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/insights"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// Options carries everything the server needs; main wires it once.
type Options struct {
	Addr         string
	DevMode      bool
	CORSOrigins  []string
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Advisor      *insights.Advisor
	Tokens       *auth.TokenCodec
	Gate         *auth.Middleware
	Logger       *applog.Logger

	// Ready reports whether downstream dependencies answer; readyz
	// returns 503 while it errors.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	accounts     *services.AccountService
	transactions *services.TransactionService
	advisor      *insights.Advisor
	tokens       *auth.TokenCodec
	gate         *auth.Middleware
	logger       *applog.Logger
	limiter      *rateLimiter
	devMode      bool
	ready        func(ctx context.Context) error
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		accounts:     opts.Accounts,
		transactions: opts.Transactions,
		advisor:      opts.Advisor,
		tokens:       opts.Tokens,
		gate:         opts.Gate,
		logger:       opts.Logger.WithComponent(applog.ComponentHTTP),
		limiter:      newRateLimiter(20, time.Minute),
		devMode:      opts.DevMode,
		ready:        opts.Ready,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Credential endpoints are the only unauthenticated surface and the
	// only rate-limited one.
	mux.HandleFunc("POST /api/v1/auth/register", s.withRateLimit(s.handleRegister))
	mux.HandleFunc("POST /api/v1/auth/login", s.withRateLimit(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/v1/profile", s.gate.Require(s.handleGetProfile))
	mux.HandleFunc("PUT /api/v1/profile", s.gate.Require(s.handleUpdateProfile))
	mux.HandleFunc("DELETE /api/v1/profile", s.gate.Require(s.handleDeleteProfile))
	mux.HandleFunc("POST /api/v1/profile/avatar", s.gate.Require(s.handleUploadAvatar))
	mux.HandleFunc("GET /api/v1/profile/avatar", s.gate.Require(s.handleGetAvatar))

	s.registerTransactionRoutes(mux, "incomes", core.KindIncome)
	s.registerTransactionRoutes(mux, "expenses", core.KindExpense)

	mux.HandleFunc("GET /api/v1/dashboard", s.gate.Require(s.handleDashboard))

	// Advisor endpoints are POST: each call computes a fresh snapshot and
	// may spend an LLM request, so they are not cacheable reads.
	mux.HandleFunc("POST /api/v1/ai/insights", s.gate.Require(s.handleInsights))
	mux.HandleFunc("POST /api/v1/ai/tips", s.gate.Require(s.handleTips))
	mux.HandleFunc("POST /api/v1/ai/analysis", s.gate.Require(s.handleAnalysis))

	mux.HandleFunc("GET /api/v1/admin/accounts", s.gate.RequireAdmin(s.handleListAccounts))
	mux.HandleFunc("PUT /api/v1/admin/accounts/{id}/status", s.gate.RequireAdmin(s.handleSetAccountStatus))

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           c.Handler(s.withCommon(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerTransactionRoutes(mux *http.ServeMux, base string, kind core.Kind) {
	prefix := "/api/v1/" + base

	mux.HandleFunc("GET "+prefix, s.gate.Require(s.handleListTransactions(kind)))
	mux.HandleFunc("POST "+prefix, s.gate.Require(s.handleCreateTransaction(kind)))
	mux.HandleFunc("GET "+prefix+"/categories", s.gate.Require(s.handleCategories(kind)))
	mux.HandleFunc("GET "+prefix+"/report", s.gate.Require(s.handleReport(kind)))
	mux.HandleFunc("GET "+prefix+"/{id}", s.gate.Require(s.handleGetTransaction(kind)))
	mux.HandleFunc("PUT "+prefix+"/{id}", s.gate.Require(s.handleUpdateTransaction(kind)))
	mux.HandleFunc("DELETE "+prefix+"/{id}", s.gate.Require(s.handleDeleteTransaction(kind)))
}

type contextKey string

const requestIDKey contextKey = "request_id"

// withCommon adds security headers, a request ID and request logging
// around the whole API.
func (s *Server) withCommon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP(r))
	})
}

// withRateLimit throttles brute-force attempts against the credential
// endpoints.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, Envelope{
				Success: false,
				Message: "too many requests, slow down",
				Error:   "rate_limited",
			})
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// responseWriter captures the status code for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, Envelope{
				Success: false,
				Message: "not ready",
				Error:   "unavailable",
			})
			return
		}
	}
	respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the listener and the limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
