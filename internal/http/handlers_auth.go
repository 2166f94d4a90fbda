package http

import (
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/services"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}

	account, err := s.accounts.Register(r.Context(), services.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	s.setAuthCookie(w, token)
	respondMessage(w, http.StatusCreated, "account created", map[string]any{
		"account": account,
		"token":   token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}

	account, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	s.setAuthCookie(w, token)
	respondMessage(w, http.StatusOK, "logged in", map[string]any{
		"account": account,
		"token":   token,
	})
}

// handleLogout clears the cookie. Tokens are stateless, so a bearer
// credential stays valid until it expires; clients discard it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.devMode,
	})
	respondMessage(w, http.StatusOK, "logged out", nil)
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.tokens.TTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.devMode,
	})
}
