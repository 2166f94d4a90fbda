package http

import (
	"io"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/services"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFrom(r.Context())
	respond(w, http.StatusOK, account)
}

type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFrom(r.Context())

	var req updateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}

	updated, err := s.accounts.UpdateProfile(r.Context(), account.ID, services.UpdateProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	respondMessage(w, http.StatusOK, "profile updated", updated)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFrom(r.Context())

	if err := s.accounts.DeleteAccount(r.Context(), account.ID); err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	// The session cookie is useless now; clear it.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.devMode,
	})
	respondMessage(w, http.StatusOK, "account deleted", nil)
}

func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFrom(r.Context())

	data, err := io.ReadAll(io.LimitReader(r.Body, services.MaxAvatarBytes+1))
	if err != nil {
		badRequest(w, "could not read request body")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	updated, err := s.accounts.UploadAvatar(r.Context(), account.ID, data, contentType)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	respondMessage(w, http.StatusOK, "avatar updated", updated)
}

func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFrom(r.Context())

	data, contentType, err := s.accounts.GetAvatar(r.Context(), account.ID)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
