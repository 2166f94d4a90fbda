package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListAccounts(r.Context())
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	respond(w, http.StatusOK, accounts)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}

	account, err := s.accounts.SetAccountStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	respondMessage(w, http.StatusOK, "account status updated", account)
}
