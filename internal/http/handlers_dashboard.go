package http

import (
	"net/http"
	"time"

	"fintrack/internal/auth"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFrom(r.Context())

	dashboard, err := s.transactions.BuildDashboard(r.Context(), account.ID, time.Now().UTC())
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	respond(w, http.StatusOK, dashboard)
}
