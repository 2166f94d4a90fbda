package http

import (
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

// transactionRequest is the write shape shared by incomes and expenses.
// Dates come as "2006-01-02"; amounts as a decimal number or string.
type transactionRequest struct {
	Title       string     `json:"title"`
	Icon        string     `json:"icon"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) handleCreateTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _ := auth.AccountFrom(r.Context())

		var req transactionRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "malformed JSON body")
			return
		}

		var date time.Time
		if req.Date != "" {
			var err error
			if date, err = parseDate(req.Date); err != nil {
				ve := &core.ValidationError{}
				ve.Add("date", "must be formatted as YYYY-MM-DD")
				writeError(r.Context(), w, ve.Err(), s.devMode)
				return
			}
		}

		created, err := s.transactions.Create(r.Context(), account.ID, kind, services.CreateParams{
			Title:       req.Title,
			Icon:        req.Icon,
			Amount:      req.Amount,
			Category:    req.Category,
			Date:        date,
			Description: req.Description,
		})
		if err != nil {
			writeError(r.Context(), w, err, s.devMode)
			return
		}
		respondMessage(w, http.StatusCreated, string(kind)+" recorded", created)
	}
}

func (s *Server) handleListTransactions(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _ := auth.AccountFrom(r.Context())

		txs, err := s.transactions.List(r.Context(), account.ID, kind)
		if err != nil {
			writeError(r.Context(), w, err, s.devMode)
			return
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
		respond(w, http.StatusOK, txs)
	}
}

func (s *Server) handleGetTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _ := auth.AccountFrom(r.Context())

		t, err := s.transactions.Get(r.Context(), account.ID, kind, r.PathValue("id"))
		if err != nil {
			writeError(r.Context(), w, err, s.devMode)
			return
		}
		respond(w, http.StatusOK, t)
	}
}

// updateTransactionRequest distinguishes absent fields from zero ones
// with pointers, so a partial update never clobbers what it omits.
type updateTransactionRequest struct {
	Title       *string     `json:"title"`
	Icon        *string     `json:"icon"`
	Amount      *core.Money `json:"amount"`
	Category    *string     `json:"category"`
	Date        *string     `json:"date"`
	Description *string     `json:"description"`
}

func (s *Server) handleUpdateTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _ := auth.AccountFrom(r.Context())

		var req updateTransactionRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(w, "malformed JSON body")
			return
		}

		params := services.UpdateParams{
			Title:       req.Title,
			Icon:        req.Icon,
			Amount:      req.Amount,
			Category:    req.Category,
			Description: req.Description,
		}
		if req.Date != nil {
			date, err := parseDate(*req.Date)
			if err != nil {
				ve := &core.ValidationError{}
				ve.Add("date", "must be formatted as YYYY-MM-DD")
				writeError(r.Context(), w, ve.Err(), s.devMode)
				return
			}
			params.Date = &date
		}

		updated, err := s.transactions.Update(r.Context(), account.ID, kind, r.PathValue("id"), params)
		if err != nil {
			writeError(r.Context(), w, err, s.devMode)
			return
		}
		respondMessage(w, http.StatusOK, string(kind)+" updated", updated)
	}
}

func (s *Server) handleDeleteTransaction(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _ := auth.AccountFrom(r.Context())

		if err := s.transactions.Delete(r.Context(), account.ID, kind, r.PathValue("id")); err != nil {
			writeError(r.Context(), w, err, s.devMode)
			return
		}
		respondMessage(w, http.StatusOK, string(kind)+" deleted", nil)
	}
}

func (s *Server) handleCategories(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, s.transactions.Categories(kind))
	}
}

func (s *Server) handleReport(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _ := auth.AccountFrom(r.Context())

		report, err := s.transactions.ExportReport(r.Context(), account.ID, kind)
		if err != nil {
			writeError(r.Context(), w, err, s.devMode)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+string(kind)+`-report.txt"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report))
	}
}
