package http

import (
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/insights"
)

func (s *Server) accountMetrics(r *http.Request) (insights.Metrics, error) {
	account, _ := auth.AccountFrom(r.Context())

	incomes, err := s.transactions.List(r.Context(), account.ID, core.KindIncome)
	if err != nil {
		return insights.Metrics{}, err
	}
	expenses, err := s.transactions.List(r.Context(), account.ID, core.KindExpense)
	if err != nil {
		return insights.Metrics{}, err
	}
	return insights.ComputeMetrics(incomes, expenses, time.Now().UTC()), nil
}

// handleInsights returns the raw metric snapshot.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.accountMetrics(r)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	respond(w, http.StatusOK, metrics)
}

// handleTips returns advice: LLM-backed when configured, rules
// otherwise, rules-with-degraded-flag when the LLM fails.
func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.accountMetrics(r)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}
	respond(w, http.StatusOK, s.advisor.Advise(r.Context(), metrics))
}

// handleAnalysis combines the prose summary with the advice.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.accountMetrics(r)
	if err != nil {
		writeError(r.Context(), w, err, s.devMode)
		return
	}

	advice := s.advisor.Advise(r.Context(), metrics)
	respond(w, http.StatusOK, map[string]any{
		"summary": insights.Narrative(metrics),
		"metrics": metrics,
		"advice":  advice,
	})
}
