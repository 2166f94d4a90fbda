// Package insights derives spending metrics from an account's records
// and turns them into advice, either by deterministic rules or by an
// optional LLM with the rules as fallback.
package insights

import (
	"time"

	"fintrack/internal/core"
)

// Metrics is the numeric snapshot the advice paths work from. It is
// computed locally so the rule engine never needs the database and the
// LLM prompt never contains raw transaction rows.
type Metrics struct {
	MonthIncome     core.Money               `json:"monthIncome"`
	MonthExpense    core.Money               `json:"monthExpense"`
	SavingsRate     float64                  `json:"savingsRate"`
	TopCategory     string                   `json:"topCategory,omitempty"`
	TopShare        float64                  `json:"topShare"`
	ExpensesPerWeek float64                  `json:"expensesPerWeek"`
	Duplicates      []string                 `json:"duplicates,omitempty"`
	Breakdown       []core.CategoryBreakdown `json:"breakdown,omitempty"`
	ExpenseCount    int                      `json:"expenseCount"`
	IncomeCount     int                      `json:"incomeCount"`
}

// velocityWindow is how far back the expense frequency looks.
const velocityWindow = 28 * 24 * time.Hour

// ComputeMetrics aggregates the account's records around the month
// containing now.
func ComputeMetrics(incomes, expenses []core.Transaction, now time.Time) Metrics {
	start, end := core.MonthBounds(now)

	m := Metrics{
		MonthIncome:  core.WindowTotal(incomes, start, end),
		MonthExpense: core.WindowTotal(expenses, start, end),
		ExpenseCount: len(expenses),
		IncomeCount:  len(incomes),
	}
	m.SavingsRate = core.SavingsRate(m.MonthIncome, m.MonthExpense)

	monthExpenses := windowed(expenses, start, end)
	m.Breakdown = core.BreakdownByCategory(monthExpenses)
	if len(m.Breakdown) > 0 {
		m.TopCategory = m.Breakdown[0].Category
		m.TopShare = m.Breakdown[0].Percentage
	}

	cutoff := now.Add(-velocityWindow)
	recent := 0
	for _, t := range expenses {
		if !t.Date.Before(cutoff) && !t.Date.After(now) {
			recent++
		}
	}
	m.ExpensesPerWeek = float64(recent) / 4.0

	m.Duplicates = duplicateCharges(monthExpenses)
	return m
}

func windowed(txs []core.Transaction, start, end time.Time) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	return out
}

// duplicateCharges finds expenses sharing category, amount and calendar
// day, a cheap signal for double entries or double billing.
func duplicateCharges(txs []core.Transaction) []string {
	type key struct {
		category string
		cents    int64
		day      string
	}
	seen := make(map[key]int)
	var dups []string
	for _, t := range txs {
		k := key{t.Category, t.Amount.Cents, t.Date.Format("2006-01-02")}
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, t.Category+" "+t.Amount.String()+" on "+k.day)
		}
	}
	return dups
}
