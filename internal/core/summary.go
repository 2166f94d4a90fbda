package core

import (
	"sort"
	"time"
)

// CategoryBreakdown is one row of a per-category aggregation.
type CategoryBreakdown struct {
	Category   string  `json:"category"`
	Total      Money   `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MonthPoint is one month of the income/expense trend.
type MonthPoint struct {
	Label   string `json:"month"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Savings Money  `json:"savings"`
}

// Stats holds min/max/average statistics over a transaction sequence.
type Stats struct {
	Total   Money `json:"total"`
	Count   int   `json:"count"`
	Average Money `json:"average"`
	Max     Money `json:"max"`
	Min     Money `json:"min"`
}

// BreakdownByCategory groups transactions by category, summing in cents,
// sorted descending by total. Percentages are of the grand total and 0.0
// when the grand total is zero. Ties sort by category name so the output
// is deterministic.
func BreakdownByCategory(txs []Transaction) []CategoryBreakdown {
	if len(txs) == 0 {
		return nil
	}
	totals := make(map[string]*CategoryBreakdown)
	var order []string
	var grand int64
	for _, t := range txs {
		row, ok := totals[t.Category]
		if !ok {
			row = &CategoryBreakdown{Category: t.Category}
			totals[t.Category] = row
			order = append(order, t.Category)
		}
		row.Total.Cents += t.Amount.Cents
		row.Count++
		grand += t.Amount.Cents
	}
	out := make([]CategoryBreakdown, 0, len(order))
	for _, name := range order {
		row := *totals[name]
		if grand > 0 {
			row.Percentage = float64(row.Total.Cents) / float64(grand) * 100
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// WindowTotal sums amounts whose occurrence date falls within [start, end],
// bounds inclusive.
func WindowTotal(txs []Transaction, start, end time.Time) Money {
	var sum int64
	for _, t := range txs {
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		sum += t.Amount.Cents
	}
	return Money{Cents: sum}
}

// MonthBounds returns the inclusive bounds of the calendar month containing
// ref, in ref's location.
func MonthBounds(ref time.Time) (start, end time.Time) {
	start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// MonthlyTrend buckets incomes and expenses into the last monthsBack
// calendar months ending at now's month, oldest first. Savings is the
// per-month income minus expense.
func MonthlyTrend(incomes, expenses []Transaction, now time.Time, monthsBack int) []MonthPoint {
	if monthsBack <= 0 {
		monthsBack = 6
	}
	points := make([]MonthPoint, monthsBack)
	// index of a transaction's month relative to the window start
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(monthsBack - 1), 0)
	for i := range points {
		m := first.AddDate(0, i, 0)
		points[i].Label = m.Format("Jan 2006")
	}
	bucket := func(d time.Time) (int, bool) {
		idx := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if idx < 0 || idx >= monthsBack {
			return 0, false
		}
		return idx, true
	}
	for _, t := range incomes {
		if i, ok := bucket(t.Date); ok {
			points[i].Income.Cents += t.Amount.Cents
		}
	}
	for _, t := range expenses {
		if i, ok := bucket(t.Date); ok {
			points[i].Expense.Cents += t.Amount.Cents
		}
	}
	for i := range points {
		points[i].Savings = points[i].Income.Sub(points[i].Expense)
	}
	return points
}

// BasicStats computes total/count/average/max/min over a sequence. Every
// field is zero for an empty input; the average never divides by zero.
func BasicStats(txs []Transaction) Stats {
	var s Stats
	if len(txs) == 0 {
		return s
	}
	s.Count = len(txs)
	s.Max = txs[0].Amount
	s.Min = txs[0].Amount
	for _, t := range txs {
		s.Total.Cents += t.Amount.Cents
		if t.Amount.Cents > s.Max.Cents {
			s.Max = t.Amount
		}
		if t.Amount.Cents < s.Min.Cents {
			s.Min = t.Amount
		}
	}
	s.Average = Money{Cents: s.Total.Cents / int64(s.Count)}
	return s
}

// SavingsRate is (income - expense) / income * 100, or 0 when income is 0.
func SavingsRate(income, expense Money) float64 {
	if income.Cents == 0 {
		return 0
	}
	return float64(income.Cents-expense.Cents) / float64(income.Cents) * 100
}
