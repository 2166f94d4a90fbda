package insights

import "fmt"

// Tip severities, highest first.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// MaxTips bounds every advice response.
const MaxTips = 5

// Tip is one piece of actionable advice.
type Tip struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// RuleTips evaluates the deterministic advice rules. Each rule is an
// independent predicate on the metrics; matches are collected in rule
// order and capped at MaxTips.
func RuleTips(m Metrics) []Tip {
	var tips []Tip
	add := func(severity, format string, args ...any) {
		if len(tips) < MaxTips {
			tips = append(tips, Tip{Message: fmt.Sprintf(format, args...), Severity: severity})
		}
	}

	if m.MonthExpense.Cents > m.MonthIncome.Cents {
		add(SeverityHigh, "You spent %s this month but only earned %s. Cut back before the gap grows.",
			m.MonthExpense.String(), m.MonthIncome.String())
	}
	if m.MonthIncome.Cents > 0 && m.SavingsRate < 10 && m.MonthExpense.Cents <= m.MonthIncome.Cents {
		add(SeverityHigh, "Your savings rate is %.1f%% this month. Aim for at least 10%% of income saved.",
			m.SavingsRate)
	}
	if len(m.Duplicates) > 0 {
		add(SeverityMedium, "Possible duplicate charges: %s. Check for double billing.", m.Duplicates[0])
	}
	if m.TopShare > 40 && m.TopCategory != "" {
		add(SeverityMedium, "%.0f%% of this month's spending went to %s. Spreading it out makes budgets easier to hold.",
			m.TopShare, m.TopCategory)
	}
	if m.IncomeCount > 0 && m.MonthIncome.Cents == 0 {
		add(SeverityMedium, "No income recorded this month. Log it to keep your savings rate meaningful.")
	}
	if m.ExpensesPerWeek > 15 {
		add(SeverityLow, "You log about %.0f expenses a week. Grouping small purchases can make trends clearer.",
			m.ExpensesPerWeek)
	}
	if m.SavingsRate >= 30 && m.MonthIncome.Cents > 0 {
		add(SeverityLow, "Solid month: %.1f%% of income saved. Consider moving the surplus somewhere it earns.",
			m.SavingsRate)
	}
	if len(tips) == 0 {
		add(SeverityLow, "Nothing stands out this month. Keep recording income and expenses to sharpen the picture.")
	}

	return tips
}
