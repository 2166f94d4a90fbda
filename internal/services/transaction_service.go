// Package services orchestrates accounts and transactions across the
// SQLite store, the avatar asset store and the AMQP sync queue.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// SyncPublisher pushes transaction change notifications to the sheet
// worker. *amqp.Client satisfies it; a nil publisher disables syncing.
type SyncPublisher interface {
	PublishSync(ctx context.Context, msg *amqp.SyncMessage) error
}

// TransactionService owns income and expense records: validation,
// ownership checks, aggregation and sync publishing.
type TransactionService struct {
	storage   *storage.Repository
	publisher SyncPublisher
	income    core.CategorySet
	expense   core.CategorySet
}

// NewTransactionService wires the service. Empty category sets fall
// back to the built-in enumerations; a nil publisher skips sync
// messages without failing requests.
func NewTransactionService(st *storage.Repository, publisher SyncPublisher, income, expense core.CategorySet) *TransactionService {
	if len(income) == 0 {
		income = core.DefaultIncomeCategories
	}
	if len(expense) == 0 {
		expense = core.DefaultExpenseCategories
	}
	return &TransactionService{
		storage:   st,
		publisher: publisher,
		income:    income,
		expense:   expense,
	}
}

// Categories returns the closed enumeration for one transaction kind.
func (s *TransactionService) Categories(kind core.Kind) core.CategorySet {
	if kind == core.KindIncome {
		return s.income
	}
	return s.expense
}

// CreateParams carries the writable fields of a new record.
type CreateParams struct {
	Title       string
	Icon        string
	Amount      core.Money
	Category    string
	Date        time.Time
	Description string
}

// Create validates and saves a new record, then queues it for sheet
// sync. The sync publish is best-effort: the record is already durable
// locally, so a broker failure never fails the request.
func (s *TransactionService) Create(ctx context.Context, accountID string, kind core.Kind, p CreateParams) (core.Transaction, error) {
	now := time.Now().UTC()
	date := p.Date
	if date.IsZero() {
		// Occurrence date defaults to creation time when omitted.
		date = now
	}
	t := core.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Title:       strings.TrimSpace(p.Title),
		Icon:        strings.TrimSpace(p.Icon),
		Amount:      p.Amount,
		Category:    strings.TrimSpace(p.Category),
		Date:        date,
		Description: strings.TrimSpace(p.Description),
		SyncStatus:  "pending",
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := t.Validate(s.Categories(kind)); err != nil {
		return core.Transaction{}, err
	}
	if err := s.storage.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.NewUpsertMessage(t.ID, t.AccountID, t.Version))
	return t, nil
}

// Get loads one record, enforcing ownership. A record owned by another
// account fails with core.ErrForbidden; a record of the wrong kind is
// invisible on this route and fails with core.ErrNotFound.
func (s *TransactionService) Get(ctx context.Context, accountID string, kind core.Kind, id string) (core.Transaction, error) {
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.AccountID != accountID {
		return core.Transaction{}, core.ErrForbidden
	}
	if t.Kind != kind {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

// List returns the account's records of one kind, newest first.
func (s *TransactionService) List(ctx context.Context, accountID string, kind core.Kind) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, accountID, kind)
}

// UpdateParams carries a partial update; nil fields keep prior values.
type UpdateParams struct {
	Title       *string
	Icon        *string
	Amount      *core.Money
	Category    *string
	Date        *time.Time
	Description *string
}

func (p UpdateParams) empty() bool {
	return p.Title == nil && p.Icon == nil && p.Amount == nil &&
		p.Category == nil && p.Date == nil && p.Description == nil
}

// Update applies a partial update after checking ownership and
// validating the changed fields, then re-queues the record for sync.
// An update with no fields set returns the record unchanged.
func (s *TransactionService) Update(ctx context.Context, accountID string, kind core.Kind, id string, p UpdateParams) (core.Transaction, error) {
	current, err := s.Get(ctx, accountID, kind, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if p.empty() {
		return current, nil
	}

	ve := &core.ValidationError{}
	if p.Amount != nil && p.Amount.Cents < 0 {
		ve.Add("amount", "must not be negative")
	}
	if p.Category != nil {
		cat := strings.TrimSpace(*p.Category)
		if cat == "" {
			ve.Add("category", "must not be empty")
		} else if !s.Categories(kind).Contains(cat) {
			ve.Addf("category", "%q is not a known %s category", cat, kind)
		}
		p.Category = &cat
	}
	if p.Date != nil && p.Date.IsZero() {
		ve.Add("date", "must be set")
	}
	if p.Description != nil && len(*p.Description) > 500 {
		ve.Add("description", "too long (max 500 characters)")
	}
	if p.Title != nil && len(*p.Title) > 120 {
		ve.Add("title", "too long (max 120 characters)")
	}
	if err := ve.Err(); err != nil {
		return core.Transaction{}, err
	}

	params := storage.UpdateTransactionParams{
		Title:       p.Title,
		Icon:        p.Icon,
		Category:    p.Category,
		Date:        p.Date,
		Description: p.Description,
	}
	if p.Amount != nil {
		cents := p.Amount.Cents
		params.AmountCents = &cents
	}
	if err := s.storage.UpdateTransaction(ctx, id, params); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	updated, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}

	s.publish(ctx, amqp.NewUpsertMessage(updated.ID, updated.AccountID, updated.Version))
	return updated, nil
}

// Delete removes a record after checking ownership and notifies the
// sync worker.
func (s *TransactionService) Delete(ctx context.Context, accountID string, kind core.Kind, id string) error {
	t, err := s.Get(ctx, accountID, kind, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, amqp.NewDeleteMessage(t.ID, t.AccountID))
	return nil
}

func (s *TransactionService) publish(ctx context.Context, msg *amqp.SyncMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Sync publisher not configured, skipping message",
			"transaction_id", msg.TransactionID, "event", msg.Event)
		return
	}
	if err := s.publisher.PublishSync(ctx, msg); err != nil {
		// The record is already durable locally, so the request succeeds
		// anyway; the worker's pending scan will catch up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", msg.TransactionID,
			"event", msg.Event,
			"error", err)
	}
}

// Dashboard is the aggregate view for the account's home screen.
type Dashboard struct {
	Balance           core.Money               `json:"balance"`
	MonthIncome       core.Money               `json:"monthIncome"`
	MonthExpense      core.Money               `json:"monthExpense"`
	MonthSavings      core.Money               `json:"monthSavings"`
	SavingsRate       float64                  `json:"savingsRate"`
	ExpenseByCategory []core.CategoryBreakdown `json:"expenseByCategory"`
	IncomeByCategory  []core.CategoryBreakdown `json:"incomeByCategory"`
	Trend             []core.MonthPoint        `json:"trend"`
	IncomeStats       core.Stats               `json:"incomeStats"`
	ExpenseStats      core.Stats               `json:"expenseStats"`
}

// TrendMonths is how far back the dashboard trend reaches.
const TrendMonths = 6

// BuildDashboard aggregates the account's records around the month
// containing now.
func (s *TransactionService) BuildDashboard(ctx context.Context, accountID string, now time.Time) (Dashboard, error) {
	incomes, err := s.storage.ListTransactions(ctx, accountID, core.KindIncome)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := s.storage.ListTransactions(ctx, accountID, core.KindExpense)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list expenses: %w", err)
	}

	start, end := core.MonthBounds(now)
	monthIncome := core.WindowTotal(incomes, start, end)
	monthExpense := core.WindowTotal(expenses, start, end)

	var totalIncome, totalExpense core.Money
	for _, t := range incomes {
		totalIncome = totalIncome.Add(t.Amount)
	}
	for _, t := range expenses {
		totalExpense = totalExpense.Add(t.Amount)
	}

	monthIncomes := inWindow(incomes, start, end)
	monthExpenses := inWindow(expenses, start, end)

	return Dashboard{
		Balance:           totalIncome.Sub(totalExpense),
		MonthIncome:       monthIncome,
		MonthExpense:      monthExpense,
		MonthSavings:      monthIncome.Sub(monthExpense),
		SavingsRate:       core.SavingsRate(monthIncome, monthExpense),
		ExpenseByCategory: core.BreakdownByCategory(monthExpenses),
		IncomeByCategory:  core.BreakdownByCategory(monthIncomes),
		Trend:             core.MonthlyTrend(incomes, expenses, now, TrendMonths),
		IncomeStats:       core.BasicStats(incomes),
		ExpenseStats:      core.BasicStats(expenses),
	}, nil
}

func inWindow(txs []core.Transaction, start, end time.Time) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	return out
}

// ExportReport renders an account's records of one kind as a plain-text
// statement, newest first, with a total line at the bottom.
func (s *TransactionService) ExportReport(ctx context.Context, accountID string, kind core.Kind) (string, error) {
	txs, err := s.storage.ListTransactions(ctx, accountID, kind)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s report\n", strings.ToUpper(string(kind)[:1])+string(kind)[1:])
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	var total core.Money
	for _, t := range txs {
		label := t.Category
		if t.Title != "" {
			label = t.Title + " (" + t.Category + ")"
		}
		fmt.Fprintf(&b, "%s  %-40s %10s\n", t.Date.Format("2006-01-02"), label, t.Amount.String())
		if t.Description != "" {
			fmt.Fprintf(&b, "            %s\n", t.Description)
		}
		total = total.Add(t.Amount)
	}

	fmt.Fprintf(&b, "\nTotal: %s across %d records\n", total.String(), len(txs))
	return b.String(), nil
}
