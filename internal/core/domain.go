package core

import (
	"errors"
	"strings"
	"time"
)

// Kind discriminates the two transaction variants.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Account status values.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Account roles.
const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password too short")
)

// Account is a registered user identity. PasswordHash never crosses the
// JSON boundary.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Status       string    `json:"status"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email for case-insensitive
// uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks registration-time account fields.
func (a Account) Validate() error {
	ve := &ValidationError{}
	email := NormalizeEmail(a.Email)
	if email == "" || !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		ve.Add("email", "must be a valid email address")
	}
	if strings.TrimSpace(a.FirstName) == "" {
		ve.Add("firstName", "must not be empty")
	}
	return ve.Err()
}

// Suspended reports whether the account is blocked from authenticating.
func (a Account) Suspended() bool {
	return a.Status == StatusSuspended
}

// Transaction is an income or expense record owned by exactly one account.
// Title and Icon are only meaningful for incomes; they stay empty on
// expenses.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Amount      Money     `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Sheet-sync bookkeeping, not part of the API payload.
	SyncStatus string `json:"-"`
	Version    int64  `json:"-"`
}

// CategorySet is a closed category enumeration for one transaction kind.
// The income and expense sets are configured independently.
type CategorySet []string

// DefaultExpenseCategories is the closed enumeration for expense records.
var DefaultExpenseCategories = CategorySet{
	"Food", "Transport", "Entertainment", "Healthcare",
	"Shopping", "Bills", "Education", "Other",
}

// DefaultIncomeCategories is the closed enumeration for income records.
var DefaultIncomeCategories = CategorySet{
	"Salary", "Freelance", "Investment", "Bonus", "Business", "Other",
}

// Contains reports whether name is a member of the set.
func (cs CategorySet) Contains(name string) bool {
	for _, c := range cs {
		if c == name {
			return true
		}
	}
	return false
}

// Validate checks a transaction against the category set for its kind.
// All field failures are collected into a single ValidationError.
func (t Transaction) Validate(categories CategorySet) error {
	ve := &ValidationError{}
	if !t.Kind.Valid() {
		ve.Add("kind", "must be income or expense")
	}
	if t.Amount.Cents < 0 {
		ve.Add("amount", "must not be negative")
	}
	if strings.TrimSpace(t.Category) == "" {
		ve.Add("category", "must not be empty")
	} else if !categories.Contains(t.Category) {
		ve.Addf("category", "%q is not a known %s category", t.Category, t.Kind)
	}
	if t.Date.IsZero() {
		ve.Add("date", "must be set")
	}
	if len(t.Description) > 500 {
		ve.Add("description", "too long (max 500 characters)")
	}
	if len(t.Title) > 120 {
		ve.Add("title", "too long (max 120 characters)")
	}
	return ve.Err()
}
