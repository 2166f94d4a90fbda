package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// WelcomePolicy shapes what happens at registration time: optionally
// seed a first income record so the dashboard is not empty on first
// login, and grant the admin role to one configured email.
type WelcomePolicy struct {
	Enabled    bool
	Cents      int64
	AdminEmail string
}

// AccountService owns registration, login and profile management.
type AccountService struct {
	storage      *storage.Repository
	assets       AssetStore
	transactions *TransactionService
	welcome      WelcomePolicy
}

func NewAccountService(st *storage.Repository, assets AssetStore, transactions *TransactionService, welcome WelcomePolicy) *AccountService {
	return &AccountService{
		storage:      st,
		assets:       assets,
		transactions: transactions,
		welcome:      welcome,
	}
}

// RegisterParams carries the registration form.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new account. A duplicate email fails with
// core.ErrConflict; field problems fail with a ValidationError that
// lists every offending field at once.
func (s *AccountService) Register(ctx context.Context, p RegisterParams) (core.Account, error) {
	now := time.Now().UTC()
	a := core.Account{
		ID:        uuid.NewString(),
		Email:     core.NormalizeEmail(p.Email),
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Status:    core.StatusActive,
		Role:      core.RoleStandard,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.welcome.AdminEmail != "" && a.Email == core.NormalizeEmail(s.welcome.AdminEmail) {
		a.Role = core.RoleAdmin
	}

	ve := &core.ValidationError{}
	if err := a.Validate(); err != nil {
		if v, ok := core.AsValidation(err); ok {
			ve.Fields = append(ve.Fields, v.Fields...)
		} else {
			return core.Account{}, err
		}
	}
	if len(p.Password) < auth.MinPasswordLength {
		ve.Addf("password", "must be at least %d characters", auth.MinPasswordLength)
	}
	if err := ve.Err(); err != nil {
		return core.Account{}, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return core.Account{}, fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = hash

	if err := s.storage.CreateAccount(ctx, a); err != nil {
		return core.Account{}, err
	}

	s.seedWelcomeIncome(ctx, a.ID)

	a.PasswordHash = ""
	return a, nil
}

// seedWelcomeIncome is best-effort: the account exists either way.
func (s *AccountService) seedWelcomeIncome(ctx context.Context, accountID string) {
	if !s.welcome.Enabled || s.welcome.Cents <= 0 || s.transactions == nil {
		return
	}

	categories := s.transactions.Categories(core.KindIncome)
	category := "Other"
	if !categories.Contains(category) && len(categories) > 0 {
		category = categories[0]
	}

	_, err := s.transactions.Create(ctx, accountID, core.KindIncome, CreateParams{
		Title:       "Welcome bonus",
		Icon:        "gift",
		Amount:      core.Money{Cents: s.welcome.Cents},
		Category:    category,
		Date:        time.Now().UTC(),
		Description: "Starting balance",
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to seed welcome income",
			"account_id", accountID, "error", err)
	}
}

// dummyHash is a well-formed bcrypt hash compared against when the
// email is unknown, keeping the login path's timing flat.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Authenticate checks credentials for the login path. Unknown emails
// and wrong passwords both fail with core.ErrUnauthorized so the
// response does not reveal which part was wrong; suspended accounts
// fail with core.ErrForbidden.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (core.Account, error) {
	a, err := s.storage.GetAccountByEmail(ctx, email)
	if err != nil {
		// Burn a comparison anyway so unknown emails take as long as
		// wrong passwords.
		auth.CheckPassword(dummyHash, password)
		return core.Account{}, core.ErrUnauthorized
	}

	if !auth.CheckPassword(a.PasswordHash, password) {
		return core.Account{}, core.ErrUnauthorized
	}
	if a.Suspended() {
		return core.Account{}, core.ErrForbidden
	}

	a.PasswordHash = ""
	return a, nil
}

// GetProfile loads an account without its password hash.
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (core.Account, error) {
	return s.storage.GetAccountByID(ctx, accountID)
}

// UpdateProfileParams carries a partial profile edit; nil fields keep
// their prior values.
type UpdateProfileParams struct {
	FirstName *string
	LastName  *string
}

// UpdateProfile applies a partial profile edit and returns the updated
// account.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, p UpdateProfileParams) (core.Account, error) {
	ve := &core.ValidationError{}
	if p.FirstName != nil {
		name := strings.TrimSpace(*p.FirstName)
		if name == "" {
			ve.Add("firstName", "must not be empty")
		}
		p.FirstName = &name
	}
	if p.LastName != nil {
		name := strings.TrimSpace(*p.LastName)
		p.LastName = &name
	}
	if err := ve.Err(); err != nil {
		return core.Account{}, err
	}

	if p.FirstName != nil || p.LastName != nil {
		err := s.storage.UpdateAccount(ctx, accountID, storage.UpdateAccountParams{
			FirstName: p.FirstName,
			LastName:  p.LastName,
		})
		if err != nil {
			return core.Account{}, err
		}
	}
	return s.storage.GetAccountByID(ctx, accountID)
}

// UploadAvatar stores a new avatar and records its serving URL on the
// profile.
func (s *AccountService) UploadAvatar(ctx context.Context, accountID string, data []byte, contentType string) (core.Account, error) {
	url, err := s.assets.Put(ctx, accountID, data, contentType)
	if err != nil {
		return core.Account{}, err
	}

	err = s.storage.UpdateAccount(ctx, accountID, storage.UpdateAccountParams{AvatarURL: &url})
	if err != nil {
		return core.Account{}, err
	}
	return s.storage.GetAccountByID(ctx, accountID)
}

// GetAvatar fetches the stored avatar bytes for serving.
func (s *AccountService) GetAvatar(ctx context.Context, accountID string) ([]byte, string, error) {
	return s.assets.Get(ctx, accountID)
}

// DeleteAccount removes the account, every transaction it owns and its
// avatar. The avatar cleanup is best-effort.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.storage.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, accountID); err != nil {
		slog.WarnContext(ctx, "Failed to delete avatar",
			"account_id", accountID, "error", err)
	}
	return nil
}

// ListAccounts returns every account for the admin surface.
func (s *AccountService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx)
}

// SetAccountStatus activates or suspends an account.
func (s *AccountService) SetAccountStatus(ctx context.Context, accountID, status string) (core.Account, error) {
	if status != core.StatusActive && status != core.StatusSuspended {
		ve := &core.ValidationError{}
		ve.Addf("status", "must be %q or %q", core.StatusActive, core.StatusSuspended)
		return core.Account{}, ve.Err()
	}
	if err := s.storage.UpdateAccountStatus(ctx, accountID, status); err != nil {
		return core.Account{}, err
	}
	return s.storage.GetAccountByID(ctx, accountID)
}
