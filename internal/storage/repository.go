// Package storage persists accounts and transactions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed store for accounts and transactions.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if necessary) the database at dbPath and
// applies migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// Ping verifies the database connection is still usable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isUniqueViolation recognizes the SQLite unique-constraint failure text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---------------------------------------------------------------------------
// Accounts

const accountColumns = "id, email, first_name, last_name, avatar_url, status, role, created_at, updated_at"

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.AvatarURL,
		&a.Status, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAccount inserts a new account. A duplicate email (already
// normalized to lower case by the caller) fails with core.ErrConflict.
func (r *Repository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, avatar_url, status, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.AvatarURL,
		a.Status, a.Role, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s already registered: %w", a.Email, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "account_id", a.ID)
	return nil
}

// GetAccountByEmail loads an account including its password hash; this is
// the login path's credential check projection.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, avatar_url, status, role, created_at, updated_at
		FROM accounts WHERE email = ?`, core.NormalizeEmail(email))

	var a core.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.AvatarURL, &a.Status, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// GetAccountByID loads an account without its password hash.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// UpdateAccountParams carries a partial profile update; nil fields keep
// their prior values.
type UpdateAccountParams struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// UpdateAccount applies a partial profile update.
func (r *Repository) UpdateAccount(ctx context.Context, id string, p UpdateAccountParams) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			first_name = COALESCE(?, first_name),
			last_name  = COALESCE(?, last_name),
			avatar_url = COALESCE(?, avatar_url),
			updated_at = ?
		WHERE id = ?`,
		p.FirstName, p.LastName, p.AvatarURL, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res, "account")
}

// UpdateAccountStatus flips an account between active and suspended.
func (r *Repository) UpdateAccountStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	return requireRow(res, "account")
}

// DeleteAccount removes the account and every transaction it owns. The
// schema cascades on the foreign key; the explicit delete keeps the
// behavior independent of the connection's pragma state.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete account: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE account_id = ?", id); err != nil {
		return fmt.Errorf("delete owned transactions: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := requireRow(res, "account"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete account: %w", err)
	}

	slog.InfoContext(ctx, "Account deleted with owned transactions", "account_id", id)
	return nil
}

// ListAccounts returns every account, newest first, without password
// hashes. Admin surface only.
func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ---------------------------------------------------------------------------
// Transactions

const txColumns = "id, account_id, kind, title, icon, amount_cents, category, occurred_on, description, sync_status, version, created_at, updated_at"

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var kind string
	err := row.Scan(&t.ID, &t.AccountID, &kind, &t.Title, &t.Icon, &t.Amount.Cents,
		&t.Category, &t.Date, &t.Description, &t.SyncStatus, &t.Version,
		&t.CreatedAt, &t.UpdatedAt)
	t.Kind = core.Kind(kind)
	return t, err
}

// CreateTransaction inserts a new income or expense record.
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, kind, title, icon, amount_cents, category, occurred_on, description, sync_status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, string(t.Kind), t.Title, t.Icon, t.Amount.Cents,
		t.Category, t.Date.UTC(), t.Description, t.SyncStatus, t.Version,
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"kind", string(t.Kind),
		"amount_cents", t.Amount.Cents,
		"category", t.Category)
	return nil
}

// GetTransaction fetches a record by ID without scoping to an account.
// Callers must verify ownership separately.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE id = ?", id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns an account's records of one kind, occurrence
// date descending (newest activity first).
func (r *Repository) ListTransactions(ctx context.Context, accountID string, kind core.Kind) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE account_id = ? AND kind = ? ORDER BY occurred_on DESC, created_at DESC",
		accountID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsInRange returns an account's records of one kind with
// occurrence dates inside [start, end], bounds inclusive.
func (r *Repository) ListTransactionsInRange(ctx context.Context, accountID string, kind core.Kind, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE account_id = ? AND kind = ? AND occurred_on >= ? AND occurred_on <= ? ORDER BY occurred_on DESC",
		accountID, string(kind), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// UpdateTransactionParams carries a partial update; nil fields keep their
// prior values.
type UpdateTransactionParams struct {
	Title       *string
	Icon        *string
	AmountCents *int64
	Category    *string
	Date        *time.Time
	Description *string
}

// UpdateTransaction applies a partial update, bumps the record version
// and re-queues it for sheet sync.
func (r *Repository) UpdateTransaction(ctx context.Context, id string, p UpdateTransactionParams) error {
	var date any
	if p.Date != nil {
		utc := p.Date.UTC()
		date = utc
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			title        = COALESCE(?, title),
			icon         = COALESCE(?, icon),
			amount_cents = COALESCE(?, amount_cents),
			category     = COALESCE(?, category),
			occurred_on  = COALESCE(?, occurred_on),
			description  = COALESCE(?, description),
			sync_status  = 'pending',
			version      = version + 1,
			updated_at   = ?
		WHERE id = ?`,
		p.Title, p.Icon, p.AmountCents, p.Category, date, p.Description,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "transaction")
}

// DeleteTransaction removes a record by ID.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "transaction")
}

// GetPendingSync returns up to limit records waiting to be pushed to the
// sheet, oldest first.
func (r *Repository) GetPendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE sync_status = 'pending' ORDER BY created_at ASC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// MarkSynced records a successful sheet append for a record version.
func (r *Repository) MarkSynced(ctx context.Context, id string, version int64) error {
	// Guard on version so a concurrent update is not masked as synced.
	_, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'synced' WHERE id = ? AND version = ?",
		id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a record whose sheet append kept failing.
func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'error' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}

// requireRow converts a zero-row mutation into core.ErrNotFound.
func requireRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, core.ErrNotFound)
	}
	return nil
}
