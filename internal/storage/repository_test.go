package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestAccount(t *testing.T, repo *Repository, email string) core.Account {
	t.Helper()
	now := time.Now().UTC()
	a := core.Account{
		ID:           uuid.NewString(),
		Email:        core.NormalizeEmail(email),
		PasswordHash: "x",
		FirstName:    "Ada",
		Status:       core.StatusActive,
		Role:         core.RoleStandard,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), a))
	return a
}

func newTestTransaction(t *testing.T, repo *Repository, accountID string, kind core.Kind, cents int64, category string, date time.Time) core.Transaction {
	t.Helper()
	now := time.Now().UTC()
	tx := core.Transaction{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Kind:       kind,
		Amount:     core.Money{Cents: cents},
		Category:   category,
		Date:       date,
		SyncStatus: "pending",
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.CreateTransaction(context.Background(), tx))
	return tx
}

func TestAccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := newTestAccount(t, repo, "Ada@Example.com")

	t.Run("load by id excludes hash", func(t *testing.T) {
		got, err := repo.GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Empty(t, got.PasswordHash)
	})

	t.Run("load by email includes hash", func(t *testing.T) {
		got, err := repo.GetAccountByEmail(ctx, "ADA@example.COM")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, "x", got.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		dup := a
		dup.ID = uuid.NewString()
		err := repo.CreateAccount(ctx, dup)
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("partial update keeps omitted fields", func(t *testing.T) {
		last := "Lovelace"
		require.NoError(t, repo.UpdateAccount(ctx, a.ID, UpdateAccountParams{LastName: &last}))
		got, err := repo.GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FirstName)
		assert.Equal(t, "Lovelace", got.LastName)
	})

	t.Run("status update", func(t *testing.T) {
		require.NoError(t, repo.UpdateAccountStatus(ctx, a.ID, core.StatusSuspended))
		got, err := repo.GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.Suspended())
	})

	t.Run("missing account is not found", func(t *testing.T) {
		_, err := repo.GetAccountByID(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateAccountStatus(ctx, "missing", core.StatusActive), core.ErrNotFound)
	})
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := newTestAccount(t, repo, "ada@example.com")

	jan15 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	jan20 := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	income := newTestTransaction(t, repo, a.ID, core.KindIncome, 100000, "Salary", jan15)
	expense := newTestTransaction(t, repo, a.ID, core.KindExpense, 30000, "Food", jan20)

	t.Run("get is unscoped", func(t *testing.T) {
		got, err := repo.GetTransaction(ctx, income.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.AccountID)
		assert.Equal(t, core.KindIncome, got.Kind)
		assert.Equal(t, int64(100000), got.Amount.Cents)
	})

	t.Run("list is kind-scoped and date-descending", func(t *testing.T) {
		older := newTestTransaction(t, repo, a.ID, core.KindExpense, 500, "Bills",
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

		expenses, err := repo.ListTransactions(ctx, a.ID, core.KindExpense)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, expense.ID, expenses[0].ID)
		assert.Equal(t, older.ID, expenses[1].ID)

		incomes, err := repo.ListTransactions(ctx, a.ID, core.KindIncome)
		require.NoError(t, err)
		require.Len(t, incomes, 1)
	})

	t.Run("range query has inclusive bounds", func(t *testing.T) {
		txs, err := repo.ListTransactionsInRange(ctx, a.ID, core.KindIncome, jan15, jan15)
		require.NoError(t, err)
		assert.Len(t, txs, 1)

		txs, err = repo.ListTransactionsInRange(ctx, a.ID, core.KindIncome,
			jan15.Add(time.Second), jan20)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("partial update keeps omitted fields", func(t *testing.T) {
		cents := int64(45000)
		require.NoError(t, repo.UpdateTransaction(ctx, expense.ID, UpdateTransactionParams{AmountCents: &cents}))

		got, err := repo.GetTransaction(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(45000), got.Amount.Cents)
		assert.Equal(t, "Food", got.Category)
		assert.True(t, got.Date.Equal(jan20))
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, "pending", got.SyncStatus)
	})

	t.Run("delete", func(t *testing.T) {
		victim := newTestTransaction(t, repo, a.ID, core.KindExpense, 100, "Other", jan20)
		require.NoError(t, repo.DeleteTransaction(ctx, victim.ID))
		_, err := repo.GetTransaction(ctx, victim.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteTransaction(ctx, victim.ID), core.ErrNotFound)
	})
}

func TestDeleteAccountCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := newTestAccount(t, repo, "ada@example.com")
	b := newTestAccount(t, repo, "bob@example.com")

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	newTestTransaction(t, repo, a.ID, core.KindIncome, 1000, "Salary", day)
	newTestTransaction(t, repo, a.ID, core.KindExpense, 500, "Food", day)
	keep := newTestTransaction(t, repo, b.ID, core.KindExpense, 700, "Bills", day)

	require.NoError(t, repo.DeleteAccount(ctx, a.ID))

	_, err := repo.GetAccountByID(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	incomes, err := repo.ListTransactions(ctx, a.ID, core.KindIncome)
	require.NoError(t, err)
	assert.Empty(t, incomes)
	expenses, err := repo.ListTransactions(ctx, a.ID, core.KindExpense)
	require.NoError(t, err)
	assert.Empty(t, expenses)

	// The other account's records survive
	got, err := repo.GetTransaction(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.AccountID)
}

func TestSyncBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a := newTestAccount(t, repo, "ada@example.com")
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tx1 := newTestTransaction(t, repo, a.ID, core.KindExpense, 100, "Food", day)
	tx2 := newTestTransaction(t, repo, a.ID, core.KindExpense, 200, "Bills", day)

	pending, err := repo.GetPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, repo.MarkSynced(ctx, tx1.ID, tx1.Version))
	require.NoError(t, repo.MarkSyncError(ctx, tx2.ID))

	pending, err = repo.GetPendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A stale version does not mask newer edits as synced
	cents := int64(300)
	require.NoError(t, repo.UpdateTransaction(ctx, tx1.ID, UpdateTransactionParams{AmountCents: &cents}))
	require.NoError(t, repo.MarkSynced(ctx, tx1.ID, tx1.Version)) // old version, no-op
	pending, err = repo.GetPendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, tx1.ID, pending[0].ID)
}

func TestListAccounts(t *testing.T) {
	repo := newTestRepo(t)
	newTestAccount(t, repo, "a@example.com")
	newTestAccount(t, repo, "b@example.com")

	accounts, err := repo.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.Empty(t, a.PasswordHash)
	}
}
