package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestRegister(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewAccountService(repo, NewMemoryAssetStore(), nil, WelcomePolicy{})
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		a, err := svc.Register(ctx, RegisterParams{
			Email:     "  Ada@Example.com ",
			Password:  "correcthorse",
			FirstName: "Ada",
			LastName:  "Lovelace",
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", a.Email)
		assert.Equal(t, core.StatusActive, a.Status)
		assert.Equal(t, core.RoleStandard, a.Role)
		assert.Empty(t, a.PasswordHash)
	})

	t.Run("duplicate email conflicts, case-insensitively", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterParams{
			Email:     "ADA@EXAMPLE.COM",
			Password:  "correcthorse",
			FirstName: "Other Ada",
		})
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("collects every field failure", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterParams{
			Email:    "not-an-email",
			Password: "short",
		})
		require.Error(t, err)
		ve, ok := core.AsValidation(err)
		require.True(t, ok)
		fields := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"email", "firstName", "password"}, fields)
	})
}

func TestRegisterSeedsWelcomeIncome(t *testing.T) {
	repo := newTestStorage(t)
	txs := NewTransactionService(repo, nil, nil, nil)
	svc := NewAccountService(repo, NewMemoryAssetStore(), txs, WelcomePolicy{Enabled: true, Cents: 5000})

	a, err := svc.Register(context.Background(), RegisterParams{
		Email:     "ada@example.com",
		Password:  "correcthorse",
		FirstName: "Ada",
	})
	require.NoError(t, err)

	incomes, err := txs.List(context.Background(), a.ID, core.KindIncome)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, int64(5000), incomes[0].Amount.Cents)
	assert.Equal(t, "Welcome bonus", incomes[0].Title)
}

func TestAuthenticate(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewAccountService(repo, NewMemoryAssetStore(), nil, WelcomePolicy{})
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterParams{
		Email: "ada@example.com", Password: "correcthorse", FirstName: "Ada",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		got, err := svc.Authenticate(ctx, "ADA@example.com", "correcthorse")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Empty(t, got.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ada@example.com", "wrong")
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("unknown email looks identical to wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ghost@example.com", "correcthorse")
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})

	t.Run("suspended account", func(t *testing.T) {
		_, err := svc.SetAccountStatus(ctx, a.ID, core.StatusSuspended)
		require.NoError(t, err)
		_, err = svc.Authenticate(ctx, "ada@example.com", "correcthorse")
		assert.ErrorIs(t, err, core.ErrForbidden)
	})
}

func TestUpdateProfile(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewAccountService(repo, NewMemoryAssetStore(), nil, WelcomePolicy{})
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterParams{
		Email: "ada@example.com", Password: "correcthorse",
		FirstName: "Ada", LastName: "L",
	})
	require.NoError(t, err)

	t.Run("partial update keeps omitted fields", func(t *testing.T) {
		last := "Lovelace"
		got, err := svc.UpdateProfile(ctx, a.ID, UpdateProfileParams{LastName: &last})
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FirstName)
		assert.Equal(t, "Lovelace", got.LastName)
	})

	t.Run("empty first name rejected", func(t *testing.T) {
		empty := "  "
		_, err := svc.UpdateProfile(ctx, a.ID, UpdateProfileParams{FirstName: &empty})
		require.Error(t, err)
		_, ok := core.AsValidation(err)
		assert.True(t, ok)
	})

	t.Run("no fields set is a no-op", func(t *testing.T) {
		got, err := svc.UpdateProfile(ctx, a.ID, UpdateProfileParams{})
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.FirstName)
	})
}

func TestAvatarRoundTrip(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewAccountService(repo, NewMemoryAssetStore(), nil, WelcomePolicy{})
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterParams{
		Email: "ada@example.com", Password: "correcthorse", FirstName: "Ada",
	})
	require.NoError(t, err)

	payload := []byte{0x89, 'P', 'N', 'G'}
	updated, err := svc.UploadAvatar(ctx, a.ID, payload, "image/png")
	require.NoError(t, err)
	assert.NotEmpty(t, updated.AvatarURL)

	data, contentType, err := svc.GetAvatar(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/png", contentType)

	t.Run("empty payload rejected", func(t *testing.T) {
		_, err := svc.UploadAvatar(ctx, a.ID, nil, "image/png")
		require.Error(t, err)
		_, ok := core.AsValidation(err)
		assert.True(t, ok)
	})
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	repo := newTestStorage(t)
	txs := NewTransactionService(repo, nil, nil, nil)
	svc := NewAccountService(repo, NewMemoryAssetStore(), txs, WelcomePolicy{Enabled: true, Cents: 1000})
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterParams{
		Email: "ada@example.com", Password: "correcthorse", FirstName: "Ada",
	})
	require.NoError(t, err)
	_, err = svc.UploadAvatar(ctx, a.ID, []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, a.ID))

	_, err = svc.GetProfile(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	incomes, err := txs.List(ctx, a.ID, core.KindIncome)
	require.NoError(t, err)
	assert.Empty(t, incomes)

	_, _, err = svc.GetAvatar(ctx, a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSetAccountStatus(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewAccountService(repo, NewMemoryAssetStore(), nil, WelcomePolicy{})
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterParams{
		Email: "ada@example.com", Password: "correcthorse", FirstName: "Ada",
	})
	require.NoError(t, err)

	got, err := svc.SetAccountStatus(ctx, a.ID, core.StatusSuspended)
	require.NoError(t, err)
	assert.True(t, got.Suspended())

	_, err = svc.SetAccountStatus(ctx, a.ID, "banned")
	require.Error(t, err)
	_, ok := core.AsValidation(err)
	assert.True(t, ok)

	_, err = svc.SetAccountStatus(ctx, "missing", core.StatusActive)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
