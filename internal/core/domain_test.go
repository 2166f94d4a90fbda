package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}

func TestAccountValidate(t *testing.T) {
	acc := Account{Email: "ada@example.com", FirstName: "Ada"}
	assert.NoError(t, acc.Validate())

	acc = Account{Email: "not-an-email", FirstName: "Ada"}
	err := acc.Validate()
	require.Error(t, err)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "email", ve.Fields[0].Field)

	acc = Account{Email: "", FirstName: ""}
	err = acc.Validate()
	ve, ok = AsValidation(err)
	require.True(t, ok)
	assert.Len(t, ve.Fields, 2)
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Kind:     KindExpense,
		Amount:   Money{Cents: 1500},
		Category: "Food",
		Date:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, valid.Validate(DefaultExpenseCategories))

	t.Run("collects all failures", func(t *testing.T) {
		bad := Transaction{
			Kind:     KindExpense,
			Amount:   Money{Cents: -5},
			Category: "Yachts",
		}
		err := bad.Validate(DefaultExpenseCategories)
		require.Error(t, err)
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Len(t, ve.Fields, 3) // amount, category, date
	})

	t.Run("zero amount is legal", func(t *testing.T) {
		z := valid
		z.Amount = Money{}
		assert.NoError(t, z.Validate(DefaultExpenseCategories))
	})

	t.Run("income categories are independent", func(t *testing.T) {
		inc := Transaction{
			Kind:     KindIncome,
			Amount:   Money{Cents: 100},
			Category: "Salary",
			Date:     time.Now(),
		}
		assert.NoError(t, inc.Validate(DefaultIncomeCategories))
		assert.Error(t, inc.Validate(DefaultExpenseCategories))
	})
}

func TestValidationErrorMessage(t *testing.T) {
	ve := &ValidationError{}
	assert.NoError(t, ve.Err())
	ve.Add("amount", "must not be negative")
	ve.Add("category", "must not be empty")
	require.Error(t, ve.Err())
	assert.Contains(t, ve.Error(), "amount: must not be negative")
	assert.Contains(t, ve.Error(), "category: must not be empty")
}
