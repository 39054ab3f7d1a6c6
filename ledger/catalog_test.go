package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
)

func TestCreateAccount_Defaults(t *testing.T) {
	f := newFixture(t)
	a, err := f.catalog.CreateAccount(context.Background(), ledger.CreateAccountInput{
		Name: "  Wallet ", InitialBalance: 1234,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wallet", a.Name)
	assert.Equal(t, ledger.AccountOther, a.Type)
	assert.Equal(t, money.DefaultCurrency, a.Currency)
	assert.EqualValues(t, 1234, a.Balance)

	_, err = f.catalog.CreateAccount(context.Background(), ledger.CreateAccountInput{Name: " "})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestDeleteAccount_WithHistoryRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 0)

	_, err := f.txs.Create(ctx, ledger.CreateTransactionInput{
		Type: ledger.TxExpense, Amount: 5, CategoryID: "sys-food", AccountID: a,
	})
	require.NoError(t, err)

	err = f.catalog.DeleteAccount(ctx, a)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	archived, err := f.catalog.SetAccountArchived(ctx, a, true)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)

	open, err := f.catalog.ListAccounts(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestDeleteAccount_Unused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 0)

	require.NoError(t, f.catalog.DeleteAccount(ctx, a))
	_, err := f.catalog.GetAccount(ctx, a)
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateAccount_PatchesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 0)

	name, cur := "Checking", "eur"
	updated, err := f.catalog.UpdateAccount(ctx, a, ledger.UpdateAccountInput{Name: &name, Currency: &cur})
	require.NoError(t, err)
	assert.Equal(t, "Checking", updated.Name)
	assert.Equal(t, "EUR", updated.Currency)
	assert.Equal(t, ledger.AccountBank, updated.Type)
}

func TestSystemCategories_Protected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.catalog.DeleteCategory(ctx, "sys-food")
	var se *ledger.StateError
	require.True(t, errors.As(err, &se))

	_, err = f.catalog.UpdateCategory(ctx, "sys-food", ledger.UpdateCategoryInput{ParentID: ptr("sys-shopping")})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	// renaming is allowed
	renamed, err := f.catalog.UpdateCategory(ctx, "sys-food", ledger.UpdateCategoryInput{Name: ptr("Groceries")})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", renamed.Name)
	assert.True(t, renamed.IsSystem)
}

func TestCreateCategory_ParentMustShareType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.CreateCategory(ctx, ledger.CreateCategoryInput{
		Name: "Coffee", Type: ledger.TxExpense, ParentID: ptr("sys-salary"),
	})
	var ve *ledger.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "parentId", ve.Field)

	c, err := f.catalog.CreateCategory(ctx, ledger.CreateCategoryInput{
		Name: "Coffee", Type: ledger.TxExpense, ParentID: ptr("sys-food"),
	})
	require.NoError(t, err)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, "sys-food", *c.ParentID)

	_, err = f.catalog.UpdateCategory(ctx, c.ID, ledger.UpdateCategoryInput{ParentID: &c.ID})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestDeleteCategory_Referenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 0)

	c, err := f.catalog.CreateCategory(ctx, ledger.CreateCategoryInput{Name: "Coffee", Type: ledger.TxExpense})
	require.NoError(t, err)
	_, err = f.txs.Create(ctx, ledger.CreateTransactionInput{
		Type: ledger.TxExpense, Amount: 3, CategoryID: c.ID, AccountID: a,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, c.ID), ledger.ErrInvalidState)
	assert.True(t, ledger.IsNotFound(f.catalog.DeleteCategory(ctx, "ghost")))
}

func TestCreateBudget_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.catalog.CreateBudget(ctx, ledger.CreateBudgetInput{
		Name: "Food", CategoryID: ptr("sys-food"), Amount: 40000,
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.BudgetMonthly, b.Period)
	assert.Equal(t, 80, b.AlertThreshold)
	assert.True(t, b.IsActive)

	paused, err := f.catalog.SetBudgetActive(ctx, b.ID, false)
	require.NoError(t, err)
	assert.False(t, paused.IsActive)

	active, err := f.catalog.ListBudgets(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.catalog.CreateBudget(ctx, ledger.CreateBudgetInput{Name: "Bad", Amount: 0})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = f.catalog.CreateBudget(ctx, ledger.CreateBudgetInput{Name: "Bad", Amount: 1, AlertThreshold: 150})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, ledger.IsClientError(&ledger.ValidationError{Field: "x", Message: "y"}))
	assert.True(t, ledger.IsClientError(&ledger.NotFoundError{Kind: "account", ID: "a"}))
	assert.True(t, ledger.IsClientError(&ledger.StateError{ID: "a", Message: "m"}))
	assert.False(t, ledger.IsClientError(errors.New("disk on fire")))
}
