package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pocket-ledger/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var t0 = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.Local)

func seedAccount(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.InsertAccount(context.Background(), ledger.Account{
		ID: id, Name: id, Type: ledger.AccountBank, Currency: "USD",
		CreatedAt: t0, UpdatedAt: t0,
	}))
}

func TestNew_SeedsSystemCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all, err := s.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(systemCategories))

	transfer, err := s.ListCategories(ctx, ledger.TxTransfer)
	require.NoError(t, err)
	require.Len(t, transfer, 1)
	assert.True(t, transfer[0].IsSystem)
}

func TestTransaction_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")
	seedAccount(t, s, "b")

	in := ledger.Transaction{
		ID: "tx-1", Type: ledger.TxTransfer, Amount: 1250, CategoryID: "sys-transfer",
		AccountID: "a", ToAccountID: ledger.StrPtr("b"), Note: "rent split",
		Date: t0, Tags: []string{"home", "split"}, Attachments: []string{"receipt.png"},
		CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, s.InsertTransaction(ctx, in))

	got, err := s.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in.Tags, got.Tags)
	assert.Equal(t, in.Attachments, got.Attachments)
	assert.Equal(t, "b", *got.ToAccountID)
	assert.Nil(t, got.RecurringID)
	assert.True(t, in.Date.Equal(got.Date))
	assert.Equal(t, in.Amount, got.Amount)
}

func TestGetTransaction_Missing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetTransaction(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSchema_RejectsTransferWithoutTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	err := s.InsertTransaction(ctx, ledger.Transaction{
		ID: "tx-bad", Type: ledger.TxTransfer, Amount: 10, CategoryID: "sys-transfer",
		AccountID: "a", Date: t0, CreatedAt: t0, UpdatedAt: t0,
	})
	assert.Error(t, err)
}

func TestSchema_EnforcesForeignKeys(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertTransaction(context.Background(), ledger.Transaction{
		ID: "tx-orphan", Type: ledger.TxExpense, Amount: 10, CategoryID: "sys-food",
		AccountID: "ghost", Date: t0, CreatedAt: t0, UpdatedAt: t0,
	})
	assert.Error(t, err)
}

func TestUpdate_MissingRowIsNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.AdjustAccountBalance(context.Background(), "ghost", 100, t0)

	var nf *ledger.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "account", nf.Kind)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q ledger.Queries) error {
		require.NoError(t, q.AdjustAccountBalance(ctx, "a", 500, t0))
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := s.GetAccount(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 0, a.Balance)
}

func TestWithTx_Commits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	require.NoError(t, s.WithTx(ctx, func(q ledger.Queries) error {
		return q.AdjustAccountBalance(ctx, "a", -300, t0)
	}))

	a, err := s.GetAccount(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, -300, a.Balance)
}

func TestAccountTotals_IgnoresVoid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")
	seedAccount(t, s, "b")

	rows := []ledger.Transaction{
		{ID: "1", Type: ledger.TxIncome, Amount: 1000, CategoryID: "sys-salary", AccountID: "a"},
		{ID: "2", Type: ledger.TxExpense, Amount: 300, CategoryID: "sys-food", AccountID: "a"},
		{ID: "3", Type: ledger.TxExpense, Amount: 999, CategoryID: "sys-food", AccountID: "a", IsVoid: true},
		{ID: "4", Type: ledger.TxTransfer, Amount: 200, CategoryID: "sys-transfer", AccountID: "a", ToAccountID: ledger.StrPtr("b")},
		{ID: "5", Type: ledger.TxTransfer, Amount: 50, CategoryID: "sys-transfer", AccountID: "b", ToAccountID: ledger.StrPtr("a")},
	}
	for _, r := range rows {
		r.Date, r.CreatedAt, r.UpdatedAt = t0, t0, t0
		require.NoError(t, s.InsertTransaction(ctx, r))
	}

	totals, err := s.AccountTotals(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountTotals{Income: 1000, Expense: 300, TransferIn: 50, TransferOut: 200}, totals)
	assert.EqualValues(t, 550, totals.Net())
}

func TestListTransactions_Filter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	for i, d := range []time.Time{t0, t0.AddDate(0, 0, 1), t0.AddDate(0, 0, 2)} {
		require.NoError(t, s.InsertTransaction(ctx, ledger.Transaction{
			ID: string(rune('x' + i)), Type: ledger.TxExpense, Amount: 100, CategoryID: "sys-food",
			AccountID: "a", Date: d, CreatedAt: t0, UpdatedAt: t0,
		}))
	}

	from := t0.AddDate(0, 0, 1)
	got, err := s.ListTransactions(ctx, ledger.TransactionFilter{From: &from, AccountID: "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z", got[0].ID, "newest first")

	limited, err := s.ListTransactions(ctx, ledger.TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "y", limited[0].ID)
}

func TestRecurring_RoundTripAndDue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	dom := 31
	r := ledger.RecurringTransaction{
		ID: "r1", Name: "Rent", Type: ledger.TxExpense, Amount: 120000, CategoryID: "sys-housing",
		AccountID: "a", Tags: []string{"rent"}, Frequency: ledger.FreqMonthly, DayOfMonth: &dom,
		StartDate: t0, NextExecuteAt: t0, IsActive: true, CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, s.InsertRecurring(ctx, r))

	got, err := s.GetRecurring(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 31, *got.DayOfMonth)
	assert.Nil(t, got.DayOfWeek)
	assert.Nil(t, got.LastExecutedAt)
	assert.Equal(t, []string{"rent"}, got.Tags)

	due, err := s.ListRecurringDue(ctx, t0.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = s.ListRecurringDue(ctx, t0)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestDeleteRecurring_DetachesTransactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	require.NoError(t, s.InsertRecurring(ctx, ledger.RecurringTransaction{
		ID: "r1", Name: "Coffee", Type: ledger.TxExpense, Amount: 400, CategoryID: "sys-food",
		AccountID: "a", Frequency: ledger.FreqDaily, StartDate: t0, NextExecuteAt: t0,
		IsActive: true, CreatedAt: t0, UpdatedAt: t0,
	}))
	require.NoError(t, s.InsertTransaction(ctx, ledger.Transaction{
		ID: "tx", Type: ledger.TxExpense, Amount: 400, CategoryID: "sys-food", AccountID: "a",
		RecurringID: ledger.StrPtr("r1"), Date: t0, CreatedAt: t0, UpdatedAt: t0,
	}))

	require.NoError(t, s.DeleteRecurring(ctx, "r1"))

	tx, err := s.GetTransaction(ctx, "tx")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Nil(t, tx.RecurringID)
}

func TestCountReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "a")

	n, err := s.CountAccountReferences(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.InsertTransaction(ctx, ledger.Transaction{
		ID: "tx", Type: ledger.TxExpense, Amount: 1, CategoryID: "sys-food", AccountID: "a",
		Date: t0, CreatedAt: t0, UpdatedAt: t0,
	}))

	n, err = s.CountAccountReferences(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountCategoryReferences(ctx, "sys-food")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
