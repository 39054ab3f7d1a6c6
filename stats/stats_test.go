package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pocket-ledger/calendar"
	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
	"github.com/warp/pocket-ledger/stats"
	"github.com/warp/pocket-ledger/store/sqlite"
)

type env struct {
	reader  *stats.Reader
	txs     *ledger.TransactionService
	catalog *ledger.CatalogService
	a, b    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := &env{
		reader:  stats.NewReader(store),
		txs:     ledger.NewTransactionService(store, nil),
		catalog: ledger.NewCatalogService(store, nil),
	}
	ctx := context.Background()
	a, err := e.catalog.CreateAccount(ctx, ledger.CreateAccountInput{Name: "Checking"})
	require.NoError(t, err)
	b, err := e.catalog.CreateAccount(ctx, ledger.CreateAccountInput{Name: "Card"})
	require.NoError(t, err)
	e.a, e.b = a.ID, b.ID
	return e
}

func on(m time.Month, d int) *time.Time {
	t := time.Date(2024, m, d, 12, 0, 0, 0, time.Local)
	return &t
}

func (e *env) add(t *testing.T, typ ledger.TxType, amount money.Cents, category, account string, date *time.Time) *ledger.Transaction {
	t.Helper()
	in := ledger.CreateTransactionInput{Type: typ, Amount: amount, CategoryID: category, AccountID: account, Date: date}
	if typ == ledger.TxTransfer {
		in.ToAccountID = &e.b
	}
	tx, err := e.txs.Create(context.Background(), in)
	require.NoError(t, err)
	return tx
}

func (e *env) seed(t *testing.T) {
	e.add(t, ledger.TxIncome, 300000, "sys-salary", e.a, on(time.January, 1))
	e.add(t, ledger.TxExpense, 4000, "sys-food", e.a, on(time.January, 5))
	e.add(t, ledger.TxExpense, 6000, "sys-food", e.b, on(time.January, 20))
	e.add(t, ledger.TxExpense, 10000, "sys-transport", e.a, on(time.February, 2))
	e.add(t, ledger.TxTransfer, 50000, "sys-transfer", e.a, on(time.February, 3))
	voided := e.add(t, ledger.TxExpense, 99999, "sys-food", e.a, on(time.February, 4))
	_, err := e.txs.Void(context.Background(), voided.ID)
	require.NoError(t, err)
}

func TestSummary_ExcludesTransfersAndVoid(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
	to := calendar.EndOfMonth(from.AddDate(0, 1, 0))
	sum, err := e.reader.Summary(context.Background(), from, to)
	require.NoError(t, err)

	assert.EqualValues(t, 300000, sum.Income)
	assert.EqualValues(t, 20000, sum.Expense)
	assert.EqualValues(t, 280000, sum.Net)
	assert.Equal(t, 4, sum.Count)
}

func TestTrend_Monthly(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.Local)
	points, err := e.reader.Trend(context.Background(), from, to, calendar.Month)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "Jan 2024", points[0].Period.Label)
	assert.EqualValues(t, 300000, points[0].Income)
	assert.EqualValues(t, 10000, points[0].Expense)
	assert.EqualValues(t, 10000, points[1].Expense)
	assert.EqualValues(t, -10000, points[1].Net)
	assert.Zero(t, points[2].Income)
	assert.Zero(t, points[2].Expense)
}

func TestCategoryBreakdown(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.Local)
	b, err := e.reader.CategoryBreakdown(context.Background(), ledger.TxExpense, from, to)
	require.NoError(t, err)

	assert.EqualValues(t, 20000, b.Total)
	require.Len(t, b.Shares, 2)
	assert.Equal(t, "sys-food", b.Shares[0].CategoryID)
	assert.Equal(t, "Food & Dining", b.Shares[0].Name)
	assert.EqualValues(t, 10000, b.Shares[0].Total)
	assert.Equal(t, 2, b.Shares[0].Count)
	assert.InDelta(t, 50.0, b.Shares[0].Percentage, 0.001)
	assert.InDelta(t, 50.0, b.Shares[1].Percentage, 0.001)

	_, err = e.reader.CategoryBreakdown(context.Background(), "gift", from, to)
	var ve *ledger.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestBudgetProgress(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	ctx := context.Background()

	food, err := e.catalog.CreateBudget(ctx, ledger.CreateBudgetInput{
		Name: "Food", CategoryID: ledger.StrPtr("sys-food"), Amount: 12000,
		StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local),
	})
	require.NoError(t, err)

	p, err := e.reader.BudgetProgress(ctx, food.ID, *on(time.January, 25))
	require.NoError(t, err)
	assert.EqualValues(t, 10000, p.Spent)
	assert.EqualValues(t, 2000, p.Remaining)
	assert.InDelta(t, 83.33, p.Percentage, 0.001)
	assert.True(t, p.Alert)
	assert.Equal(t, "Jan 2024", p.Window.Label)

	// voided February spending does not count
	p, err = e.reader.BudgetProgress(ctx, food.ID, *on(time.February, 10))
	require.NoError(t, err)
	assert.Zero(t, p.Spent)
	assert.False(t, p.Alert)

	_, err = e.reader.BudgetProgress(ctx, "ghost", time.Now())
	assert.True(t, ledger.IsNotFound(err))
}

func TestBudgetProgress_AccountScoped(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	ctx := context.Background()

	_, err := e.catalog.CreateBudget(ctx, ledger.CreateBudgetInput{
		Name: "Card", AccountID: &e.b, Amount: 5000, Period: ledger.BudgetYearly, AlertThreshold: 100,
		StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local),
	})
	require.NoError(t, err)

	all, err := e.reader.ActiveBudgetProgress(ctx, *on(time.June, 1))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.EqualValues(t, 6000, all[0].Spent, "transfers into the card are not spending")
	assert.EqualValues(t, -1000, all[0].Remaining)
	assert.True(t, all[0].Alert)
}
