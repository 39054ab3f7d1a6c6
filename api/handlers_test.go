/*
handlers_test.go - HTTP tests for the ledger API

Requests go through NewRouter against an in-memory SQLite store, so routing,
JSON mapping and error status codes are exercised together.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pocket-ledger/store/sqlite"
)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, "USD", nil)
	return &testServer{t: t, handler: h, router: NewRouter(h)}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) account(name string, initial int64) AccountDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/accounts", map[string]any{"name": name, "type": "bank", "initial_balance": initial})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AccountDTO](s.t, rec)
}

func (s *testServer) balance(id string) int64 {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/accounts/"+id, nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	return int64(decode[AccountDTO](s.t, rec).Balance)
}

// =============================================================================
// TRANSACTION LIFECYCLE
// =============================================================================

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	acct := s.account("Checking", 0)

	// GIVEN: an expense of 5.00 sent as a display amount
	rec := s.do(http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount_display": "5.00", "category_id": "sys-food",
		"account_id": acct.ID, "date": "2024-03-10", "tags": []string{"lunch"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[TransactionDTO](t, rec)
	assert.EqualValues(t, 500, tx.Amount)
	assert.Equal(t, "$5.00", tx.AmountDisplay)
	assert.Equal(t, []string{"lunch"}, tx.Tags)
	assert.EqualValues(t, -500, s.balance(acct.ID))

	// WHEN: edited to income of 3.00
	rec = s.do(http.MethodPut, "/api/transactions/"+tx.ID, map[string]any{
		"type": "income", "amount": 300, "category_id": "sys-salary",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 300, s.balance(acct.ID))

	// WHEN: voided twice
	rec = s.do(http.MethodPost, "/api/transactions/"+tx.ID+"/void", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[TransactionDTO](t, rec).IsVoid)
	assert.EqualValues(t, 0, s.balance(acct.ID))

	rec = s.do(http.MethodPost, "/api/transactions/"+tx.ID+"/void", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.EqualValues(t, 0, s.balance(acct.ID))

	// WHEN: deleted
	rec = s.do(http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 0, s.balance(acct.ID))
}

func TestCreateTransaction_Errors(t *testing.T) {
	s := newTestServer(t)
	acct := s.account("Checking", 0)

	rec := s.do(http.MethodPost, "/api/transactions", map[string]any{
		"type": "transfer", "amount": 100, "category_id": "sys-transfer", "account_id": acct.ID,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "toAccountId", decode[ErrorResponse](t, rec).Field)

	rec = s.do(http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": 100, "category_id": "sys-food", "account_id": "ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": 100, "category_id": "sys-food", "account_id": acct.ID, "date": "yesterday",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date", decode[ErrorResponse](t, rec).Field)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	s.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestTransfer_MovesBothAccounts(t *testing.T) {
	s := newTestServer(t)
	from := s.account("Checking", 10000)
	to := s.account("Savings", 0)

	rec := s.do(http.MethodPost, "/api/transactions", map[string]any{
		"type": "transfer", "amount": 2500, "category_id": "sys-transfer",
		"account_id": from.ID, "to_account_id": to.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 7500, s.balance(from.ID))
	assert.EqualValues(t, 2500, s.balance(to.ID))

	rec = s.do(http.MethodGet, "/api/transactions?account_id="+to.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/transactions?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ACCOUNTS & CATEGORIES
// =============================================================================

func TestAccounts_DeleteAndRecalculate(t *testing.T) {
	s := newTestServer(t)
	acct := s.account("Wallet", 1000)
	assert.Equal(t, "$10.00", acct.BalanceDisplay)

	rec := s.do(http.MethodPost, "/api/transactions", map[string]any{
		"type": "income", "amount": 500, "category_id": "sys-bonus", "account_id": acct.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodDelete, "/api/accounts/"+acct.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/accounts/"+acct.ID+"/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recalc := decode[RecalculateDTO](t, rec)
	assert.EqualValues(t, 1500, recalc.Balance)
	assert.Equal(t, "$15.00", recalc.BalanceDisplay)

	rec = s.do(http.MethodPut, "/api/accounts/"+acct.ID, map[string]any{"is_archived": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[AccountDTO](t, rec).IsArchived)

	rec = s.do(http.MethodGet, "/api/accounts", nil)
	assert.Empty(t, decode[[]AccountDTO](t, rec))
	rec = s.do(http.MethodGet, "/api/accounts?include_archived=true", nil)
	assert.Len(t, decode[[]AccountDTO](t, rec), 1)
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/categories?type=income", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range decode[[]CategoryDTO](t, rec) {
		assert.Equal(t, "income", c.Type)
	}

	rec = s.do(http.MethodDelete, "/api/categories/sys-food", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/categories", map[string]any{"name": "Coffee", "type": "expense", "parent_id": "sys-food"})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decode[CategoryDTO](t, rec)

	rec = s.do(http.MethodDelete, "/api/categories/"+c.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/categories?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RECURRING
// =============================================================================

func TestRecurring_CreateRunAndSkip(t *testing.T) {
	s := newTestServer(t)
	acct := s.account("Checking", 100000)
	today := time.Now().Format(time.DateOnly)

	rec := s.do(http.MethodPost, "/api/recurring", map[string]any{
		"name": "Rent", "type": "expense", "amount": 90000, "category_id": "sys-housing",
		"account_id": acct.ID, "frequency": "daily", "start_date": today,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tmpl := decode[RecurringDTO](t, rec)
	assert.True(t, tmpl.IsActive)

	rec = s.do(http.MethodGet, "/api/recurring/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RecurringDTO](t, rec), 1)

	rec = s.do(http.MethodPost, "/api/recurring/run-due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]ExecutionResultDTO](t, rec)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success, results[0].Error)
	assert.EqualValues(t, 10000, s.balance(acct.ID))

	// nothing left to run today
	rec = s.do(http.MethodPost, "/api/recurring/run-due", nil)
	assert.Empty(t, decode[[]ExecutionResultDTO](t, rec))

	rec = s.do(http.MethodGet, "/api/recurring/runner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[RunnerStatusDTO](t, rec)
	assert.NotNil(t, status.LastRun)
	assert.Nil(t, status.NextRun)

	rec = s.do(http.MethodPost, "/api/recurring/"+tmpl.ID+"/skip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	skipped := decode[RecurringDTO](t, rec)
	assert.True(t, skipped.NextExecuteAt.After(time.Now()))

	rec = s.do(http.MethodPost, "/api/recurring/"+tmpl.ID+"/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[RecurringDTO](t, rec).IsActive)

	rec = s.do(http.MethodPost, "/api/recurring/"+tmpl.ID+"/skip", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/transactions?recurring_id="+tmpl.ID, nil)
	txs := decode[[]TransactionDTO](t, rec)
	require.Len(t, txs, 1)
	assert.Contains(t, txs[0].Tags, tmpl.ID)
}

func TestRecurring_ValidationAndMissing(t *testing.T) {
	s := newTestServer(t)
	acct := s.account("Checking", 0)

	rec := s.do(http.MethodPost, "/api/recurring", map[string]any{
		"name": "Gym", "type": "expense", "amount": 100, "category_id": "sys-health",
		"account_id": acct.ID, "frequency": "monthly", "day_of_month": 40,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "dayOfMonth", decode[ErrorResponse](t, rec).Field)

	rec = s.do(http.MethodPost, "/api/recurring/ghost/execute", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// BUDGETS & STATS
// =============================================================================

func TestBudgetsAndStats(t *testing.T) {
	s := newTestServer(t)
	acct := s.account("Checking", 0)

	for _, body := range []map[string]any{
		{"type": "income", "amount": 200000, "category_id": "sys-salary", "account_id": acct.ID, "date": "2024-05-01"},
		{"type": "expense", "amount": 45000, "category_id": "sys-food", "account_id": acct.ID, "date": "2024-05-03"},
		{"type": "expense", "amount": 15000, "category_id": "sys-transport", "account_id": acct.ID, "date": "2024-05-31"},
	} {
		rec := s.do(http.MethodPost, "/api/transactions", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodGet, "/api/stats/summary?from=2024-05-01&to=2024-05-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[SummaryDTO](t, rec)
	assert.EqualValues(t, 200000, sum.Income)
	assert.EqualValues(t, 60000, sum.Expense)
	assert.Equal(t, "$1,400.00", sum.NetDisplay)
	assert.Equal(t, 3, sum.Count)

	rec = s.do(http.MethodGet, "/api/stats/trend?from=2024-04-01&to=2024-05-31&granularity=month", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trend := decode[[]TrendPointDTO](t, rec)
	require.Len(t, trend, 2)
	assert.Equal(t, "May 2024", trend[1].Label)
	assert.EqualValues(t, 60000, trend[1].Expense)

	rec = s.do(http.MethodGet, "/api/stats/categories?type=expense&from=2024-05-01&to=2024-05-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	breakdown := decode[BreakdownDTO](t, rec)
	require.Len(t, breakdown.Shares, 2)
	assert.Equal(t, "sys-food", breakdown.Shares[0].CategoryID)
	assert.InDelta(t, 75.0, breakdown.Shares[0].Percentage, 0.001)

	rec = s.do(http.MethodGet, "/api/stats/trend?granularity=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/budgets", map[string]any{
		"name": "Food", "category_id": "sys-food", "amount_display": "500", "start_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budget := decode[BudgetDTO](t, rec)
	assert.EqualValues(t, 50000, budget.Amount)
	assert.Equal(t, "monthly", budget.Period)

	rec = s.do(http.MethodGet, "/api/budgets/"+budget.ID+"/progress?date=2024-05-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[BudgetProgressDTO](t, rec)
	assert.EqualValues(t, 45000, progress.Spent)
	assert.EqualValues(t, 5000, progress.Remaining)
	assert.True(t, progress.Alert)

	rec = s.do(http.MethodGet, "/api/budgets/progress?date=2024-06-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]BudgetProgressDTO](t, rec)
	require.Len(t, all, 1)
	assert.Zero(t, all[0].Spent)

	rec = s.do(http.MethodGet, "/api/budgets/ghost/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}
