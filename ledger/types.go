/*
Package ledger provides the personal-finance ledger core.

PURPOSE:

	Holds the data model (accounts, categories, transactions, recurring
	templates, budgets), the persistence contract, and the two services that
	carry real invariants:
	- Reconciler: the only writer of Account.Balance
	- TransactionService: create/update/void/delete with balance effects

KEY INVARIANT:

	account.Balance == account.InitialBalance + net effect of every non-void
	transaction touching the account. Every mutation that can break it runs
	inside a single unit of work (Store.WithTx).

SEE ALSO:
  - store.go: Queries and Store interfaces
  - balance.go: Reconciler
  - transactions.go: TransactionService
  - store/sqlite: the SQLite implementation
*/
package ledger

import (
	"time"

	"github.com/warp/pocket-ledger/money"
)

// =============================================================================
// ENUMS
// =============================================================================

// TxType is the kind of a transaction; it determines the balance effect.
type TxType string

const (
	TxExpense  TxType = "expense"
	TxIncome   TxType = "income"
	TxTransfer TxType = "transfer"
)

func (t TxType) Valid() bool {
	switch t {
	case TxExpense, TxIncome, TxTransfer:
		return true
	}
	return false
}

// AccountType classifies an account.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountBank, AccountCredit, AccountInvestment, AccountOther:
		return true
	}
	return false
}

// Frequency is how often a recurring template fires.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqQuarterly, FreqYearly:
		return true
	}
	return false
}

// BudgetPeriod is the window a budget amount applies to.
type BudgetPeriod string

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

func (p BudgetPeriod) Valid() bool { return p == BudgetMonthly || p == BudgetYearly }

// =============================================================================
// ROWS
// =============================================================================

type Account struct {
	ID             string
	Name           string
	Type           AccountType
	Currency       string
	Balance        money.Cents // cached; written only by Reconciler
	InitialBalance money.Cents // immutable baseline
	Icon           string
	Color          string
	IsArchived     bool
	SortOrder      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Category struct {
	ID         string
	Name       string
	Type       TxType // fixed at creation
	Icon       string
	Color      string
	ParentID   *string
	IsSystem   bool
	IsArchived bool
	SortOrder  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Transaction struct {
	ID          string
	Type        TxType
	Amount      money.Cents
	CategoryID  string
	AccountID   string
	ToAccountID *string // set iff Type == TxTransfer
	Note        string
	Date        time.Time // logical date, distinct from CreatedAt
	Tags        []string
	Attachments []string
	RecurringID *string
	IsVoid      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Effect is the balance-relevant projection of a transaction.
func (t Transaction) Effect() Effect {
	return Effect{Type: t.Type, Amount: t.Amount, AccountID: t.AccountID, ToAccountID: t.ToAccountID}
}

type RecurringTransaction struct {
	ID             string
	Name           string
	Type           TxType
	Amount         money.Cents
	CategoryID     string
	AccountID      string
	ToAccountID    *string
	Note           string
	Tags           []string
	Frequency      Frequency
	DayOfMonth     *int // 1-31, clamped to the month length
	DayOfWeek      *int // 0 (Sunday) - 6
	StartDate      time.Time
	EndDate        *time.Time
	LastExecutedAt *time.Time
	NextExecuteAt  time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Budget struct {
	ID             string
	Name           string
	CategoryID     *string
	AccountID      *string
	Amount         money.Cents
	Period         BudgetPeriod
	StartDate      time.Time
	EndDate        *time.Time
	AlertThreshold int // percent
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// =============================================================================
// FILTERS AND AGGREGATES
// =============================================================================

// TransactionFilter narrows ListTransactions and SumTransactions.
// Zero values mean "no constraint".
type TransactionFilter struct {
	From        *time.Time
	To          *time.Time
	AccountID   string // matches either side of a transfer
	CategoryID  string
	Type        TxType
	RecurringID string
	IncludeVoid bool
	Limit       int
	Offset      int
}

// AccountTotals are the non-void sums feeding a balance recomputation.
type AccountTotals struct {
	Income      money.Cents
	Expense     money.Cents
	TransferIn  money.Cents
	TransferOut money.Cents
}

// Net returns the signed effect of the totals on a balance.
func (a AccountTotals) Net() money.Cents {
	return a.Income - a.Expense + a.TransferIn - a.TransferOut
}

// CategoryTotal is one row of a per-category aggregation.
type CategoryTotal struct {
	CategoryID string
	Total      money.Cents
	Count      int
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
