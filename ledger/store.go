/*
store.go - Persistence contract for the ledger

PURPOSE:

	Defines the interface between the services and the database. The store is
	pure row-level CRUD plus a handful of aggregates; it enforces schema
	constraints (foreign keys, CHECKs) but no business rules.

KEY INTERFACES:

	Queries: every read/write, usable on the bare store or inside a unit of work
	Store:   Queries + WithTx (atomic unit of work) + Close

LOOKUP CONVENTION:

	Get* methods return (nil, nil) when the row does not exist.
	Update and Delete methods return *NotFoundError when no row matched.

UNIT OF WORK:

	WithTx hands fn a Queries bound to one database transaction. If fn returns
	an error everything is rolled back; otherwise it commits. Services that
	accept a Queries parameter (CreateWithBalance, *InTx) never open their own
	unit of work, so callers can compose several operations atomically.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (use ":memory:" in tests)
*/
package ledger

import (
	"context"
	"time"

	"github.com/warp/pocket-ledger/money"
)

// Queries is the full row-level contract.
type Queries interface {
	// Accounts
	GetAccount(ctx context.Context, id string) (*Account, error)
	ListAccounts(ctx context.Context, includeArchived bool) ([]Account, error)
	InsertAccount(ctx context.Context, a Account) error
	UpdateAccount(ctx context.Context, a Account) error
	AdjustAccountBalance(ctx context.Context, id string, delta money.Cents, at time.Time) error
	SetAccountBalance(ctx context.Context, id string, balance money.Cents, at time.Time) error
	DeleteAccount(ctx context.Context, id string) error
	CountAccountReferences(ctx context.Context, id string) (int, error)

	// Categories
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context, typ TxType) ([]Category, error)
	InsertCategory(ctx context.Context, c Category) error
	UpdateCategory(ctx context.Context, c Category) error
	DeleteCategory(ctx context.Context, id string) error
	CountCategoryReferences(ctx context.Context, id string) (int, error)

	// Transactions
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	InsertTransaction(ctx context.Context, t Transaction) error
	UpdateTransaction(ctx context.Context, t Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	AccountTotals(ctx context.Context, accountID string) (AccountTotals, error)
	SumByType(ctx context.Context, f TransactionFilter) (map[TxType]money.Cents, error)
	SumByCategory(ctx context.Context, f TransactionFilter) ([]CategoryTotal, error)

	// Recurring templates
	GetRecurring(ctx context.Context, id string) (*RecurringTransaction, error)
	ListRecurring(ctx context.Context, activeOnly bool) ([]RecurringTransaction, error)
	// ListRecurringDue returns active templates with NextExecuteAt <= asOf,
	// oldest first. End dates are not filtered here.
	ListRecurringDue(ctx context.Context, asOf time.Time) ([]RecurringTransaction, error)
	InsertRecurring(ctx context.Context, r RecurringTransaction) error
	UpdateRecurring(ctx context.Context, r RecurringTransaction) error
	DeleteRecurring(ctx context.Context, id string) error

	// Budgets
	GetBudget(ctx context.Context, id string) (*Budget, error)
	ListBudgets(ctx context.Context, activeOnly bool) ([]Budget, error)
	InsertBudget(ctx context.Context, b Budget) error
	UpdateBudget(ctx context.Context, b Budget) error
	DeleteBudget(ctx context.Context, id string) error
}

// Store is the ledger's durable table set.
type Store interface {
	Queries

	// WithTx executes fn within a database transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	Close() error
}
