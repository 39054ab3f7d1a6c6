/*
Package sqlite provides the SQLite-backed ledger store.

PURPOSE:

	Implements ledger.Store: row-level CRUD for accounts, categories,
	transactions, recurring templates and budgets, plus the aggregates the
	reconciler and readers need. No business rules live here; the schema
	enforces foreign keys and CHECK constraints only.

KEY TABLES:

	accounts:               cached balance + immutable initial_balance
	categories:             typed, optionally nested, system rows seeded
	transactions:           amount in cents, JSON tags/attachments, is_void
	recurring_transactions: templates with next_execute_at schedule
	budgets:                read-only collaborators of the core

ENCODING:
  - Timestamps are INTEGER epoch milliseconds.
  - Tags and attachments are JSON text arrays, decoded to []string here and
    nowhere else.
  - Booleans are INTEGER 0/1.

UNIT OF WORK:

	WithTx runs fn against a queries value bound to one *sql.Tx. The pool is
	limited to a single connection: SQLite has a single writer anyway, and a
	":memory:" database only exists on the connection that created it.
	Consequence: never call the bare Store from inside fn, use the Queries it
	receives.

USAGE:

	store, err := sqlite.New("./ledger.db")
	if err != nil {
	    return err
	}
	defer store.Close()

SEE ALSO:
  - ledger/store.go: interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/pocket-ledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	queries
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{db: db}, db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		type            TEXT NOT NULL CHECK (type IN ('cash', 'bank', 'credit', 'investment', 'other')),
		currency        TEXT NOT NULL DEFAULT 'USD',
		balance         INTEGER NOT NULL DEFAULT 0,
		initial_balance INTEGER NOT NULL DEFAULT 0,
		icon            TEXT NOT NULL DEFAULT '',
		color           TEXT NOT NULL DEFAULT '',
		is_archived     INTEGER NOT NULL DEFAULT 0 CHECK (is_archived IN (0, 1)),
		sort_order      INTEGER NOT NULL DEFAULT 0,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL CHECK (type IN ('expense', 'income', 'transfer')),
		icon        TEXT NOT NULL DEFAULT '',
		color       TEXT NOT NULL DEFAULT '',
		parent_id   TEXT REFERENCES categories(id) ON DELETE SET NULL,
		is_system   INTEGER NOT NULL DEFAULT 0 CHECK (is_system IN (0, 1)),
		is_archived INTEGER NOT NULL DEFAULT 0 CHECK (is_archived IN (0, 1)),
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_categories_type ON categories(type);

	CREATE TABLE IF NOT EXISTS recurring_transactions (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		type             TEXT NOT NULL CHECK (type IN ('expense', 'income', 'transfer')),
		amount           INTEGER NOT NULL CHECK (amount >= 0),
		category_id      TEXT NOT NULL REFERENCES categories(id),
		account_id       TEXT NOT NULL REFERENCES accounts(id),
		to_account_id    TEXT REFERENCES accounts(id),
		note             TEXT NOT NULL DEFAULT '',
		tags             TEXT NOT NULL DEFAULT '[]',
		frequency        TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly', 'biweekly', 'monthly', 'quarterly', 'yearly')),
		day_of_month     INTEGER CHECK (day_of_month BETWEEN 1 AND 31),
		day_of_week      INTEGER CHECK (day_of_week BETWEEN 0 AND 6),
		start_date       INTEGER NOT NULL,
		end_date         INTEGER,
		last_executed_at INTEGER,
		next_execute_at  INTEGER NOT NULL,
		is_active        INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL,
		CHECK ((type = 'transfer') = (to_account_id IS NOT NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_recurring_due
		ON recurring_transactions(is_active, next_execute_at);

	CREATE TABLE IF NOT EXISTS transactions (
		id            TEXT PRIMARY KEY,
		type          TEXT NOT NULL CHECK (type IN ('expense', 'income', 'transfer')),
		amount        INTEGER NOT NULL CHECK (amount >= 0),
		category_id   TEXT NOT NULL REFERENCES categories(id),
		account_id    TEXT NOT NULL REFERENCES accounts(id),
		to_account_id TEXT REFERENCES accounts(id),
		note          TEXT NOT NULL DEFAULT '',
		date          INTEGER NOT NULL,
		tags          TEXT NOT NULL DEFAULT '[]',
		attachments   TEXT NOT NULL DEFAULT '[]',
		recurring_id  TEXT REFERENCES recurring_transactions(id) ON DELETE SET NULL,
		is_void       INTEGER NOT NULL DEFAULT 0 CHECK (is_void IN (0, 1)),
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL,
		CHECK ((type = 'transfer') = (to_account_id IS NOT NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_transactions_to_account
		ON transactions(to_account_id) WHERE to_account_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_recurring
		ON transactions(recurring_id) WHERE recurring_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS budgets (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		category_id     TEXT REFERENCES categories(id) ON DELETE CASCADE,
		account_id      TEXT REFERENCES accounts(id) ON DELETE CASCADE,
		amount          INTEGER NOT NULL CHECK (amount >= 0),
		period          TEXT NOT NULL CHECK (period IN ('monthly', 'yearly')),
		start_date      INTEGER NOT NULL,
		end_date        INTEGER,
		alert_threshold INTEGER NOT NULL DEFAULT 80 CHECK (alert_threshold BETWEEN 0 AND 100),
		is_active       INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);
`

// systemCategories are seeded once and protected from deletion and reparenting.
var systemCategories = []ledger.Category{
	{ID: "sys-food", Name: "Food & Dining", Type: ledger.TxExpense, Icon: "utensils", Color: "#F97316"},
	{ID: "sys-transport", Name: "Transportation", Type: ledger.TxExpense, Icon: "car", Color: "#3B82F6"},
	{ID: "sys-shopping", Name: "Shopping", Type: ledger.TxExpense, Icon: "shopping-bag", Color: "#EC4899"},
	{ID: "sys-housing", Name: "Housing", Type: ledger.TxExpense, Icon: "home", Color: "#8B5CF6"},
	{ID: "sys-utilities", Name: "Utilities", Type: ledger.TxExpense, Icon: "zap", Color: "#EAB308"},
	{ID: "sys-entertainment", Name: "Entertainment", Type: ledger.TxExpense, Icon: "film", Color: "#14B8A6"},
	{ID: "sys-health", Name: "Health", Type: ledger.TxExpense, Icon: "heart", Color: "#EF4444"},
	{ID: "sys-expense-other", Name: "Other Expense", Type: ledger.TxExpense, Icon: "more-horizontal", Color: "#6B7280"},
	{ID: "sys-salary", Name: "Salary", Type: ledger.TxIncome, Icon: "briefcase", Color: "#22C55E"},
	{ID: "sys-bonus", Name: "Bonus", Type: ledger.TxIncome, Icon: "gift", Color: "#84CC16"},
	{ID: "sys-investment", Name: "Investment Income", Type: ledger.TxIncome, Icon: "trending-up", Color: "#06B6D4"},
	{ID: "sys-income-other", Name: "Other Income", Type: ledger.TxIncome, Icon: "plus-circle", Color: "#6B7280"},
	{ID: "sys-transfer", Name: "Transfer", Type: ledger.TxTransfer, Icon: "repeat", Color: "#64748B"},
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	now := toMillis(time.Now())
	for i, c := range systemCategories {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO categories
			(id, name, type, icon, color, parent_id, is_system, is_archived, sort_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, NULL, 1, 0, ?, ?, ?)`,
			c.ID, c.Name, c.Type, c.Icon, c.Color, i, now, now,
		)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	return nil
}

// =============================================================================
// QUERIES - shared by the bare store and transactions
// =============================================================================

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

var _ ledger.Queries = (*queries)(nil)

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(raw string) ([]string, error) {
	var items []string
	if raw == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode list %q: %w", raw, err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// expectRow turns a zero-row UPDATE/DELETE into a *ledger.NotFoundError.
func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
