package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
)

const accountColumns = `id, name, type, currency, balance, initial_balance, icon, color,
	is_archived, sort_order, created_at, updated_at`

func scanAccount(row scanner) (ledger.Account, error) {
	var (
		a                    ledger.Account
		createdAt, updatedAt int64
	)
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Currency, &a.Balance, &a.InitialBalance,
		&a.Icon, &a.Color, &a.IsArchived, &a.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		return a, err
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

// GetAccount returns nil, nil when the account does not exist.
func (q *queries) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (q *queries) ListAccounts(ctx context.Context, includeArchived bool) ([]ledger.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts"
	if !includeArchived {
		query += " WHERE is_archived = 0"
	}
	query += " ORDER BY sort_order, name"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *queries) InsertAccount(ctx context.Context, a ledger.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.Currency, a.Balance, a.InitialBalance, a.Icon, a.Color,
		a.IsArchived, a.SortOrder, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// UpdateAccount writes descriptive fields. balance and initial_balance are
// deliberately not part of this statement.
func (q *queries) UpdateAccount(ctx context.Context, a ledger.Account) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET
			name = ?, type = ?, currency = ?, icon = ?, color = ?,
			is_archived = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, a.Type, a.Currency, a.Icon, a.Color,
		a.IsArchived, a.SortOrder, toMillis(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectRow(res, "account", a.ID)
}

func (q *queries) AdjustAccountBalance(ctx context.Context, id string, delta money.Cents, at time.Time) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE id = ?",
		delta, toMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return expectRow(res, "account", id)
}

func (q *queries) SetAccountBalance(ctx context.Context, id string, balance money.Cents, at time.Time) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?",
		balance, toMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return expectRow(res, "account", id)
}

func (q *queries) DeleteAccount(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectRow(res, "account", id)
}

// CountAccountReferences counts transactions and templates touching the account.
func (q *queries) CountAccountReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE account_id = ? OR to_account_id = ?) +
			(SELECT COUNT(*) FROM recurring_transactions WHERE account_id = ? OR to_account_id = ?)`,
		id, id, id, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count account references: %w", err)
	}
	return n, nil
}
