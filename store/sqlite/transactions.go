package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/warp/pocket-ledger/ledger"
	"github.com/warp/pocket-ledger/money"
)

const transactionColumns = `id, type, amount, category_id, account_id, to_account_id, note,
	date, tags, attachments, recurring_id, is_void, created_at, updated_at`

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		t                          ledger.Transaction
		toAccountID, recurringID   sql.NullString
		tags, attachments          string
		date, createdAt, updatedAt int64
	)
	err := row.Scan(&t.ID, &t.Type, &t.Amount, &t.CategoryID, &t.AccountID, &toAccountID, &t.Note,
		&date, &tags, &attachments, &recurringID, &t.IsVoid, &createdAt, &updatedAt)
	if err != nil {
		return t, err
	}
	t.ToAccountID = stringPtr(toAccountID)
	t.RecurringID = stringPtr(recurringID)
	t.Date = fromMillis(date)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	if t.Tags, err = decodeList(tags); err != nil {
		return t, err
	}
	if t.Attachments, err = decodeList(attachments); err != nil {
		return t, err
	}
	return t, nil
}

func (q *queries) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// ListTransactions returns matching transactions, newest first.
func (q *queries) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	where, args := filterClause(f)
	query := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (q *queries) InsertTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.Amount, t.CategoryID, t.AccountID, nullString(t.ToAccountID), t.Note,
		toMillis(t.Date), encodeList(t.Tags), encodeList(t.Attachments), nullString(t.RecurringID),
		t.IsVoid, toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE transactions SET
			type = ?, amount = ?, category_id = ?, account_id = ?, to_account_id = ?,
			note = ?, date = ?, tags = ?, attachments = ?, recurring_id = ?,
			is_void = ?, updated_at = ?
		WHERE id = ?`,
		t.Type, t.Amount, t.CategoryID, t.AccountID, nullString(t.ToAccountID),
		t.Note, toMillis(t.Date), encodeList(t.Tags), encodeList(t.Attachments), nullString(t.RecurringID),
		t.IsVoid, toMillis(t.UpdatedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectRow(res, "transaction", t.ID)
}

func (q *queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectRow(res, "transaction", id)
}

// =============================================================================
// AGGREGATES
// =============================================================================

// AccountTotals sums the non-void history of one account.
func (q *queries) AccountTotals(ctx context.Context, accountID string) (ledger.AccountTotals, error) {
	var t ledger.AccountTotals
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income'   AND account_id = ?    THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense'  AND account_id = ?    THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'transfer' AND to_account_id = ? THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'transfer' AND account_id = ?    THEN amount END), 0)
		FROM transactions
		WHERE is_void = 0 AND (account_id = ? OR to_account_id = ?)`,
		accountID, accountID, accountID, accountID, accountID, accountID,
	).Scan(&t.Income, &t.Expense, &t.TransferIn, &t.TransferOut)
	if err != nil {
		return t, fmt.Errorf("failed to sum account transactions: %w", err)
	}
	return t, nil
}

func (q *queries) SumByType(ctx context.Context, f ledger.TransactionFilter) (map[ledger.TxType]money.Cents, error) {
	where, args := filterClause(f)
	rows, err := q.db.QueryContext(ctx,
		"SELECT type, COALESCE(SUM(amount), 0) FROM transactions"+where+" GROUP BY type", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	sums := make(map[ledger.TxType]money.Cents)
	for rows.Next() {
		var (
			typ ledger.TxType
			sum money.Cents
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, err
		}
		sums[typ] = sum
	}
	return sums, rows.Err()
}

func (q *queries) SumByCategory(ctx context.Context, f ledger.TransactionFilter) ([]ledger.CategoryTotal, error) {
	where, args := filterClause(f)
	rows, err := q.db.QueryContext(ctx, `
		SELECT category_id, COALESCE(SUM(amount), 0) AS total, COUNT(*)
		FROM transactions`+where+`
		GROUP BY category_id
		ORDER BY total DESC, category_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by category: %w", err)
	}
	defer rows.Close()

	var totals []ledger.CategoryTotal
	for rows.Next() {
		var ct ledger.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Total, &ct.Count); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// filterClause renders f as a WHERE clause (with leading space) and its args.
func filterClause(f ledger.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeVoid {
		conds = append(conds, "is_void = 0")
	}
	if f.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, toMillis(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, toMillis(*f.To))
	}
	if f.AccountID != "" {
		conds = append(conds, "(account_id = ? OR to_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.RecurringID != "" {
		conds = append(conds, "recurring_id = ?")
		args = append(args, f.RecurringID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
