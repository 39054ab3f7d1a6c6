package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/pocket-ledger/ledger"
)

const recurringColumns = `id, name, type, amount, category_id, account_id, to_account_id, note, tags,
	frequency, day_of_month, day_of_week, start_date, end_date, last_executed_at, next_execute_at,
	is_active, created_at, updated_at`

func scanRecurring(row scanner) (ledger.RecurringTransaction, error) {
	var (
		r                                       ledger.RecurringTransaction
		toAccountID                             sql.NullString
		tags                                    string
		dayOfMonth, dayOfWeek, endDate, lastRun sql.NullInt64
		startDate, nextRun, createdAt, updated  int64
	)
	err := row.Scan(&r.ID, &r.Name, &r.Type, &r.Amount, &r.CategoryID, &r.AccountID, &toAccountID,
		&r.Note, &tags, &r.Frequency, &dayOfMonth, &dayOfWeek, &startDate, &endDate, &lastRun,
		&nextRun, &r.IsActive, &createdAt, &updated)
	if err != nil {
		return r, err
	}
	r.ToAccountID = stringPtr(toAccountID)
	r.DayOfMonth = intPtr(dayOfMonth)
	r.DayOfWeek = intPtr(dayOfWeek)
	r.StartDate = fromMillis(startDate)
	r.EndDate = timePtr(endDate)
	r.LastExecutedAt = timePtr(lastRun)
	r.NextExecuteAt = fromMillis(nextRun)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updated)
	r.Tags, err = decodeList(tags)
	return r, err
}

func (q *queries) GetRecurring(ctx context.Context, id string) (*ledger.RecurringTransaction, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+recurringColumns+" FROM recurring_transactions WHERE id = ?", id)
	r, err := scanRecurring(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring transaction: %w", err)
	}
	return &r, nil
}

func (q *queries) ListRecurring(ctx context.Context, activeOnly bool) ([]ledger.RecurringTransaction, error) {
	query := "SELECT " + recurringColumns + " FROM recurring_transactions"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY next_execute_at, name"
	return q.queryRecurring(ctx, query)
}

func (q *queries) ListRecurringDue(ctx context.Context, asOf time.Time) ([]ledger.RecurringTransaction, error) {
	return q.queryRecurring(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_transactions
		WHERE is_active = 1 AND next_execute_at <= ?
		ORDER BY next_execute_at, created_at`,
		toMillis(asOf),
	)
}

func (q *queries) queryRecurring(ctx context.Context, query string, args ...any) ([]ledger.RecurringTransaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring transactions: %w", err)
	}
	defer rows.Close()

	var templates []ledger.RecurringTransaction
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring transaction: %w", err)
		}
		templates = append(templates, r)
	}
	return templates, rows.Err()
}

func (q *queries) InsertRecurring(ctx context.Context, r ledger.RecurringTransaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (`+recurringColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Type, r.Amount, r.CategoryID, r.AccountID, nullString(r.ToAccountID),
		r.Note, encodeList(r.Tags), r.Frequency, nullInt(r.DayOfMonth), nullInt(r.DayOfWeek),
		toMillis(r.StartDate), nullMillis(r.EndDate), nullMillis(r.LastExecutedAt),
		toMillis(r.NextExecuteAt), r.IsActive, toMillis(r.CreatedAt), toMillis(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring transaction: %w", err)
	}
	return nil
}

func (q *queries) UpdateRecurring(ctx context.Context, r ledger.RecurringTransaction) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET
			name = ?, type = ?, amount = ?, category_id = ?, account_id = ?, to_account_id = ?,
			note = ?, tags = ?, frequency = ?, day_of_month = ?, day_of_week = ?,
			start_date = ?, end_date = ?, last_executed_at = ?, next_execute_at = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Type, r.Amount, r.CategoryID, r.AccountID, nullString(r.ToAccountID),
		r.Note, encodeList(r.Tags), r.Frequency, nullInt(r.DayOfMonth), nullInt(r.DayOfWeek),
		toMillis(r.StartDate), nullMillis(r.EndDate), nullMillis(r.LastExecutedAt), toMillis(r.NextExecuteAt),
		r.IsActive, toMillis(r.UpdatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring transaction: %w", err)
	}
	return expectRow(res, "recurring", r.ID)
}

// DeleteRecurring removes a template; materialized transactions keep their
// rows with recurring_id set to NULL.
func (q *queries) DeleteRecurring(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM recurring_transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring transaction: %w", err)
	}
	return expectRow(res, "recurring", id)
}
