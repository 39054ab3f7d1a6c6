package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/pocket-ledger/ledger"
)

const budgetColumns = `id, name, category_id, account_id, amount, period, start_date, end_date,
	alert_threshold, is_active, created_at, updated_at`

func scanBudget(row scanner) (ledger.Budget, error) {
	var (
		b                               ledger.Budget
		categoryID, accountID           sql.NullString
		endDate                         sql.NullInt64
		startDate, createdAt, updatedAt int64
	)
	err := row.Scan(&b.ID, &b.Name, &categoryID, &accountID, &b.Amount, &b.Period, &startDate, &endDate,
		&b.AlertThreshold, &b.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return b, err
	}
	b.CategoryID = stringPtr(categoryID)
	b.AccountID = stringPtr(accountID)
	b.StartDate = fromMillis(startDate)
	b.EndDate = timePtr(endDate)
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	return b, nil
}

func (q *queries) GetBudget(ctx context.Context, id string) (*ledger.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &b, nil
}

func (q *queries) ListBudgets(ctx context.Context, activeOnly bool) ([]ledger.Budget, error) {
	query := "SELECT " + budgetColumns + " FROM budgets"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []ledger.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *queries) InsertBudget(ctx context.Context, b ledger.Budget) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, nullString(b.CategoryID), nullString(b.AccountID), b.Amount, b.Period,
		toMillis(b.StartDate), nullMillis(b.EndDate), b.AlertThreshold, b.IsActive,
		toMillis(b.CreatedAt), toMillis(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

func (q *queries) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE budgets SET
			name = ?, category_id = ?, account_id = ?, amount = ?, period = ?,
			start_date = ?, end_date = ?, alert_threshold = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		b.Name, nullString(b.CategoryID), nullString(b.AccountID), b.Amount, b.Period,
		toMillis(b.StartDate), nullMillis(b.EndDate), b.AlertThreshold, b.IsActive, toMillis(b.UpdatedAt),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return expectRow(res, "budget", b.ID)
}

func (q *queries) DeleteBudget(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return expectRow(res, "budget", id)
}
