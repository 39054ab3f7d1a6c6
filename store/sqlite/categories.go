package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/pocket-ledger/ledger"
)

const categoryColumns = `id, name, type, icon, color, parent_id, is_system, is_archived,
	sort_order, created_at, updated_at`

func scanCategory(row scanner) (ledger.Category, error) {
	var (
		c                    ledger.Category
		parentID             sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Icon, &c.Color, &parentID,
		&c.IsSystem, &c.IsArchived, &c.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		return c, err
	}
	c.ParentID = stringPtr(parentID)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (q *queries) GetCategory(ctx context.Context, id string) (*ledger.Category, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (q *queries) ListCategories(ctx context.Context, typ ledger.TxType) ([]ledger.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories"
	var args []any
	if typ != "" {
		query += " WHERE type = ?"
		args = append(args, typ)
	}
	query += " ORDER BY type, sort_order, name"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *queries) InsertCategory(ctx context.Context, c ledger.Category) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Type, c.Icon, c.Color, nullString(c.ParentID),
		c.IsSystem, c.IsArchived, c.SortOrder, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// UpdateCategory never rewrites type or is_system.
func (q *queries) UpdateCategory(ctx context.Context, c ledger.Category) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE categories SET
			name = ?, icon = ?, color = ?, parent_id = ?, is_archived = ?,
			sort_order = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Icon, c.Color, nullString(c.ParentID), c.IsArchived,
		c.SortOrder, toMillis(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return expectRow(res, "category", c.ID)
}

func (q *queries) DeleteCategory(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectRow(res, "category", id)
}

// CountCategoryReferences counts transactions and templates using the category.
func (q *queries) CountCategoryReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE category_id = ?) +
			(SELECT COUNT(*) FROM recurring_transactions WHERE category_id = ?)`,
		id, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count category references: %w", err)
	}
	return n, nil
}
