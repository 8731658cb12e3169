package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feirante/feirante/internal/model"
)

// CreateListItem persists one resolved line item. Items are written
// incrementally during processing so partial progress survives a crash.
func (s *SQLiteStorage) CreateListItem(ctx context.Context, item *model.ListItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateListItem(item); err != nil {
		return err
	}
	return s.createListItemTx(ctx, s.db, item)
}

func (s *SQLiteStorage) createListItemTx(ctx context.Context, q queryable, item *model.ListItem) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO list_items (list_id, product_id, quantity, unit, unit_price, total, original_text, purchased)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ListID,
		item.ProductID,
		item.Quantity,
		nullable(item.Unit),
		item.UnitPrice,
		item.Total,
		item.OriginalText,
		item.Purchased,
	)
	if err != nil {
		return fmt.Errorf("failed to create list item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get item id: %w", err)
	}
	item.ID = id

	return nil
}

// GetListItems returns the items of a list in insertion order.
func (s *SQLiteStorage) GetListItems(ctx context.Context, listID string) ([]model.ListItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(listID, "listID"); err != nil {
		return nil, err
	}
	return s.getListItemsTx(ctx, s.db, listID)
}

func (s *SQLiteStorage) getListItemsTx(ctx context.Context, q queryable, listID string) ([]model.ListItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, list_id, product_id, quantity, unit, unit_price, total, original_text, purchased
		FROM list_items
		WHERE list_id = ?
		ORDER BY id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.ListItem
	for rows.Next() {
		var item model.ListItem
		var unit, originalText sql.NullString
		var unitPrice, total sql.NullFloat64

		if err := rows.Scan(
			&item.ID,
			&item.ListID,
			&item.ProductID,
			&item.Quantity,
			&unit,
			&unitPrice,
			&total,
			&originalText,
			&item.Purchased,
		); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}

		item.Unit = unit.String
		item.OriginalText = originalText.String
		if unitPrice.Valid {
			item.UnitPrice = &unitPrice.Float64
		}
		if total.Valid {
			item.Total = &total.Float64
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// MigrateListItems repoints every item of one product at another. Used when
// merging a provisional product into an existing one.
func (s *SQLiteStorage) MigrateListItems(ctx context.Context, fromProductID, toProductID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fromProductID, "fromProductID"); err != nil {
		return err
	}
	if err := validateString(toProductID, "toProductID"); err != nil {
		return err
	}
	return s.migrateListItemsTx(ctx, s.db, fromProductID, toProductID)
}

func (s *SQLiteStorage) migrateListItemsTx(ctx context.Context, q queryable, fromProductID, toProductID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE list_items SET product_id = ? WHERE product_id = ?
	`, toProductID, fromProductID)
	if err != nil {
		return fmt.Errorf("failed to migrate list items: %w", err)
	}
	return nil
}
