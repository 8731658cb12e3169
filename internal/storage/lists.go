package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
)

// CreateList persists a newly submitted shopping list.
func (s *SQLiteStorage) CreateList(ctx context.Context, list *model.ShoppingList) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateList(list); err != nil {
		return err
	}
	return s.createListTx(ctx, s.db, list)
}

func (s *SQLiteStorage) createListTx(ctx context.Context, q queryable, list *model.ShoppingList) error {
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now()
	}
	if list.Source == "" {
		list.Source = model.ListSourceManual
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO shopping_lists (id, name, original_text, status, source, error_message, created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		list.ID,
		list.Name,
		list.OriginalText,
		list.Status,
		list.Source,
		nullable(list.ErrorMessage),
		list.CreatedAt,
		list.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: list %s", common.ErrDuplicateEntry, list.ID)
		}
		return fmt.Errorf("failed to create list: %w", err)
	}

	return nil
}

// GetListByID retrieves a shopping list, or nil if absent.
func (s *SQLiteStorage) GetListByID(ctx context.Context, id string) (*model.ShoppingList, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getListByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getListByIDTx(ctx context.Context, q queryable, id string) (*model.ShoppingList, error) {
	list, err := scanList(q.QueryRowContext(ctx, `
		SELECT id, name, original_text, status, source, error_message, created_at, processed_at
		FROM shopping_lists
		WHERE id = ?
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return list, nil
}

func scanList(row interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var list model.ShoppingList
	var errMsg sql.NullString
	var processedAt sql.NullTime

	err := row.Scan(
		&list.ID,
		&list.Name,
		&list.OriginalText,
		&list.Status,
		&list.Source,
		&errMsg,
		&list.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	list.ErrorMessage = errMsg.String
	if processedAt.Valid {
		list.ProcessedAt = &processedAt.Time
	}
	return &list, nil
}

// GetLists pages through lists, newest first.
func (s *SQLiteStorage) GetLists(ctx context.Context, limit, offset int) ([]model.ShoppingList, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getListsTx(ctx, s.db, limit, offset)
}

func (s *SQLiteStorage) getListsTx(ctx context.Context, q queryable, limit, offset int) ([]model.ShoppingList, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, original_text, status, source, error_message, created_at, processed_at
		FROM shopping_lists
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lists []model.ShoppingList
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, *list)
	}

	return lists, rows.Err()
}

// UpdateListStatus persists a lifecycle transition: status, error message
// and processed timestamp.
func (s *SQLiteStorage) UpdateListStatus(ctx context.Context, list *model.ShoppingList) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateList(list); err != nil {
		return err
	}
	return s.updateListStatusTx(ctx, s.db, list)
}

func (s *SQLiteStorage) updateListStatusTx(ctx context.Context, q queryable, list *model.ShoppingList) error {
	result, err := q.ExecContext(ctx, `
		UPDATE shopping_lists
		SET status = ?, error_message = ?, processed_at = ?
		WHERE id = ?
	`, list.Status, nullable(list.ErrorMessage), list.ProcessedAt, list.ID)
	if err != nil {
		return fmt.Errorf("failed to update list status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}
