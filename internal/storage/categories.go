package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feirante/feirante/internal/model"
)

// GetCategories returns all active categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoriesTx(ctx, s.db)
}

func (s *SQLiteStorage) getCategoriesTx(ctx context.Context, q queryable) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, created_at, is_active
		FROM categories
		WHERE is_active = 1
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	return categories, rows.Err()
}

// GetCategoryByID returns a category by its id, or nil if absent.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCategoryByIDTx(ctx context.Context, q queryable, id int) (*model.Category, error) {
	var cat model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at, is_active
		FROM categories
		WHERE id = ?
	`, id).Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.IsActive)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// GetCategoryByName returns a category by its name, or nil if absent.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategoryByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getCategoryByNameTx(ctx context.Context, q queryable, name string) (*model.Category, error) {
	var cat model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at, is_active
		FROM categories
		WHERE name = ? AND is_active = 1
	`, name).Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.IsActive)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// CreateCategory creates a new category, reactivating or returning an
// existing one with the same name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.createCategoryTx(ctx, s.db, name)
}

func (s *SQLiteStorage) createCategoryTx(ctx context.Context, q queryable, name string) (*model.Category, error) {
	var existing model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, created_at, is_active
		FROM categories
		WHERE name = ?
	`, name).Scan(&existing.ID, &existing.Name, &existing.CreatedAt, &existing.IsActive)

	if err == nil {
		if !existing.IsActive {
			if _, err := q.ExecContext(ctx, `UPDATE categories SET is_active = 1 WHERE id = ?`, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", err)
			}
			existing.IsActive = true
		}
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO categories (name, created_at, is_active)
		VALUES (?, ?, 1)
	`, name, now)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a concurrent create race; the row exists now.
			return s.getCategoryByNameTx(ctx, q, name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category id: %w", err)
	}

	return &model.Category{
		ID:        int(id),
		Name:      name,
		CreatedAt: now,
		IsActive:  true,
	}, nil
}
