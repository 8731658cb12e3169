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

const productColumns = `id, name, normalized_name, unit, store_code, category_id,
	needs_name_review, needs_category_review, created_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var product model.Product
	var unit, storeCode sql.NullString

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.NormalizedName,
		&unit,
		&storeCode,
		&product.CategoryID,
		&product.NeedsNameReview,
		&product.NeedsCategoryReview,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.Unit = unit.String
	product.StoreCode = storeCode.String
	return &product, nil
}

// nullable maps "" to NULL so the unique index on store_code only applies to
// real codes.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetProductByID retrieves a product by its id, or nil if absent.
func (s *SQLiteStorage) GetProductByID(ctx context.Context, id string) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getProductByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getProductByIDTx(ctx context.Context, q queryable, id string) (*model.Product, error) {
	product, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = ?
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// GetProductByStoreCode retrieves the product holding a store-issued code.
func (s *SQLiteStorage) GetProductByStoreCode(ctx context.Context, storeCode string) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(storeCode, "storeCode"); err != nil {
		return nil, err
	}
	return s.getProductByStoreCodeTx(ctx, s.db, storeCode)
}

func (s *SQLiteStorage) getProductByStoreCodeTx(ctx context.Context, q queryable, storeCode string) (*model.Product, error) {
	product, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE store_code = ?
	`, storeCode))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by store code: %w", err)
	}
	return product, nil
}

// GetProductByNormalizedName retrieves the product whose comparison key
// matches exactly.
func (s *SQLiteStorage) GetProductByNormalizedName(ctx context.Context, normalizedName string) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}
	return s.getProductByNormalizedNameTx(ctx, s.db, normalizedName)
}

func (s *SQLiteStorage) getProductByNormalizedNameTx(ctx context.Context, q queryable, normalizedName string) (*model.Product, error) {
	product, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE normalized_name = ?
	`, normalizedName))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by normalized name: %w", err)
	}
	return product, nil
}

// CreateProduct inserts a new product. Unique-constraint conflicts on the
// normalized name or store code map to common.ErrDuplicateEntry so callers
// can re-fetch the winner of a concurrent create race.
func (s *SQLiteStorage) CreateProduct(ctx context.Context, product *model.Product) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.createProductTx(ctx, s.db, product)
}

func (s *SQLiteStorage) createProductTx(ctx context.Context, q queryable, product *model.Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		product.ID,
		product.Name,
		product.NormalizedName,
		nullable(product.Unit),
		nullable(product.StoreCode),
		product.CategoryID,
		product.NeedsNameReview,
		product.NeedsCategoryReview,
		product.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: product %q", common.ErrDuplicateEntry, product.NormalizedName)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// UpdateProduct persists changes to an existing product.
func (s *SQLiteStorage) UpdateProduct(ctx context.Context, product *model.Product) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.updateProductTx(ctx, s.db, product)
}

func (s *SQLiteStorage) updateProductTx(ctx context.Context, q queryable, product *model.Product) error {
	result, err := q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, normalized_name = ?, unit = ?, store_code = ?,
			category_id = ?, needs_name_review = ?, needs_category_review = ?
		WHERE id = ?
	`,
		product.Name,
		product.NormalizedName,
		nullable(product.Unit),
		nullable(product.StoreCode),
		product.CategoryID,
		product.NeedsNameReview,
		product.NeedsCategoryReview,
		product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: product %q", common.ErrDuplicateEntry, product.NormalizedName)
		}
		return fmt.Errorf("failed to update product: %w", err)
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

// DeleteProduct removes a product. Only merge uses this; list items and
// price history must be migrated first.
func (s *SQLiteStorage) DeleteProduct(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.deleteProductTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteProductTx(ctx context.Context, q queryable, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
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

// GetActiveProducts returns the full catalog snapshot used for fuzzy
// matching and suggestion searches.
func (s *SQLiteStorage) GetActiveProducts(ctx context.Context) ([]model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getActiveProductsTx(ctx, s.db)
}

func (s *SQLiteStorage) getActiveProductsTx(ctx context.Context, q queryable) ([]model.Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products ORDER BY normalized_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	return products, rows.Err()
}

// GetProductsNeedingReview pages through products flagged for name or
// category curation, oldest first.
func (s *SQLiteStorage) GetProductsNeedingReview(ctx context.Context, limit, offset int) ([]model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getProductsNeedingReviewTx(ctx, s.db, limit, offset)
}

func (s *SQLiteStorage) getProductsNeedingReviewTx(ctx context.Context, q queryable, limit, offset int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE needs_name_review = 1 OR needs_category_review = 1
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products needing review: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	return products, rows.Err()
}

// CountProductsNeedingReview returns the size of the curation backlog.
func (s *SQLiteStorage) CountProductsNeedingReview(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countProductsNeedingReviewTx(ctx, s.db)
}

func (s *SQLiteStorage) countProductsNeedingReviewTx(ctx context.Context, q queryable) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products
		WHERE needs_name_review = 1 OR needs_category_review = 1
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products needing review: %w", err)
	}
	return count, nil
}
