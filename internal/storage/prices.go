package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feirante/feirante/internal/model"
)

// SavePriceRecord appends one observed price for a product.
func (s *SQLiteStorage) SavePriceRecord(ctx context.Context, record *model.PriceRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateString(record.ProductID, "productID"); err != nil {
		return err
	}
	return s.savePriceRecordTx(ctx, s.db, record)
}

func (s *SQLiteStorage) savePriceRecordTx(ctx context.Context, q queryable, record *model.PriceRecord) error {
	if record.ObservedAt.IsZero() {
		record.ObservedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO price_history (product_id, price, store_name, source, observed_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		record.ProductID,
		record.Price,
		nullable(record.StoreName),
		record.Source,
		record.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save price record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get price record id: %w", err)
	}
	record.ID = id

	return nil
}

// GetLatestPriceRecord returns the most recent observed price for a product,
// or nil when no price was ever recorded.
func (s *SQLiteStorage) GetLatestPriceRecord(ctx context.Context, productID string) (*model.PriceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(productID, "productID"); err != nil {
		return nil, err
	}
	return s.getLatestPriceRecordTx(ctx, s.db, productID)
}

func (s *SQLiteStorage) getLatestPriceRecordTx(ctx context.Context, q queryable, productID string) (*model.PriceRecord, error) {
	var record model.PriceRecord
	var storeName sql.NullString

	err := q.QueryRowContext(ctx, `
		SELECT id, product_id, price, store_name, source, observed_at
		FROM price_history
		WHERE product_id = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1
	`, productID).Scan(
		&record.ID,
		&record.ProductID,
		&record.Price,
		&storeName,
		&record.Source,
		&record.ObservedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	record.StoreName = storeName.String
	return &record, nil
}

// MigratePriceRecords repoints price history from one product to another.
func (s *SQLiteStorage) MigratePriceRecords(ctx context.Context, fromProductID, toProductID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fromProductID, "fromProductID"); err != nil {
		return err
	}
	if err := validateString(toProductID, "toProductID"); err != nil {
		return err
	}
	return s.migratePriceRecordsTx(ctx, s.db, fromProductID, toProductID)
}

func (s *SQLiteStorage) migratePriceRecordsTx(ctx context.Context, q queryable, fromProductID, toProductID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE price_history SET product_id = ? WHERE product_id = ?
	`, toProductID, fromProductID)
	if err != nil {
		return fmt.Errorf("failed to migrate price records: %w", err)
	}
	return nil
}
