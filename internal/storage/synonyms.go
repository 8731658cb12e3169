package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/feirante/feirante/internal/model"
)

// GetSynonymByNormalizedText returns the synonym for a comparison key, or
// nil if none exists. normalized_text is not unique: when two products both
// acquired a synonym with the same key, the most recently created one wins.
func (s *SQLiteStorage) GetSynonymByNormalizedText(ctx context.Context, normalizedText string) (*model.ProductSynonym, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedText, "normalizedText"); err != nil {
		return nil, err
	}
	return s.getSynonymByNormalizedTextTx(ctx, s.db, normalizedText)
}

func (s *SQLiteStorage) getSynonymByNormalizedTextTx(ctx context.Context, q queryable, normalizedText string) (*model.ProductSynonym, error) {
	var synonym model.ProductSynonym
	err := q.QueryRowContext(ctx, `
		SELECT id, original_text, normalized_text, product_id, source, created_at
		FROM product_synonyms
		WHERE normalized_text = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, normalizedText).Scan(
		&synonym.ID,
		&synonym.OriginalText,
		&synonym.NormalizedText,
		&synonym.ProductID,
		&synonym.Source,
		&synonym.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get synonym: %w", err)
	}

	return &synonym, nil
}

// CreateSynonym records an alternate text form for a product.
func (s *SQLiteStorage) CreateSynonym(ctx context.Context, synonym *model.ProductSynonym) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSynonym(synonym); err != nil {
		return err
	}
	return s.createSynonymTx(ctx, s.db, synonym)
}

func (s *SQLiteStorage) createSynonymTx(ctx context.Context, q queryable, synonym *model.ProductSynonym) error {
	if synonym.CreatedAt.IsZero() {
		synonym.CreatedAt = time.Now()
	}
	if synonym.Source == "" {
		synonym.Source = model.SynonymSourceCorrection
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO product_synonyms (original_text, normalized_text, product_id, source, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		synonym.OriginalText,
		synonym.NormalizedText,
		synonym.ProductID,
		synonym.Source,
		synonym.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create synonym: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get synonym id: %w", err)
	}
	synonym.ID = id

	return nil
}

// MigrateSynonyms repoints every synonym of one product at another so
// learned lookups survive a merge.
func (s *SQLiteStorage) MigrateSynonyms(ctx context.Context, fromProductID, toProductID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fromProductID, "fromProductID"); err != nil {
		return err
	}
	if err := validateString(toProductID, "toProductID"); err != nil {
		return err
	}
	return s.migrateSynonymsTx(ctx, s.db, fromProductID, toProductID)
}

func (s *SQLiteStorage) migrateSynonymsTx(ctx context.Context, q queryable, fromProductID, toProductID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE product_synonyms SET product_id = ? WHERE product_id = ?
	`, toProductID, fromProductID)
	if err != nil {
		return fmt.Errorf("failed to migrate synonyms: %w", err)
	}
	return nil
}
