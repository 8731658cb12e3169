// Package curation implements the human-in-the-loop corrections that feed
// the classifier's rules and the resolver's synonym table.
package curation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feirante/feirante/internal/classify"
	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/normalize"
	"github.com/feirante/feirante/internal/resolve"
	"github.com/feirante/feirante/internal/service"
)

// maxSuggestions caps the similar-name suggestions shown per product.
const maxSuggestions = 5

// Service exposes the approve/merge operations consumed by curators.
type Service struct {
	storage    service.Storage
	classifier *classify.Classifier
}

// ReviewItem is a product awaiting curation with similar-name suggestions.
type ReviewItem struct {
	Product     model.Product
	Suggestions []resolve.Suggestion
}

// Corrections carries the optional fixes a curator applies on approval.
// MergeIntoProductID is exclusive with the other fields.
type Corrections struct {
	NewName            string
	MergeIntoProductID string
	NewCategoryID      int
}

// New creates a curation service.
func New(storage service.Storage, classifier *classify.Classifier) *Service {
	return &Service{storage: storage, classifier: classifier}
}

// ListPendingReview pages through products flagged for name or category
// review, attaching up to five similar-name suggestions each.
func (s *Service) ListPendingReview(ctx context.Context, page, pageSize int) ([]ReviewItem, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := s.storage.CountProductsNeedingReview(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count review backlog: %w", err)
	}

	products, err := s.storage.GetProductsNeedingReview(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load review backlog: %w", err)
	}

	catalog, err := s.storage.GetActiveProducts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	items := make([]ReviewItem, 0, len(products))
	for _, product := range products {
		items = append(items, ReviewItem{
			Product:     product,
			Suggestions: resolve.TopSuggestions(product.Name, catalog, product.ID, maxSuggestions),
		})
	}

	return items, total, nil
}

// ApproveWithCorrections settles a provisional product. A changed name turns
// the old name into a synonym of this product before the rename; a changed
// category teaches the classifier new rules. Everything commits atomically
// or not at all.
func (s *Service) ApproveWithCorrections(ctx context.Context, productID string, corrections Corrections) error {
	if corrections.MergeIntoProductID != "" {
		if corrections.NewName != "" || corrections.NewCategoryID != 0 {
			return fmt.Errorf("%w: merge cannot be combined with other corrections", common.ErrInvalidCorrection)
		}
		return s.MergeProducts(ctx, productID, corrections.MergeIntoProductID)
	}

	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	product, err := tx.GetProductByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return fmt.Errorf("%w: product %s", common.ErrNotFound, productID)
	}

	if corrections.NewName != "" && corrections.NewName != product.Name {
		if err := s.renameProduct(ctx, tx, product, corrections.NewName); err != nil {
			return err
		}
	}

	if corrections.NewCategoryID != 0 && corrections.NewCategoryID != product.CategoryID {
		category, err := tx.GetCategoryByID(ctx, corrections.NewCategoryID)
		if err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			return fmt.Errorf("%w: unknown category %d", common.ErrInvalidCorrection, corrections.NewCategoryID)
		}
		product.CategoryID = corrections.NewCategoryID
	}

	// Approval settles the product either way.
	product.NeedsNameReview = false
	product.NeedsCategoryReview = false

	if err := tx.UpdateProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	if corrections.NewCategoryID != 0 {
		if err := s.classifier.LearnIn(ctx, tx, product.ID, product.CategoryID); err != nil {
			return fmt.Errorf("failed to learn from correction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}

	slog.Info("Approved product",
		"product_id", productID,
		"renamed", corrections.NewName != "",
		"recategorized", corrections.NewCategoryID != 0)

	return nil
}

// renameProduct keeps the old identity reachable: the previous name becomes
// a synonym of the product before the new name takes over.
func (s *Service) renameProduct(ctx context.Context, tx service.Transaction, product *model.Product, newName string) error {
	newKey := normalize.Key(newName)
	if newKey == "" {
		return fmt.Errorf("%w: name %q normalizes to nothing", common.ErrInvalidCorrection, newName)
	}

	if newKey != product.NormalizedName {
		existing, err := tx.GetProductByNormalizedName(ctx, newKey)
		if err != nil {
			return fmt.Errorf("failed to check name collision: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: another product already has name %q (use merge)", common.ErrInvalidCorrection, newName)
		}
	}

	synonym := &model.ProductSynonym{
		OriginalText:   product.Name,
		NormalizedText: product.NormalizedName,
		ProductID:      product.ID,
		Source:         model.SynonymSourceCorrection,
	}
	if err := tx.CreateSynonym(ctx, synonym); err != nil {
		return fmt.Errorf("failed to record old name as synonym: %w", err)
	}

	product.Name = newName
	product.NormalizedName = newKey
	return nil
}

// MergeProducts folds a provisional product into an existing one: the
// source's name becomes a synonym of the target, list items and price
// history migrate, and the source is deleted, all in one transaction.
func (s *Service) MergeProducts(ctx context.Context, sourceID, targetID string) error {
	if sourceID == targetID {
		return common.ErrSelfMerge
	}

	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	source, err := tx.GetProductByID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to load source product: %w", err)
	}
	if source == nil {
		return fmt.Errorf("%w: source product %s", common.ErrNotFound, sourceID)
	}

	target, err := tx.GetProductByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to load target product: %w", err)
	}
	if target == nil {
		return fmt.Errorf("%w: target product %s", common.ErrNotFound, targetID)
	}

	synonym := &model.ProductSynonym{
		OriginalText:   source.Name,
		NormalizedText: source.NormalizedName,
		ProductID:      target.ID,
		Source:         model.SynonymSourceMerge,
	}
	if err := tx.CreateSynonym(ctx, synonym); err != nil {
		return fmt.Errorf("failed to create merge synonym: %w", err)
	}

	if err := tx.MigrateListItems(ctx, source.ID, target.ID); err != nil {
		return err
	}
	if err := tx.MigratePriceRecords(ctx, source.ID, target.ID); err != nil {
		return err
	}
	if err := tx.MigrateSynonyms(ctx, source.ID, target.ID); err != nil {
		return err
	}

	// The source's store code moves to the target if the target has none.
	if source.StoreCode != "" && target.StoreCode == "" {
		code := source.StoreCode
		source.StoreCode = ""
		if err := tx.UpdateProduct(ctx, source); err != nil {
			return fmt.Errorf("failed to release source store code: %w", err)
		}
		target.StoreCode = code
		if err := tx.UpdateProduct(ctx, target); err != nil {
			return fmt.Errorf("failed to move store code to target: %w", err)
		}
	}

	if err := tx.DeleteProduct(ctx, source.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}

	slog.Info("Merged products", "source_id", sourceID, "target_id", targetID)

	return nil
}
