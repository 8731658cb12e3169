// Package classify maps product names to categories through an ordered,
// self-learning rule set.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/normalize"
	"github.com/feirante/feirante/internal/service"
)

// minTermLength is the shortest token worth learning a rule from.
const minTermLength = 3

// Classifier assigns categories by scanning learned rules in priority order.
type Classifier struct {
	storage service.Storage
}

// Result is the outcome of classifying a product name.
type Result struct {
	Confidence model.Confidence
	CategoryID int
	RuleID     int64
}

// New creates a classifier backed by the given storage.
func New(storage service.Storage) *Classifier {
	return &Classifier{storage: storage}
}

// Classify normalizes the name and returns the category of the first rule
// whose term is contained in it, scanning by priority descending. Names no
// rule matches fall back to the default category with low confidence.
//
// The first-match-wins substring scan is a deliberate heuristic: colliding
// terms across categories surface through the Low confidence review flag,
// not through smarter matching.
func (c *Classifier) Classify(ctx context.Context, productName string) (Result, error) {
	key := normalize.Key(productName)

	rules, err := c.storage.GetCategoryRules(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load category rules: %w", err)
	}

	for _, rule := range rules {
		if strings.Contains(key, rule.NormalizedTerm) {
			if err := c.storage.IncrementRuleUsage(ctx, rule.ID); err != nil {
				slog.Warn("Failed to increment rule usage", "rule_id", rule.ID, "error", err)
			}
			return Result{
				CategoryID: rule.CategoryID,
				Confidence: model.ConfidenceHigh,
				RuleID:     rule.ID,
			}, nil
		}
	}

	fallback, err := c.storage.CreateCategory(ctx, model.DefaultCategoryName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to ensure default category: %w", err)
	}

	return Result{
		CategoryID: fallback.ID,
		Confidence: model.ConfidenceLow,
	}, nil
}

// Learn records a curator-confirmed (product, category) pair by creating one
// rule per significant token of the product's normalized name. Terms that
// already have a rule are skipped, never overwritten, so classification
// quality only moves forward.
func (c *Classifier) Learn(ctx context.Context, productID string, categoryID int) error {
	return c.LearnIn(ctx, c.storage, productID, categoryID)
}

// LearnIn is Learn against an explicit storage handle, so curation can run
// it inside an open transaction.
func (c *Classifier) LearnIn(ctx context.Context, store service.Storage, productID string, categoryID int) error {
	product, err := store.GetProductByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}
	if product == nil {
		return fmt.Errorf("%w: product %s", common.ErrNotFound, productID)
	}

	category, err := store.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return fmt.Errorf("%w: category %d", common.ErrNotFound, categoryID)
	}

	created := 0
	for _, term := range normalize.Tokens(product.NormalizedName, minTermLength) {
		rule := &model.CategoryRule{
			NormalizedTerm: term,
			CategoryID:     categoryID,
			Priority:       len(term),
		}

		err := store.CreateCategoryRule(ctx, rule)
		if errors.Is(err, common.ErrDuplicateEntry) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create rule for term %q: %w", term, err)
		}
		created++
	}

	slog.Info("Learned category rules",
		"product_id", productID,
		"category_id", categoryID,
		"rules_created", created)

	return nil
}
