package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
)

// GetCategoryRules returns all classification rules in evaluation order:
// priority descending, then term ascending for a deterministic tie-break.
func (s *SQLiteStorage) GetCategoryRules(ctx context.Context) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategoryRulesTx(ctx, s.db)
}

func (s *SQLiteStorage) getCategoryRulesTx(ctx context.Context, q queryable) ([]model.CategoryRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, normalized_term, category_id, priority, usage_count, created_at
		FROM category_rules
		ORDER BY priority DESC, normalized_term ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		var rule model.CategoryRule
		if err := rows.Scan(
			&rule.ID,
			&rule.NormalizedTerm,
			&rule.CategoryID,
			&rule.Priority,
			&rule.UsageCount,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// CreateCategoryRule inserts a new classification rule. A unique-constraint
// conflict on the term maps to common.ErrDuplicateEntry; existing rules are
// never overwritten.
func (s *SQLiteStorage) CreateCategoryRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.createCategoryRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) createCategoryRuleTx(ctx context.Context, q queryable, rule *model.CategoryRule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO category_rules (normalized_term, category_id, priority, usage_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rule.NormalizedTerm, rule.CategoryID, rule.Priority, rule.UsageCount, rule.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rule term %q", common.ErrDuplicateEntry, rule.NormalizedTerm)
		}
		return fmt.Errorf("failed to create category rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule id: %w", err)
	}
	rule.ID = id

	return nil
}

// IncrementRuleUsage bumps a rule's usage counter after a successful match.
func (s *SQLiteStorage) IncrementRuleUsage(ctx context.Context, ruleID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.incrementRuleUsageTx(ctx, s.db, ruleID)
}

func (s *SQLiteStorage) incrementRuleUsageTx(ctx context.Context, q queryable, ruleID int64) error {
	result, err := q.ExecContext(ctx, `
		UPDATE category_rules SET usage_count = usage_count + 1 WHERE id = ?
	`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
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
