package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feirante/feirante/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidSynonym = errors.New("invalid synonym")
	ErrInvalidRule    = errors.New("invalid category rule")
	ErrInvalidList    = errors.New("invalid shopping list")
	ErrInvalidItem    = errors.New("invalid list item")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateProduct(product *model.Product) error {
	if product == nil {
		return fmt.Errorf("%w: product", ErrNilParameter)
	}
	if product.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidProduct)
	}
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProduct)
	}
	if product.NormalizedName == "" {
		return fmt.Errorf("%w: missing normalized name", ErrInvalidProduct)
	}
	if product.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidProduct)
	}
	return nil
}

func validateSynonym(synonym *model.ProductSynonym) error {
	if synonym == nil {
		return fmt.Errorf("%w: synonym", ErrNilParameter)
	}
	if synonym.NormalizedText == "" {
		return fmt.Errorf("%w: missing normalized text", ErrInvalidSynonym)
	}
	if synonym.ProductID == "" {
		return fmt.Errorf("%w: missing product ID", ErrInvalidSynonym)
	}
	return nil
}

func validateRule(rule *model.CategoryRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.NormalizedTerm == "" {
		return fmt.Errorf("%w: missing term", ErrInvalidRule)
	}
	if rule.CategoryID <= 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	if rule.Priority <= 0 {
		return fmt.Errorf("%w: priority must be positive", ErrInvalidRule)
	}
	return nil
}

func validateList(list *model.ShoppingList) error {
	if list == nil {
		return fmt.Errorf("%w: list", ErrNilParameter)
	}
	if list.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidList)
	}
	switch list.Status {
	case model.ListStatusPending, model.ListStatusProcessing,
		model.ListStatusCompleted, model.ListStatusFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidList, list.Status)
	}
	return nil
}

func validateListItem(item *model.ListItem) error {
	if item == nil {
		return fmt.Errorf("%w: item", ErrNilParameter)
	}
	if item.ListID == "" {
		return fmt.Errorf("%w: missing list ID", ErrInvalidItem)
	}
	if item.ProductID == "" {
		return fmt.Errorf("%w: missing product ID", ErrInvalidItem)
	}
	if item.Quantity < 0 {
		return fmt.Errorf("%w: negative quantity", ErrInvalidItem)
	}
	return nil
}
