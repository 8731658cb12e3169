// Package resolve finds or creates the canonical product for raw item text.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/normalize"
	"github.com/feirante/feirante/internal/service"
)

// Resolver maps raw names to canonical products using, in order: store code,
// curator-approved synonym, exact normalized name, creation. The ordering is
// a trust hierarchy: a store-issued code is authoritative, a synonym was
// approved by a human, an exact textual match is weaker, and anything else
// needs review.
type Resolver struct {
	storage service.Storage
}

// New creates a resolver backed by the given storage.
func New(storage service.Storage) *Resolver {
	return &Resolver{storage: storage}
}

// Resolve returns the canonical product for a raw name, creating a
// provisional one flagged for review when no strategy matches.
func (r *Resolver) Resolve(ctx context.Context, nameRaw, storeCode string, categoryID int) (*model.Product, model.MatchOrigin, error) {
	return r.ResolveIn(ctx, r.storage, nameRaw, storeCode, categoryID)
}

// ResolveIn is Resolve against an explicit storage handle, so callers can
// run it inside an open transaction.
func (r *Resolver) ResolveIn(ctx context.Context, store service.Storage, nameRaw, storeCode string, categoryID int) (*model.Product, model.MatchOrigin, error) {
	if storeCode != "" {
		product, err := store.GetProductByStoreCode(ctx, storeCode)
		if err != nil {
			return nil, "", fmt.Errorf("store code lookup failed: %w", err)
		}
		if product != nil {
			return product, model.OriginStoreCode, nil
		}
	}

	key := normalize.Key(nameRaw)
	if key == "" {
		return nil, "", fmt.Errorf("product name %q normalizes to nothing", nameRaw)
	}

	synonym, err := store.GetSynonymByNormalizedText(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("synonym lookup failed: %w", err)
	}
	if synonym != nil {
		product, err := store.GetProductByID(ctx, synonym.ProductID)
		if err != nil {
			return nil, "", fmt.Errorf("synonym target lookup failed: %w", err)
		}
		if product != nil {
			r.backfillStoreCode(ctx, store, product, storeCode)
			return product, model.OriginSynonym, nil
		}
		slog.Warn("Synonym points at missing product, ignoring",
			"synonym_id", synonym.ID, "product_id", synonym.ProductID)
	}

	product, err := store.GetProductByNormalizedName(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("normalized name lookup failed: %w", err)
	}
	if product != nil {
		r.backfillStoreCode(ctx, store, product, storeCode)
		return product, model.OriginExactName, nil
	}

	created := &model.Product{
		ID:              uuid.NewString(),
		Name:            nameRaw,
		NormalizedName:  key,
		StoreCode:       storeCode,
		CategoryID:      categoryID,
		NeedsNameReview: true,
	}

	if err := store.CreateProduct(ctx, created); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			// Another worker created the same product between our lookup and
			// insert; the constraint is the arbiter, re-fetch the winner.
			existing, fetchErr := store.GetProductByNormalizedName(ctx, key)
			if fetchErr != nil {
				return nil, "", fmt.Errorf("re-fetch after conflict failed: %w", fetchErr)
			}
			if existing != nil {
				return existing, model.OriginExactName, nil
			}
		}
		return nil, "", fmt.Errorf("failed to create product: %w", err)
	}

	slog.Info("Created provisional product",
		"product_id", created.ID,
		"name", nameRaw,
		"category_id", categoryID)

	return created, model.OriginCreated, nil
}

// backfillStoreCode attaches a store code seen on an invoice to a product
// that was matched without one. Best-effort; a conflict means another
// product already owns the code.
func (r *Resolver) backfillStoreCode(ctx context.Context, store service.Storage, product *model.Product, storeCode string) {
	if storeCode == "" || product.StoreCode != "" {
		return
	}

	product.StoreCode = storeCode
	if err := store.UpdateProduct(ctx, product); err != nil {
		product.StoreCode = ""
		slog.Warn("Failed to backfill store code",
			"product_id", product.ID, "store_code", storeCode, "error", err)
	}
}
