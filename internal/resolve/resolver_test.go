package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestCategory(t *testing.T, store *storage.SQLiteStorage) int {
	t.Helper()
	category, err := store.CreateCategory(context.Background(), "Outros")
	require.NoError(t, err)
	return category.ID
}

func TestResolveCreatesProvisionalProduct(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	ctx := context.Background()
	categoryID := newTestCategory(t, store)

	product, origin, err := resolver.Resolve(ctx, "Pão de forma", "", categoryID)
	require.NoError(t, err)

	assert.Equal(t, model.OriginCreated, origin)
	assert.Equal(t, "Pão de forma", product.Name)
	assert.Equal(t, "PAO DE FORMA", product.NormalizedName)
	assert.True(t, product.NeedsNameReview)
	assert.Equal(t, categoryID, product.CategoryID)

	persisted, err := store.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted)
}

func TestResolveIsDeterministic(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	ctx := context.Background()
	categoryID := newTestCategory(t, store)

	first, origin, err := resolver.Resolve(ctx, "Pão de forma", "", categoryID)
	require.NoError(t, err)
	require.Equal(t, model.OriginCreated, origin)

	// Accent and case variants normalize to the same key, so resolution
	// converges on the same product.
	second, origin, err := resolver.Resolve(ctx, "pao DE FORMA", "", categoryID)
	require.NoError(t, err)
	assert.Equal(t, model.OriginExactName, origin)
	assert.Equal(t, first.ID, second.ID)

	products, err := store.GetActiveProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestResolveStoreCodeWinsOverName(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	ctx := context.Background()
	categoryID := newTestCategory(t, store)

	prata := &model.Product{
		ID:             "p1",
		Name:           "Banana Prata",
		NormalizedName: "BANANA PRATA",
		StoreCode:      "4011",
		CategoryID:     categoryID,
	}
	require.NoError(t, store.CreateProduct(ctx, prata))

	// The store code is authoritative even when the name says otherwise.
	product, origin, err := resolver.Resolve(ctx, "Banana Nanica", "4011", categoryID)
	require.NoError(t, err)
	assert.Equal(t, model.OriginStoreCode, origin)
	assert.Equal(t, "p1", product.ID)
}

func TestResolveSynonymBeforeExactName(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	ctx := context.Background()
	categoryID := newTestCategory(t, store)

	canonical := &model.Product{
		ID:             "p1",
		Name:           "Refrigerante",
		NormalizedName: "REFRIGERANTE",
		CategoryID:     categoryID,
	}
	require.NoError(t, store.CreateProduct(ctx, canonical))

	impostor := &model.Product{
		ID:             "p2",
		Name:           "Coca",
		NormalizedName: "COCA",
		CategoryID:     categoryID,
	}
	require.NoError(t, store.CreateProduct(ctx, impostor))

	require.NoError(t, store.CreateSynonym(ctx, &model.ProductSynonym{
		OriginalText:   "coca",
		NormalizedText: "COCA",
		ProductID:      "p1",
		Source:         model.SynonymSourceCorrection,
	}))

	// The curator-approved synonym outranks the exact-name match.
	product, origin, err := resolver.Resolve(ctx, "coca", "", categoryID)
	require.NoError(t, err)
	assert.Equal(t, model.OriginSynonym, origin)
	assert.Equal(t, "p1", product.ID)
}

func TestResolveBackfillsStoreCode(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	ctx := context.Background()
	categoryID := newTestCategory(t, store)

	existing := &model.Product{
		ID:             "p1",
		Name:           "Banana Prata",
		NormalizedName: "BANANA PRATA",
		CategoryID:     categoryID,
	}
	require.NoError(t, store.CreateProduct(ctx, existing))

	product, origin, err := resolver.Resolve(ctx, "banana prata", "777", categoryID)
	require.NoError(t, err)
	assert.Equal(t, model.OriginExactName, origin)
	assert.Equal(t, "777", product.StoreCode)

	persisted, err := store.GetProductByStoreCode(ctx, "777")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "p1", persisted.ID)
}

func TestResolveNewStoreCodeCreatesProduct(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	ctx := context.Background()
	categoryID := newTestCategory(t, store)

	product, origin, err := resolver.Resolve(ctx, "BANANA TERRA", "AR004808", categoryID)
	require.NoError(t, err)
	assert.Equal(t, model.OriginCreated, origin)
	assert.Equal(t, "AR004808", product.StoreCode)
}

func TestResolveRejectsUnusableName(t *testing.T) {
	store := newTestStorage(t)
	resolver := New(store)
	categoryID := newTestCategory(t, store)

	_, _, err := resolver.Resolve(context.Background(), "!!!", "", categoryID)
	require.Error(t, err)
}
