package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
)

// Helper function to create migrated test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestCategory(t *testing.T, store *SQLiteStorage, name string) *model.Category {
	t.Helper()
	category, err := store.CreateCategory(context.Background(), name)
	require.NoError(t, err)
	return category
}

func createTestProduct(t *testing.T, store *SQLiteStorage, id, name, normalized string, categoryID int) *model.Product {
	t.Helper()
	product := &model.Product{
		ID:             id,
		Name:           name,
		NormalizedName: normalized,
		CategoryID:     categoryID,
	}
	require.NoError(t, store.CreateProduct(context.Background(), product))
	return product
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// A second run must be a no-op, not a failure.
	require.NoError(t, store.Migrate(ctx))

	var version int
	err := store.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestCreateCategoryIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first, err := store.CreateCategory(ctx, "Hortifruti")
	require.NoError(t, err)

	second, err := store.CreateCategory(ctx, "Hortifruti")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestCreateProductDuplicateNormalizedName(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	createTestProduct(t, store, "p1", "Arroz", "ARROZ", category.ID)

	dup := &model.Product{
		ID:             "p2",
		Name:           "arroz",
		NormalizedName: "ARROZ",
		CategoryID:     category.ID,
	}
	err := store.CreateProduct(ctx, dup)
	require.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestCreateProductDuplicateStoreCode(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	first := &model.Product{
		ID:             "p1",
		Name:           "Banana",
		NormalizedName: "BANANA",
		StoreCode:      "4011",
		CategoryID:     category.ID,
	}
	require.NoError(t, store.CreateProduct(ctx, first))

	dup := &model.Product{
		ID:             "p2",
		Name:           "Banana Prata",
		NormalizedName: "BANANA PRATA",
		StoreCode:      "4011",
		CategoryID:     category.ID,
	}
	err := store.CreateProduct(ctx, dup)
	require.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestEmptyStoreCodeIsNotUnique(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	// Many products have no store code; the unique index must only apply
	// to real codes.
	createTestProduct(t, store, "p1", "Arroz", "ARROZ", category.ID)
	createTestProduct(t, store, "p2", "Feijao", "FEIJAO", category.ID)

	products, err := store.GetActiveProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestGetProductByStoreCode(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	product := &model.Product{
		ID:             "p1",
		Name:           "Leite Integral",
		NormalizedName: "LEITE INTEGRAL",
		StoreCode:      "789",
		CategoryID:     category.ID,
	}
	require.NoError(t, store.CreateProduct(ctx, product))

	found, err := store.GetProductByStoreCode(ctx, "789")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "p1", found.ID)

	missing, err := store.GetProductByStoreCode(ctx, "000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSynonymMostRecentWins(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")
	createTestProduct(t, store, "p1", "Refrigerante", "REFRIGERANTE", category.ID)
	createTestProduct(t, store, "p2", "Refrigerante Cola", "REFRIGERANTE COLA", category.ID)

	older := &model.ProductSynonym{
		OriginalText:   "coca",
		NormalizedText: "COCA",
		ProductID:      "p1",
		Source:         model.SynonymSourceCorrection,
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.CreateSynonym(ctx, older))

	newer := &model.ProductSynonym{
		OriginalText:   "coca",
		NormalizedText: "COCA",
		ProductID:      "p2",
		Source:         model.SynonymSourceMerge,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.CreateSynonym(ctx, newer))

	found, err := store.GetSynonymByNormalizedText(ctx, "COCA")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "p2", found.ProductID)
}

func TestMigrateSynonyms(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")
	createTestProduct(t, store, "p1", "Macarrao", "MACARRAO", category.ID)
	createTestProduct(t, store, "p2", "Massa", "MASSA", category.ID)

	synonym := &model.ProductSynonym{
		OriginalText:   "miojo",
		NormalizedText: "MIOJO",
		ProductID:      "p1",
	}
	require.NoError(t, store.CreateSynonym(ctx, synonym))

	require.NoError(t, store.MigrateSynonyms(ctx, "p1", "p2"))

	found, err := store.GetSynonymByNormalizedText(ctx, "MIOJO")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "p2", found.ProductID)
}

func TestCategoryRulesOrdering(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Mercearia")

	for _, rule := range []*model.CategoryRule{
		{NormalizedTerm: "ARROZ", CategoryID: category.ID, Priority: 5},
		{NormalizedTerm: "INTEGRAL", CategoryID: category.ID, Priority: 8},
		{NormalizedTerm: "FEIJAO", CategoryID: category.ID, Priority: 6},
	} {
		require.NoError(t, store.CreateCategoryRule(ctx, rule))
	}

	rules, err := store.GetCategoryRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	// Priority descending, then term ascending: deterministic scan order.
	assert.Equal(t, "INTEGRAL", rules[0].NormalizedTerm)
	assert.Equal(t, "FEIJAO", rules[1].NormalizedTerm)
	assert.Equal(t, "ARROZ", rules[2].NormalizedTerm)
}

func TestCreateCategoryRuleDuplicateTerm(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Mercearia")
	other := createTestCategory(t, store, "Bebidas")

	rule := &model.CategoryRule{NormalizedTerm: "ARROZ", CategoryID: category.ID, Priority: 5}
	require.NoError(t, store.CreateCategoryRule(ctx, rule))

	dup := &model.CategoryRule{NormalizedTerm: "ARROZ", CategoryID: other.ID, Priority: 5}
	err := store.CreateCategoryRule(ctx, dup)
	require.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestIncrementRuleUsage(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Mercearia")

	rule := &model.CategoryRule{NormalizedTerm: "ARROZ", CategoryID: category.ID, Priority: 5}
	require.NoError(t, store.CreateCategoryRule(ctx, rule))

	require.NoError(t, store.IncrementRuleUsage(ctx, rule.ID))
	require.NoError(t, store.IncrementRuleUsage(ctx, rule.ID))

	rules, err := store.GetCategoryRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 2, rules[0].UsageCount)
}

func TestListLifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	list := &model.ShoppingList{
		ID:           "list-1",
		Name:         "Compras da semana",
		OriginalText: "2kg Arroz\nLeite 2",
		Status:       model.ListStatusPending,
		Source:       model.ListSourceManual,
	}
	require.NoError(t, store.CreateList(ctx, list))

	loaded, err := store.GetListByID(ctx, "list-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.ListStatusPending, loaded.Status)

	now := time.Now()
	loaded.Status = model.ListStatusCompleted
	loaded.ProcessedAt = &now
	require.NoError(t, store.UpdateListStatus(ctx, loaded))

	reloaded, err := store.GetListByID(ctx, "list-1")
	require.NoError(t, err)
	assert.Equal(t, model.ListStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.ProcessedAt)

	lists, err := store.GetLists(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestListItemsAndMigration(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")
	createTestProduct(t, store, "p1", "Arroz", "ARROZ", category.ID)
	createTestProduct(t, store, "p2", "Arroz Integral", "ARROZ INTEGRAL", category.ID)

	list := &model.ShoppingList{
		ID:     "list-1",
		Name:   "test",
		Status: model.ListStatusPending,
		Source: model.ListSourceManual,
	}
	require.NoError(t, store.CreateList(ctx, list))

	price := 5.99
	item := &model.ListItem{
		ListID:       "list-1",
		ProductID:    "p1",
		Quantity:     2,
		Unit:         "kg",
		UnitPrice:    &price,
		OriginalText: "2kg Arroz",
	}
	require.NoError(t, store.CreateListItem(ctx, item))
	assert.NotZero(t, item.ID)

	require.NoError(t, store.MigrateListItems(ctx, "p1", "p2"))

	items, err := store.GetListItems(ctx, "list-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ProductID)
	require.NotNil(t, items[0].UnitPrice)
	assert.InDelta(t, 5.99, *items[0].UnitPrice, 0.001)
}

func TestPriceHistoryLatest(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")
	createTestProduct(t, store, "p1", "Cafe", "CAFE", category.ID)

	old := &model.PriceRecord{
		ProductID:  "p1",
		Price:      18.50,
		Source:     "invoice",
		ObservedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, store.SavePriceRecord(ctx, old))

	recent := &model.PriceRecord{
		ProductID:  "p1",
		Price:      21.90,
		StoreName:  "Mercado Azul",
		Source:     "lookup",
		ObservedAt: time.Now(),
	}
	require.NoError(t, store.SavePriceRecord(ctx, recent))

	latest, err := store.GetLatestPriceRecord(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 21.90, latest.Price, 0.001)
	assert.Equal(t, "Mercado Azul", latest.StoreName)

	none, err := store.GetLatestPriceRecord(ctx, "p-missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestProductsNeedingReviewPaging(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	for i, name := range []string{"Aaa", "Bbb", "Ccc"} {
		product := &model.Product{
			ID:              name,
			Name:            name,
			NormalizedName:  name,
			CategoryID:      category.ID,
			NeedsNameReview: true,
			CreatedAt:       time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.CreateProduct(ctx, product))
	}
	createTestProduct(t, store, "settled", "Settled", "SETTLED", category.ID)

	count, err := store.CountProductsNeedingReview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	first, err := store.GetProductsNeedingReview(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Aaa", first[0].Name)

	rest, err := store.GetProductsNeedingReview(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "Ccc", rest[0].Name)
}

func TestTransactionRollback(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	product := &model.Product{
		ID:             "p1",
		Name:           "Arroz",
		NormalizedName: "ARROZ",
		CategoryID:     category.ID,
	}
	require.NoError(t, tx.CreateProduct(ctx, product))
	require.NoError(t, tx.Rollback())

	found, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestTransactionCommit(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	category := createTestCategory(t, store, "Outros")

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	product := &model.Product{
		ID:             "p1",
		Name:           "Arroz",
		NormalizedName: "ARROZ",
		CategoryID:     category.ID,
	}
	require.NoError(t, tx.CreateProduct(ctx, product))
	require.NoError(t, tx.Commit())

	found, err := store.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Arroz", found.Name)
}
