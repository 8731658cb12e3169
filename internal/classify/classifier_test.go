package classify

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

func createProduct(t *testing.T, store *storage.SQLiteStorage, id, name string, categoryID int) *model.Product {
	t.Helper()
	product := &model.Product{
		ID:             id,
		Name:           name,
		NormalizedName: normalizedFixture(name),
		CategoryID:     categoryID,
	}
	require.NoError(t, store.CreateProduct(context.Background(), product))
	return product
}

// normalizedFixture mirrors the ASCII-uppercase form the normalizer produces
// for plain names used in these tests.
func normalizedFixture(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-32)
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ':
			out = append(out, r)
		}
	}
	return string(out)
}

func TestClassifyFallsBackToDefaultCategory(t *testing.T) {
	store := newTestStorage(t)
	classifier := New(store)
	ctx := context.Background()

	result, err := classifier.Classify(ctx, "Quinoa em grãos")
	require.NoError(t, err)

	assert.Equal(t, model.ConfidenceLow, result.Confidence)

	fallback, err := store.GetCategoryByName(ctx, model.DefaultCategoryName)
	require.NoError(t, err)
	require.NotNil(t, fallback)
	assert.Equal(t, fallback.ID, result.CategoryID)
}

func TestClassifyUsesLearnedRules(t *testing.T) {
	store := newTestStorage(t)
	classifier := New(store)
	ctx := context.Background()

	category, err := store.CreateCategory(ctx, "Mercearia")
	require.NoError(t, err)
	product := createProduct(t, store, "p1", "Arroz Integral", category.ID)

	require.NoError(t, classifier.Learn(ctx, product.ID, category.ID))

	// Any name carrying a learned term now classifies with high confidence.
	result, err := classifier.Classify(ctx, "arroz branco tipo 1")
	require.NoError(t, err)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Equal(t, category.ID, result.CategoryID)
	assert.NotZero(t, result.RuleID)
}

func TestClassifyLongerTermWins(t *testing.T) {
	store := newTestStorage(t)
	classifier := New(store)
	ctx := context.Background()

	mercearia, err := store.CreateCategory(ctx, "Mercearia")
	require.NoError(t, err)
	padaria, err := store.CreateCategory(ctx, "Padaria")
	require.NoError(t, err)

	arroz := createProduct(t, store, "p1", "Arroz", mercearia.ID)
	integral := createProduct(t, store, "p2", "Integral", padaria.ID)

	require.NoError(t, classifier.Learn(ctx, arroz.ID, mercearia.ID))
	require.NoError(t, classifier.Learn(ctx, integral.ID, padaria.ID))

	// "INTEGRAL" is the longer term, so it carries higher priority and is
	// scanned first.
	result, err := classifier.Classify(ctx, "Arroz Integral")
	require.NoError(t, err)
	assert.Equal(t, padaria.ID, result.CategoryID)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
}

func TestClassifyIncrementsRuleUsage(t *testing.T) {
	store := newTestStorage(t)
	classifier := New(store)
	ctx := context.Background()

	category, err := store.CreateCategory(ctx, "Bebidas")
	require.NoError(t, err)
	product := createProduct(t, store, "p1", "Cerveja", category.ID)
	require.NoError(t, classifier.Learn(ctx, product.ID, category.ID))

	_, err = classifier.Classify(ctx, "cerveja lata")
	require.NoError(t, err)
	_, err = classifier.Classify(ctx, "CERVEJA 600ml")
	require.NoError(t, err)

	rules, err := store.GetCategoryRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 2, rules[0].UsageCount)
}

func TestLearnSkipsShortAndDuplicateTerms(t *testing.T) {
	store := newTestStorage(t)
	classifier := New(store)
	ctx := context.Background()

	category, err := store.CreateCategory(ctx, "Hortifruti")
	require.NoError(t, err)
	product := createProduct(t, store, "p1", "Uva 12", category.ID)

	require.NoError(t, classifier.Learn(ctx, product.ID, category.ID))
	// Learning again must be a no-op, not a duplicate-term failure.
	require.NoError(t, classifier.Learn(ctx, product.ID, category.ID))

	rules, err := store.GetCategoryRules(ctx)
	require.NoError(t, err)
	// "UVA" qualifies; "12" is below the minimum term length.
	require.Len(t, rules, 1)
	assert.Equal(t, "UVA", rules[0].NormalizedTerm)
	assert.Equal(t, 3, rules[0].Priority)
}

func TestLearnUnknownProduct(t *testing.T) {
	store := newTestStorage(t)
	classifier := New(store)

	err := classifier.Learn(context.Background(), "missing", 1)
	require.Error(t, err)
}
