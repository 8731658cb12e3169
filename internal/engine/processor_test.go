package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feirante/feirante/internal/classify"
	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/pricing"
	"github.com/feirante/feirante/internal/resolve"
	"github.com/feirante/feirante/internal/service"
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

func newTestProcessor(store service.Storage, prices service.PriceLookup) *Processor {
	return New(store, classify.New(store), resolve.New(store), prices, DefaultConfig())
}

func submitTestList(t *testing.T, store service.Storage, text string) *model.ShoppingList {
	t.Helper()
	list, err := SubmitList(context.Background(), store, "test", text)
	require.NoError(t, err)
	return list
}

func TestProcessManualListCompletes(t *testing.T) {
	store := newTestStorage(t)
	prices := pricing.NewStatic(map[string]float64{"Leite": 4.50})
	processor := newTestProcessor(store, prices)
	ctx := context.Background()

	list := submitTestList(t, store, "2kg Arroz\nLeite 2\nPão")

	require.NoError(t, processor.ProcessList(ctx, list.ID))

	processed, err := store.GetListByID(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListStatusCompleted, processed.Status)
	require.NotNil(t, processed.ProcessedAt)
	assert.Empty(t, processed.ErrorMessage)

	items, err := store.GetListItems(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.InDelta(t, 2.0, items[0].Quantity, 0.001)
	assert.Equal(t, "kg", items[0].Unit)

	// "Leite 2" got its price from the lookup: total = 2 × 4.50.
	require.NotNil(t, items[1].UnitPrice)
	assert.InDelta(t, 4.50, *items[1].UnitPrice, 0.001)
	require.NotNil(t, items[1].Total)
	assert.InDelta(t, 9.00, *items[1].Total, 0.001)

	// "Pão" has no price anywhere.
	assert.Nil(t, items[2].UnitPrice)
	assert.Nil(t, items[2].Total)
}

func TestProcessFlagsNewProductsForReview(t *testing.T) {
	store := newTestStorage(t)
	processor := newTestProcessor(store, nil)
	ctx := context.Background()

	list := submitTestList(t, store, "Quinoa")
	require.NoError(t, processor.ProcessList(ctx, list.ID))

	products, err := store.GetActiveProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)

	// Created from scratch with a default-category guess: both flags set.
	assert.True(t, products[0].NeedsNameReview)
	assert.True(t, products[0].NeedsCategoryReview)
}

func TestProcessInvoiceList(t *testing.T) {
	store := newTestStorage(t)
	processor := newTestProcessor(store, nil)
	ctx := context.Background()

	invoice := &service.FetchedInvoice{
		CompanyName: "Mercado Azul",
		ItemsRawText: "BANANA TERRA (Código: AR004808)\n" +
			"Qtde.:1,915 UN: KG9 Vl. Unit.: 6,99\n" +
			"13,39",
	}
	list, err := StoreInvoice(ctx, store, invoice)
	require.NoError(t, err)
	assert.Equal(t, model.ListSourceInvoice, list.Source)

	require.NoError(t, processor.ProcessList(ctx, list.ID))

	items, err := store.GetListItems(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.InDelta(t, 1.915, item.Quantity, 0.001)
	assert.Equal(t, "kilogram", item.Unit)
	require.NotNil(t, item.UnitPrice)
	assert.InDelta(t, 6.99, *item.UnitPrice, 0.001)
	require.NotNil(t, item.Total)
	// The printed line total wins over quantity × unit price.
	assert.InDelta(t, 13.39, *item.Total, 0.001)

	product, err := store.GetProductByStoreCode(ctx, "AR004808")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "BANANA TERRA", product.Name)

	// The invoice price lands in history for future fallbacks.
	record, err := store.GetLatestPriceRecord(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "invoice", record.Source)
	assert.InDelta(t, 6.99, record.Price, 0.001)
}

func TestProcessFailureMarksListFailed(t *testing.T) {
	store := newTestStorage(t)
	processor := newTestProcessor(store, nil)
	ctx := context.Background()

	// "!!!" survives analysis but normalizes to nothing, so resolution fails.
	list := submitTestList(t, store, "Arroz\n!!!")

	err := processor.ProcessList(ctx, list.ID)
	require.Error(t, err)

	failed, getErr := store.GetListByID(ctx, list.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.ListStatusFailed, failed.Status)
	assert.NotEmpty(t, failed.ErrorMessage)
	assert.Nil(t, failed.ProcessedAt)

	// The item processed before the failure stays persisted.
	items, err := store.GetListItems(ctx, list.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestProcessUnknownList(t *testing.T) {
	store := newTestStorage(t)
	processor := newTestProcessor(store, nil)

	err := processor.ProcessList(context.Background(), "no-such-list")
	require.Error(t, err)
}

func TestProcessReportsProgress(t *testing.T) {
	store := newTestStorage(t)
	processor := newTestProcessor(store, nil)
	ctx := context.Background()

	list := submitTestList(t, store, "Arroz\nFeijão\nCafé")

	var calls []int
	var lastTotal int
	processor.SetProgress(func(done, total int) {
		calls = append(calls, done)
		lastTotal = total
	})

	require.NoError(t, processor.ProcessList(ctx, list.ID))

	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, 3, lastTotal)
}

func TestProcessFallsBackToPriceHistory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// First run records a price through the lookup.
	withPrices := newTestProcessor(store, pricing.NewStatic(map[string]float64{"Café": 21.90}))
	first := submitTestList(t, store, "Café")
	require.NoError(t, withPrices.ProcessList(ctx, first.ID))

	// Second run has no lookup but finds the recorded history.
	withoutPrices := newTestProcessor(store, nil)
	second := submitTestList(t, store, "Café")
	require.NoError(t, withoutPrices.ProcessList(ctx, second.ID))

	items, err := store.GetListItems(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].UnitPrice)
	assert.InDelta(t, 21.90, *items[0].UnitPrice, 0.001)
}

func TestSubmitListCreatesPending(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	list, err := SubmitList(ctx, store, "semana", "Arroz")
	require.NoError(t, err)

	loaded, err := store.GetListByID(ctx, list.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.ListStatusPending, loaded.Status)
	assert.Equal(t, model.ListSourceManual, loaded.Source)
	assert.Equal(t, "semana", loaded.Name)
}
