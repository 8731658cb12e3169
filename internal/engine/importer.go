package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/service"
)

// ImportInvoice fetches a receipt from its public URL and stores it as a
// pending invoice-sourced list ready for processing. A fetch failure aborts
// the import: with no text there is nothing to process.
func ImportInvoice(ctx context.Context, store service.Storage, fetcher service.InvoiceFetcher, url string) (*model.ShoppingList, error) {
	invoice, err := fetcher.FetchAndExtract(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}

	return StoreInvoice(ctx, store, invoice)
}

// StoreInvoice stores an already-extracted receipt as a pending
// invoice-sourced list, named after the issuing company and date.
func StoreInvoice(ctx context.Context, store service.Storage, invoice *service.FetchedInvoice) (*model.ShoppingList, error) {
	name := invoice.CompanyName
	if !invoice.IssuedAt.IsZero() {
		name = fmt.Sprintf("%s %s", invoice.CompanyName, invoice.IssuedAt.Format("2006-01-02"))
	}

	list := &model.ShoppingList{
		ID:           uuid.NewString(),
		Name:         name,
		OriginalText: invoice.ItemsRawText,
		Status:       model.ListStatusPending,
		Source:       model.ListSourceInvoice,
	}

	if err := store.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to store imported list: %w", err)
	}

	return list, nil
}

// SubmitList stores free-form list text as a pending manual list.
func SubmitList(ctx context.Context, store service.Storage, name, rawText string) (*model.ShoppingList, error) {
	list := &model.ShoppingList{
		ID:           uuid.NewString(),
		Name:         name,
		OriginalText: rawText,
		Status:       model.ListStatusPending,
		Source:       model.ListSourceManual,
	}

	if err := store.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to store list: %w", err)
	}

	return list, nil
}
