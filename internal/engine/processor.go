// Package engine orchestrates list processing: analysis, classification,
// resolution, price lookup, and incremental persistence under a durable
// status state machine.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feirante/feirante/internal/classify"
	"github.com/feirante/feirante/internal/common"
	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/parser"
	"github.com/feirante/feirante/internal/resolve"
	"github.com/feirante/feirante/internal/service"
)

// Config holds configuration options for the processor.
type Config struct {
	GeoHint            string
	PriceLookupTimeout time.Duration
	PriceRecencyWindow time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PriceLookupTimeout: 10 * time.Second,
		PriceRecencyWindow: 30 * 24 * time.Hour,
	}
}

// ItemProgress reports per-item progress to an optional observer (the CLI
// renders a progress bar from it).
type ItemProgress func(done, total int)

// Processor runs a submitted list through the resolution pipeline.
type Processor struct {
	storage    service.Storage
	classifier *classify.Classifier
	resolver   *resolve.Resolver
	prices     service.PriceLookup
	onProgress ItemProgress
	config     Config
}

// New creates a processor with the given dependencies.
func New(storage service.Storage, classifier *classify.Classifier, resolver *resolve.Resolver, prices service.PriceLookup, config Config) *Processor {
	return &Processor{
		storage:    storage,
		classifier: classifier,
		resolver:   resolver,
		prices:     prices,
		config:     config,
	}
}

// SetProgress installs a progress observer. Must be called before ProcessList.
func (p *Processor) SetProgress(fn ItemProgress) {
	p.onProgress = fn
}

// ProcessList runs one list end to end. The list moves Pending → Processing
// at the start, then to Completed or Failed. Items persist incrementally so
// partial progress survives a crash; price lookup failures are non-fatal.
// The returned error mirrors the Failed status so the invoking scheduler can
// apply its own retry policy; the processor never retries on its own.
//
// Calling ProcessList again on a Completed list re-runs analysis and
// duplicates items; callers must guard against that.
func (p *Processor) ProcessList(ctx context.Context, listID string) error {
	list, err := p.storage.GetListByID(ctx, listID)
	if err != nil {
		return fmt.Errorf("failed to load list: %w", err)
	}
	if list == nil {
		return fmt.Errorf("%w: list %s", common.ErrNotFound, listID)
	}

	slog.Info("Processing list", "list_id", listID, "source", list.Source)

	list.Status = model.ListStatusProcessing
	list.ErrorMessage = ""
	if err := p.storage.UpdateListStatus(ctx, list); err != nil {
		return fmt.Errorf("failed to mark list processing: %w", err)
	}

	if err := p.processItems(ctx, list); err != nil {
		list.Status = model.ListStatusFailed
		list.ErrorMessage = err.Error()
		if updateErr := p.storage.UpdateListStatus(ctx, list); updateErr != nil {
			slog.Error("Failed to record list failure", "list_id", listID, "error", updateErr)
		}
		return fmt.Errorf("list %s failed: %w", listID, err)
	}

	now := time.Now()
	list.Status = model.ListStatusCompleted
	list.ProcessedAt = &now
	list.ErrorMessage = ""
	if err := p.storage.UpdateListStatus(ctx, list); err != nil {
		return fmt.Errorf("failed to mark list completed: %w", err)
	}

	slog.Info("List completed", "list_id", listID)
	return nil
}

func (p *Processor) processItems(ctx context.Context, list *model.ShoppingList) error {
	var rawItems []model.RawItem
	switch list.Source {
	case model.ListSourceInvoice:
		rawItems = parser.ReadInvoice(list.OriginalText)
	default:
		rawItems = parser.AnalyzeList(list.OriginalText)
	}

	slog.Info("Analyzed list text", "list_id", list.ID, "items", len(rawItems))

	for i, raw := range rawItems {
		// Stop before starting the next item on cancellation; items already
		// persisted stay persisted.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.processItem(ctx, list, raw); err != nil {
			return fmt.Errorf("item %q: %w", raw.OriginalText, err)
		}

		if p.onProgress != nil {
			p.onProgress(i+1, len(rawItems))
		}
	}

	return nil
}

func (p *Processor) processItem(ctx context.Context, list *model.ShoppingList, raw model.RawItem) error {
	classification, err := p.classifier.Classify(ctx, raw.ProductNameRaw)
	if err != nil {
		return err
	}

	product, origin, err := p.resolver.Resolve(ctx, raw.ProductNameRaw, raw.StoreCode, classification.CategoryID)
	if err != nil {
		return err
	}

	// A freshly created product with a default-category guess also needs its
	// category looked at.
	if origin == model.OriginCreated && classification.Confidence == model.ConfidenceLow {
		product.NeedsCategoryReview = true
		if err := p.storage.UpdateProduct(ctx, product); err != nil {
			return err
		}
	}

	unitPrice := p.lookupPrice(ctx, product, raw)

	item := &model.ListItem{
		ListID:       list.ID,
		ProductID:    product.ID,
		Quantity:     raw.Quantity,
		Unit:         itemUnit(raw, product),
		UnitPrice:    unitPrice,
		OriginalText: raw.OriginalText,
	}

	if raw.LineTotal != nil {
		item.Total = raw.LineTotal
	} else if unitPrice != nil {
		total := raw.Quantity * *unitPrice
		item.Total = &total
	}

	if err := p.storage.CreateListItem(ctx, item); err != nil {
		return err
	}

	slog.Debug("Item persisted",
		"list_id", list.ID,
		"product_id", product.ID,
		"origin", origin,
		"confidence", classification.Confidence)

	return nil
}

// lookupPrice finds a unit price for the item: the invoice price when
// present, otherwise the external source, otherwise the latest historical
// price. Lookup failure is never fatal to the list.
func (p *Processor) lookupPrice(ctx context.Context, product *model.Product, raw model.RawItem) *float64 {
	if raw.UnitPrice != nil {
		record := &model.PriceRecord{
			ProductID: product.ID,
			Price:     *raw.UnitPrice,
			Source:    "invoice",
		}
		if err := p.storage.SavePriceRecord(ctx, record); err != nil {
			slog.Warn("Failed to record invoice price", "product_id", product.ID, "error", err)
		}
		return raw.UnitPrice
	}

	if p.prices != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, p.config.PriceLookupTimeout)
		quote := p.prices.GetLatestPrice(lookupCtx, product.Name, p.config.GeoHint, p.config.PriceRecencyWindow)
		cancel()

		if quote.Found {
			record := &model.PriceRecord{
				ProductID:  product.ID,
				Price:      quote.Price,
				StoreName:  quote.StoreName,
				Source:     "lookup",
				ObservedAt: quote.ObservedAt,
			}
			if err := p.storage.SavePriceRecord(ctx, record); err != nil {
				slog.Warn("Failed to record looked-up price", "product_id", product.ID, "error", err)
			}
			return &quote.Price
		}

		slog.Debug("No external price found", "product", product.Name)
	}

	latest, err := p.storage.GetLatestPriceRecord(ctx, product.ID)
	if err != nil {
		slog.Warn("Historical price lookup failed", "product_id", product.ID, "error", err)
		return nil
	}
	if latest == nil {
		return nil
	}
	return &latest.Price
}

func itemUnit(raw model.RawItem, product *model.Product) string {
	if raw.UnitHint != "" {
		return raw.UnitHint
	}
	return product.Unit
}
