package pricing

import (
	"context"
	"time"

	"github.com/feirante/feirante/internal/normalize"
	"github.com/feirante/feirante/internal/service"
)

// Static serves prices from a fixed table keyed by normalized product name.
// Used in tests and when no price API is configured.
type Static struct {
	quotes map[string]service.PriceQuote
}

// NewStatic creates a static price source from name → price pairs.
func NewStatic(prices map[string]float64) *Static {
	quotes := make(map[string]service.PriceQuote, len(prices))
	for name, price := range prices {
		quotes[normalize.Key(name)] = service.PriceQuote{
			Found:      true,
			Price:      price,
			StoreName:  "static",
			ObservedAt: time.Now(),
		}
	}
	return &Static{quotes: quotes}
}

// GetLatestPrice returns the configured price for the product, if any.
func (s *Static) GetLatestPrice(_ context.Context, productName, _ string, _ time.Duration) service.PriceQuote {
	return s.quotes[normalize.Key(productName)]
}

var _ service.PriceLookup = (*Static)(nil)
