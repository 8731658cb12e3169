// Package pricing implements the external price-source boundary. The
// pipeline only depends on the never-fails lookup contract: any failure
// yields a quote with Found=false.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/feirante/feirante/internal/service"
)

// HTTPClient queries a price aggregation API over HTTP.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

type quoteResponse struct {
	ObservedAt time.Time `json:"observed_at"`
	StoreName  string    `json:"store_name"`
	Price      float64   `json:"price"`
	Found      bool      `json:"found"`
}

// NewHTTPClient creates a price client for the given API base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetLatestPrice looks up the most recent observed price for a product name.
// It never returns an error: lookup failures are logged and reported as not
// found, because a missing price must not block list processing.
func (c *HTTPClient) GetLatestPrice(ctx context.Context, productName, geoHint string, recencyWindow time.Duration) service.PriceQuote {
	endpoint := fmt.Sprintf("%s/v1/prices/latest?%s", c.baseURL, url.Values{
		"product": {productName},
		"geo":     {geoHint},
		"max_age": {recencyWindow.String()},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Warn("Price lookup request build failed", "product", productName, "error", err)
		return service.PriceQuote{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Price lookup failed", "product", productName, "error", err)
		return service.PriceQuote{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Price lookup returned non-OK status",
			"product", productName, "status", resp.StatusCode)
		return service.PriceQuote{}
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		slog.Warn("Price lookup response unreadable", "product", productName, "error", err)
		return service.PriceQuote{}
	}

	return service.PriceQuote{
		Found:      quote.Found,
		Price:      quote.Price,
		StoreName:  quote.StoreName,
		ObservedAt: quote.ObservedAt,
	}
}

var _ service.PriceLookup = (*HTTPClient)(nil)
