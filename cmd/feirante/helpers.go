package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/feirante/feirante/internal/classify"
	"github.com/feirante/feirante/internal/config"
	"github.com/feirante/feirante/internal/engine"
	"github.com/feirante/feirante/internal/pricing"
	"github.com/feirante/feirante/internal/resolve"
	"github.com/feirante/feirante/internal/service"
	"github.com/feirante/feirante/internal/storage"
)

// openStorage opens the database and brings the schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// priceLookup builds the external price source from config, or nil when no
// API is configured (the processor then falls back to historical prices).
func priceLookup() service.PriceLookup {
	if baseURL := viper.GetString("prices.api_url"); baseURL != "" {
		return pricing.NewHTTPClient(baseURL)
	}
	return nil
}

// newProcessor wires the full pipeline against one storage handle.
func newProcessor(store service.Storage) *engine.Processor {
	cfg := engine.DefaultConfig()
	cfg.GeoHint = viper.GetString("prices.geo_hint")
	if timeout := viper.GetDuration("prices.lookup_timeout"); timeout > 0 {
		cfg.PriceLookupTimeout = timeout
	}

	classifier := classify.New(store)
	resolver := resolve.New(store)
	return engine.New(store, classifier, resolver, priceLookup(), cfg)
}

func formatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return fmt.Sprintf("R$ %.2f", *price)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
