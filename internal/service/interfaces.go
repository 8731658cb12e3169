// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/feirante/feirante/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)

	// Category rule operations
	GetCategoryRules(ctx context.Context) ([]model.CategoryRule, error)
	CreateCategoryRule(ctx context.Context, rule *model.CategoryRule) error
	IncrementRuleUsage(ctx context.Context, ruleID int64) error

	// Product operations
	GetProductByID(ctx context.Context, id string) (*model.Product, error)
	GetProductByStoreCode(ctx context.Context, storeCode string) (*model.Product, error)
	GetProductByNormalizedName(ctx context.Context, normalizedName string) (*model.Product, error)
	CreateProduct(ctx context.Context, product *model.Product) error
	UpdateProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetActiveProducts(ctx context.Context) ([]model.Product, error)
	GetProductsNeedingReview(ctx context.Context, limit, offset int) ([]model.Product, error)
	CountProductsNeedingReview(ctx context.Context) (int, error)

	// Synonym operations
	GetSynonymByNormalizedText(ctx context.Context, normalizedText string) (*model.ProductSynonym, error)
	CreateSynonym(ctx context.Context, synonym *model.ProductSynonym) error
	MigrateSynonyms(ctx context.Context, fromProductID, toProductID string) error

	// Shopping list operations
	CreateList(ctx context.Context, list *model.ShoppingList) error
	GetListByID(ctx context.Context, id string) (*model.ShoppingList, error)
	GetLists(ctx context.Context, limit, offset int) ([]model.ShoppingList, error)
	UpdateListStatus(ctx context.Context, list *model.ShoppingList) error

	// List item operations
	CreateListItem(ctx context.Context, item *model.ListItem) error
	GetListItems(ctx context.Context, listID string) ([]model.ListItem, error)
	MigrateListItems(ctx context.Context, fromProductID, toProductID string) error

	// Price history operations
	SavePriceRecord(ctx context.Context, record *model.PriceRecord) error
	GetLatestPriceRecord(ctx context.Context, productID string) (*model.PriceRecord, error)
	MigratePriceRecords(ctx context.Context, fromProductID, toProductID string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// PriceQuote is the result of an external price lookup.
type PriceQuote struct {
	ObservedAt time.Time
	StoreName  string
	Price      float64
	Found      bool
}

// PriceLookup provides best-effort access to an external price source.
// Implementations never return an error; any failure yields Found=false.
type PriceLookup interface {
	GetLatestPrice(ctx context.Context, productName, geoHint string, recencyWindow time.Duration) PriceQuote
}

// FetchedInvoice is the extracted content of a crawled receipt.
type FetchedInvoice struct {
	IssuedAt     time.Time
	CompanyName  string
	ItemsRawText string
}

// InvoiceFetcher retrieves and extracts a receipt from its public URL.
type InvoiceFetcher interface {
	FetchAndExtract(ctx context.Context, url string) (*FetchedInvoice, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
