// Package storage provides the data persistence layer for the application.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/service"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// queryable abstracts over *sql.DB and *sql.Tx so every query can run either
// standalone or inside a transaction.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// conflict. Callers treat it as "already exists, re-fetch".
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTransaction) GetCategories(ctx context.Context) ([]model.Category, error) {
	return t.storage.getCategoriesTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	return t.storage.getCategoryByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return t.storage.getCategoryByNameTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	return t.storage.createCategoryTx(ctx, t.tx, name)
}

func (t *sqliteTransaction) GetCategoryRules(ctx context.Context) ([]model.CategoryRule, error) {
	return t.storage.getCategoryRulesTx(ctx, t.tx)
}

func (t *sqliteTransaction) CreateCategoryRule(ctx context.Context, rule *model.CategoryRule) error {
	return t.storage.createCategoryRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) IncrementRuleUsage(ctx context.Context, ruleID int64) error {
	return t.storage.incrementRuleUsageTx(ctx, t.tx, ruleID)
}

func (t *sqliteTransaction) GetProductByID(ctx context.Context, id string) (*model.Product, error) {
	return t.storage.getProductByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetProductByStoreCode(ctx context.Context, storeCode string) (*model.Product, error) {
	return t.storage.getProductByStoreCodeTx(ctx, t.tx, storeCode)
}

func (t *sqliteTransaction) GetProductByNormalizedName(ctx context.Context, normalizedName string) (*model.Product, error) {
	return t.storage.getProductByNormalizedNameTx(ctx, t.tx, normalizedName)
}

func (t *sqliteTransaction) CreateProduct(ctx context.Context, product *model.Product) error {
	return t.storage.createProductTx(ctx, t.tx, product)
}

func (t *sqliteTransaction) UpdateProduct(ctx context.Context, product *model.Product) error {
	return t.storage.updateProductTx(ctx, t.tx, product)
}

func (t *sqliteTransaction) DeleteProduct(ctx context.Context, id string) error {
	return t.storage.deleteProductTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetActiveProducts(ctx context.Context) ([]model.Product, error) {
	return t.storage.getActiveProductsTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetProductsNeedingReview(ctx context.Context, limit, offset int) ([]model.Product, error) {
	return t.storage.getProductsNeedingReviewTx(ctx, t.tx, limit, offset)
}

func (t *sqliteTransaction) CountProductsNeedingReview(ctx context.Context) (int, error) {
	return t.storage.countProductsNeedingReviewTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetSynonymByNormalizedText(ctx context.Context, normalizedText string) (*model.ProductSynonym, error) {
	return t.storage.getSynonymByNormalizedTextTx(ctx, t.tx, normalizedText)
}

func (t *sqliteTransaction) CreateSynonym(ctx context.Context, synonym *model.ProductSynonym) error {
	return t.storage.createSynonymTx(ctx, t.tx, synonym)
}

func (t *sqliteTransaction) MigrateSynonyms(ctx context.Context, fromProductID, toProductID string) error {
	return t.storage.migrateSynonymsTx(ctx, t.tx, fromProductID, toProductID)
}

func (t *sqliteTransaction) CreateList(ctx context.Context, list *model.ShoppingList) error {
	return t.storage.createListTx(ctx, t.tx, list)
}

func (t *sqliteTransaction) GetListByID(ctx context.Context, id string) (*model.ShoppingList, error) {
	return t.storage.getListByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetLists(ctx context.Context, limit, offset int) ([]model.ShoppingList, error) {
	return t.storage.getListsTx(ctx, t.tx, limit, offset)
}

func (t *sqliteTransaction) UpdateListStatus(ctx context.Context, list *model.ShoppingList) error {
	return t.storage.updateListStatusTx(ctx, t.tx, list)
}

func (t *sqliteTransaction) CreateListItem(ctx context.Context, item *model.ListItem) error {
	return t.storage.createListItemTx(ctx, t.tx, item)
}

func (t *sqliteTransaction) GetListItems(ctx context.Context, listID string) ([]model.ListItem, error) {
	return t.storage.getListItemsTx(ctx, t.tx, listID)
}

func (t *sqliteTransaction) MigrateListItems(ctx context.Context, fromProductID, toProductID string) error {
	return t.storage.migrateListItemsTx(ctx, t.tx, fromProductID, toProductID)
}

func (t *sqliteTransaction) SavePriceRecord(ctx context.Context, record *model.PriceRecord) error {
	return t.storage.savePriceRecordTx(ctx, t.tx, record)
}

func (t *sqliteTransaction) GetLatestPriceRecord(ctx context.Context, productID string) (*model.PriceRecord, error) {
	return t.storage.getLatestPriceRecordTx(ctx, t.tx, productID)
}

func (t *sqliteTransaction) MigratePriceRecords(ctx context.Context, fromProductID, toProductID string) error {
	return t.storage.migratePriceRecordsTx(ctx, t.tx, fromProductID, toProductID)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}

var (
	_ service.Storage     = (*SQLiteStorage)(nil)
	_ service.Transaction = (*sqliteTransaction)(nil)
)
