package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Catalog tables: categories, products, synonyms, rules",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					is_active BOOLEAN DEFAULT 1
				)`,

				`CREATE TABLE IF NOT EXISTS products (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					normalized_name TEXT UNIQUE NOT NULL,
					unit TEXT,
					store_code TEXT UNIQUE,
					category_id INTEGER NOT NULL,
					needs_name_review BOOLEAN DEFAULT 0,
					needs_category_review BOOLEAN DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (category_id) REFERENCES categories(id)
				)`,
				`CREATE INDEX idx_products_category ON products(category_id)`,
				`CREATE INDEX idx_products_review ON products(needs_name_review, needs_category_review)`,

				`CREATE TABLE IF NOT EXISTS product_synonyms (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					original_text TEXT NOT NULL,
					normalized_text TEXT NOT NULL,
					product_id TEXT NOT NULL,
					source TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_synonyms_normalized ON product_synonyms(normalized_text)`,

				`CREATE TABLE IF NOT EXISTS category_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					normalized_term TEXT UNIQUE NOT NULL,
					category_id INTEGER NOT NULL,
					priority INTEGER NOT NULL,
					usage_count INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (category_id) REFERENCES categories(id)
				)`,
				`CREATE INDEX idx_category_rules_priority ON category_rules(priority DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Shopping lists and list items",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS shopping_lists (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					original_text TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'PENDING',
					source TEXT NOT NULL DEFAULT 'MANUAL',
					error_message TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					processed_at DATETIME
				)`,
				`CREATE INDEX idx_shopping_lists_status ON shopping_lists(status)`,

				`CREATE TABLE IF NOT EXISTS list_items (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					list_id TEXT NOT NULL,
					product_id TEXT NOT NULL,
					quantity REAL NOT NULL,
					unit TEXT,
					unit_price REAL,
					total REAL,
					original_text TEXT,
					purchased BOOLEAN DEFAULT 0,
					FOREIGN KEY (list_id) REFERENCES shopping_lists(id) ON DELETE CASCADE,
					FOREIGN KEY (product_id) REFERENCES products(id)
				)`,
				`CREATE INDEX idx_list_items_list ON list_items(list_id)`,
				`CREATE INDEX idx_list_items_product ON list_items(product_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Price history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS price_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					product_id TEXT NOT NULL,
					price REAL NOT NULL,
					store_name TEXT,
					source TEXT NOT NULL,
					observed_at DATETIME NOT NULL,
					FOREIGN KEY (product_id) REFERENCES products(id)
				)`,
				`CREATE INDEX idx_price_history_product ON price_history(product_id, observed_at DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending migrations to bring the schema up to date.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(`
			INSERT INTO schema_migrations (version, description) VALUES (?, ?)
		`, migration.Version, migration.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
