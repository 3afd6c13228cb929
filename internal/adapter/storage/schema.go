package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Registrations compare byte-wise in both dialects so that LIKE is
// case-sensitive and ORDER BY matches Go string ordering.
var schemas = map[Dialect][]string{
	DialectMySQL: {
		`CREATE TABLE IF NOT EXISTS plates (
			seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			registration VARCHAR(16) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			letters VARCHAR(8) NOT NULL DEFAULT '',
			numbers INT NOT NULL,
			purchase_price DECIMAL(12,2) NOT NULL,
			status VARCHAR(16) NOT NULL,
			version INT NOT NULL DEFAULT 0,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_plates_registration (registration),
			INDEX idx_plates_purchase_price (purchase_price)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			plate_id VARCHAR(36) NOT NULL,
			purchase_price DECIMAL(12,2) NOT NULL,
			sale_price DECIMAL(12,2) NOT NULL,
			sold_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_sales_plate (plate_id)
		)`,
	},
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS plates (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			registration VARCHAR(16) COLLATE "C" NOT NULL,
			letters VARCHAR(8) NOT NULL DEFAULT '',
			numbers INT NOT NULL,
			purchase_price NUMERIC(12,2) NOT NULL,
			status VARCHAR(16) NOT NULL,
			version INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plates_registration ON plates (registration)`,
		`CREATE INDEX IF NOT EXISTS idx_plates_purchase_price ON plates (purchase_price)`,
		`CREATE TABLE IF NOT EXISTS sales (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			plate_id VARCHAR(36) NOT NULL UNIQUE,
			purchase_price NUMERIC(12,2) NOT NULL,
			sale_price NUMERIC(12,2) NOT NULL,
			sold_at TIMESTAMPTZ NOT NULL
		)`,
	},
}

func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts, ok := schemas[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
