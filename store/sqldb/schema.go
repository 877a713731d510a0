package sqldb

import "fmt"

// =============================================================================
// DIALECTS
// =============================================================================

// dialect captures the SQL differences between the supported backends.
// Both drivers use "?" placeholders, so queries are shared.
type dialect struct {
	name      string
	schema    []string
	drop      []string
	forUpdate string
	// singleConn serializes all access through one connection. SQLite needs
	// it for ":memory:" databases and to avoid SQLITE_BUSY under load.
	singleConn bool
}

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverMySQL:
		return mysqlDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported driver %q", driver)
}

var sqliteDialect = dialect{
	name:       DriverSQLite,
	singleConn: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			sku TEXT UNIQUE,
			barcode TEXT,
			unit_type TEXT NOT NULL CHECK (unit_type IN ('countable', 'weighable')),
			price_per_unit TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			weight TEXT NOT NULL DEFAULT '0',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name, id)`,

		// Append-only ledger
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL REFERENCES products(id),
			kind TEXT NOT NULL CHECK (kind IN ('stock_in', 'stock_out', 'sale')),
			quantity_delta INTEGER NOT NULL DEFAULT 0 CHECK (quantity_delta >= 0),
			weight_delta TEXT NOT NULL DEFAULT '0',
			unit_price TEXT,
			total_amount TEXT,
			note TEXT,
			user_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_product_created
			ON ledger_entries(product_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_kind_created
			ON ledger_entries(kind, created_at)`,

		// No UPDATE or DELETE on the ledger, even by hand.
		`CREATE TRIGGER IF NOT EXISTS trg_ledger_no_update
			BEFORE UPDATE ON ledger_entries
			BEGIN SELECT RAISE(ABORT, 'ledger entries are append-only'); END`,
		`CREATE TRIGGER IF NOT EXISTS trg_ledger_no_delete
			BEFORE DELETE ON ledger_entries
			BEGIN SELECT RAISE(ABORT, 'ledger entries are append-only'); END`,
	},
	drop: []string{
		`DROP TABLE IF EXISTS ledger_entries`,
		`DROP TABLE IF EXISTS products`,
	},
}

var mysqlDialect = dialect{
	name:      DriverMySQL,
	forUpdate: " FOR UPDATE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(255) NOT NULL,
			sku VARCHAR(64) NULL UNIQUE,
			barcode VARCHAR(64) NULL,
			unit_type VARCHAR(16) NOT NULL,
			price_per_unit DECIMAL(20,6) NOT NULL,
			quantity BIGINT NOT NULL DEFAULT 0,
			weight DECIMAL(20,6) NOT NULL DEFAULT 0,
			created_at VARCHAR(40) NOT NULL,
			updated_at VARCHAR(40) NOT NULL,
			INDEX idx_products_name (name, id),
			CONSTRAINT chk_products_quantity CHECK (quantity >= 0),
			CONSTRAINT chk_products_weight CHECK (weight >= 0)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			product_id VARCHAR(36) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			quantity_delta BIGINT NOT NULL DEFAULT 0,
			weight_delta DECIMAL(20,6) NOT NULL DEFAULT 0,
			unit_price DECIMAL(20,6) NULL,
			total_amount DECIMAL(20,6) NULL,
			note TEXT NULL,
			user_id VARCHAR(128) NOT NULL,
			created_at VARCHAR(40) NOT NULL,
			INDEX idx_ledger_product_created (product_id, created_at),
			INDEX idx_ledger_kind_created (kind, created_at),
			CONSTRAINT fk_ledger_product FOREIGN KEY (product_id) REFERENCES products(id)
		) ENGINE=InnoDB`,
	},
	drop: []string{
		`DROP TABLE IF EXISTS ledger_entries`,
		`DROP TABLE IF EXISTS products`,
	},
}
