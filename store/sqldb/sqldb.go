/*
Package sqldb provides a database/sql implementation of stock.Store.

PURPOSE:
  Persists products, balances and the append-only ledger in SQLite (default)
  or MySQL. The schema and queries are shared; only DDL and row locking
  differ per dialect.

KEY TABLES:
  products:       Catalog fields plus the denormalized balance
                  (quantity, weight), both CHECKed non-negative
  ledger_entries: Immutable log of stock-in/stock-out/sale, FK to products

INDEXES:
  - idx_ledger_product_created: per-product history (product_id, created_at)
  - idx_ledger_kind_created:    sales reports (kind, created_at)
  - idx_products_name:          snapshot ordering

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on ledger_entries in this package
  - SQLite triggers abort any UPDATE/DELETE on ledger_entries

ATOMICITY:
  WithTx wraps one *sql.Tx. The ledger INSERT and the balance UPDATE run in
  that transaction; any error rolls both back. On MySQL the product row is
  read with SELECT ... FOR UPDATE, so other processes serialize on it too.

CONCURRENCY:
  SQLite is used through a single connection (WAL, busy timeout, immediate
  transactions). ScanEntries pages by id and never keeps rows open while
  calling back, so long reports don't block writers.

TIMESTAMPS:
  Stored as fixed-width UTC text so that string comparison equals time
  comparison on both backends.

DECIMALS:
  Text in SQLite, DECIMAL(20,6) in MySQL. The stock package rejects prices
  and weights with more than stock.MaxScale places and rounds sale totals to
  it, so both backends store exactly what the caller sees.

USAGE:
  store, err := sqldb.Open(sqldb.DriverSQLite, "./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - stock/store.go: Interface definitions
  - stock/store/memory.go: In-memory implementation for testing
*/
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/stock"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements stock.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database and migrates the schema.
// For SQLite use ":memory:" for an in-memory database.
func Open(driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	switch {
	case driver == DriverSQLite && !strings.Contains(dsn, "?"):
		dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	case driver == DriverMySQL && !strings.Contains(dsn, "clientFoundRows"):
		// RowsAffected must count matched rows, not changed rows.
		if strings.Contains(dsn, "?") {
			dsn += "&clientFoundRows=true"
		} else {
			dsn += "?clientFoundRows=true"
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.singleConn {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, dialect: d}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// New opens a SQLite store at dbPath.
func New(dbPath string) (*Store, error) {
	return Open(DriverSQLite, dbPath)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the dialect name the store was opened with.
func (s *Store) Driver() string { return s.dialect.name }

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops and recreates all tables (demo scenarios only).
func (s *Store) Reset(ctx context.Context) error {
	for _, stmt := range s.dialect.drop {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
	}
	return s.migrate(ctx)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(stock.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func fromNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
