package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/stock"
)

// =============================================================================
// PRODUCT STORE
// =============================================================================

const productColumns = `id, name, category, sku, barcode, unit_type, price_per_unit,
	quantity, weight, created_at, updated_at`

// GetProduct returns a product with its current balance.
func (s *Store) GetProduct(ctx context.Context, id stock.ProductID) (stock.Product, error) {
	return getProduct(ctx, s.db, id, "")
}

// ListProducts returns all products ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]stock.Product, error) {
	return listProducts(ctx, s.db)
}

// ListProducts reads the products within the transaction's snapshot.
func (ts *txStore) ListProducts(ctx context.Context) ([]stock.Product, error) {
	return listProducts(ctx, ts.tx)
}

func listProducts(ctx context.Context, db execer) ([]stock.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []stock.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (ts *txStore) GetProductForUpdate(ctx context.Context, id stock.ProductID) (stock.Product, error) {
	return getProduct(ctx, ts.tx, id, ts.parent.dialect.forUpdate)
}

func (ts *txStore) InsertProduct(ctx context.Context, p stock.Product) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, nullString(p.SKU), nullString(p.Barcode),
		p.UnitType, p.PricePerUnit.String(),
		p.Quantity, p.Weight.String(),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return stock.ErrDuplicateSKU
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// UpdateProduct writes catalog fields. Quantity and weight are never touched here.
func (ts *txStore) UpdateProduct(ctx context.Context, p stock.Product) error {
	res, err := ts.tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, category = ?, sku = ?, barcode = ?, price_per_unit = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Category, nullString(p.SKU), nullString(p.Barcode),
		p.PricePerUnit.String(), formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return stock.ErrDuplicateSKU
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return stock.ErrProductNotFound
	}
	return nil
}

// SetBalance is the only statement that writes quantity and weight.
func (ts *txStore) SetBalance(ctx context.Context, b stock.Balance) error {
	res, err := ts.tx.ExecContext(ctx,
		`UPDATE products SET quantity = ?, weight = ? WHERE id = ?`,
		b.Quantity, b.Weight.String(), b.ProductID,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return stock.ErrProductNotFound
	}
	return nil
}

func getProduct(ctx context.Context, db execer, id stock.ProductID, suffix string) (stock.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`+suffix, id)
	if err != nil {
		return stock.Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return stock.Product{}, err
		}
		return stock.Product{}, stock.ErrProductNotFound
	}
	return scanProduct(rows)
}

func scanProduct(rows *sql.Rows) (stock.Product, error) {
	var (
		p                    stock.Product
		sku, barcode         sql.NullString
		price, weight        string
		createdAt, updatedAt string
	)
	err := rows.Scan(&p.ID, &p.Name, &p.Category, &sku, &barcode, &p.UnitType, &price,
		&p.Quantity, &weight, &createdAt, &updatedAt)
	if err != nil {
		return p, fmt.Errorf("failed to scan product: %w", err)
	}

	p.SKU = fromNullString(sku)
	p.Barcode = fromNullString(barcode)
	if p.PricePerUnit, err = decimal.NewFromString(price); err != nil {
		return p, fmt.Errorf("product %s: bad price %q: %w", p.ID, price, err)
	}
	if p.Weight, err = decimal.NewFromString(weight); err != nil {
		return p, fmt.Errorf("product %s: bad weight %q: %w", p.ID, weight, err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
