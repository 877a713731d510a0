package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/stock"
)

// =============================================================================
// LEDGER STORE (append-only)
// =============================================================================

const entryColumns = `id, product_id, kind, quantity_delta, weight_delta,
	unit_price, total_amount, note, user_id, created_at`

// scanPageSize bounds how many rows one page query reads.
const scanPageSize = 256

// AppendEntry inserts an entry and returns the assigned sequence id.
func (ts *txStore) AppendEntry(ctx context.Context, e stock.Entry) (stock.EntryID, error) {
	res, err := ts.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(product_id, kind, quantity_delta, weight_delta, unit_price, total_amount, note, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ProductID, e.Kind, e.QuantityDelta, e.WeightDelta.String(),
		nullDecimal(e.UnitPrice), nullDecimal(e.TotalAmount),
		nullString(&e.Note), e.UserID, formatTime(e.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read entry id: %w", err)
	}
	return stock.EntryID(id), nil
}

// LastEntryID returns the highest entry id visible to the transaction.
func (ts *txStore) LastEntryID(ctx context.Context) (stock.EntryID, error) {
	var id int64
	err := ts.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM ledger_entries`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read last entry id: %w", err)
	}
	return stock.EntryID(id), nil
}

// ScanEntries pages through matching entries by id. Each page is read and
// its rows closed before fn sees any entry of it.
func (s *Store) ScanEntries(ctx context.Context, filter stock.EntryFilter, fn func(stock.Entry) error) error {
	cursor := filter.AfterID
	seen := 0
	for {
		pageSize := scanPageSize
		if filter.Limit > 0 && filter.Limit-seen < pageSize {
			pageSize = filter.Limit - seen
		}

		page, err := s.entryPage(ctx, filter, cursor, pageSize)
		if err != nil {
			return err
		}
		for _, e := range page {
			if err := fn(e); err != nil {
				return err
			}
		}

		seen += len(page)
		if len(page) < pageSize || (filter.Limit > 0 && seen >= filter.Limit) {
			return nil
		}
		cursor = page[len(page)-1].ID
	}
}

func (s *Store) entryPage(ctx context.Context, f stock.EntryFilter, cursor stock.EntryID, limit int) ([]stock.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, k)
		}
		where = append(where, "kind IN ("+strings.Join(marks, ", ")+")")
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, formatTime(f.To))
	}
	if f.UpTo != 0 {
		where = append(where, "id <= ?")
		args = append(args, f.UpTo)
	}
	order := "ASC"
	if cursor != 0 {
		if f.Newest {
			where = append(where, "id < ?")
		} else {
			where = append(where, "id > ?")
		}
		args = append(args, cursor)
	}
	if f.Newest {
		order = "DESC"
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id " + order + " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]stock.Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (stock.Entry, error) {
	var (
		e                      stock.Entry
		weightDelta            string
		unitPrice, totalAmount sql.NullString
		note                   sql.NullString
		createdAt              string
	)
	err := rows.Scan(&e.ID, &e.ProductID, &e.Kind, &e.QuantityDelta, &weightDelta,
		&unitPrice, &totalAmount, &note, &e.UserID, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	if e.WeightDelta, err = decimal.NewFromString(weightDelta); err != nil {
		return e, fmt.Errorf("entry %d: bad weight delta %q: %w", e.ID, weightDelta, err)
	}
	if e.UnitPrice, err = fromNullDecimal(unitPrice); err != nil {
		return e, fmt.Errorf("entry %d: bad unit price: %w", e.ID, err)
	}
	if e.TotalAmount, err = fromNullDecimal(totalAmount); err != nil {
		return e, fmt.Errorf("entry %d: bad total amount: %w", e.ID, err)
	}
	e.Note = note.String
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}
