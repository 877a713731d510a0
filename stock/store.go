/*
store.go - Persistence interface for products and the ledger

PURPOSE:
  Defines the interface between the stock core and the database.
  The Store owns one storage handle; components receive it at construction.
  There is no process-wide database singleton.

KEY INTERFACES:
  Store:   Read access plus the transaction scope (WithTx)
  Tx:      The view available inside one atomic unit
  Resetter: Optional dev-only wipe

APPEND-ONLY CONTRACT:
  Entries can only be added with Tx.AppendEntry. There is no update or
  delete for entries. Balance columns are written only by Tx.SetBalance,
  which is called only by the BalanceEngine inside the same Tx as the append.

ATOMICITY:
  WithTx runs fn in one storage transaction. If fn returns an error the
  transaction is rolled back and nothing fn wrote is observable.

IMPLEMENTATIONS:
  - store/sqldb: SQLite / MySQL
  - stock/store: In-memory for testing and dev

SEE ALSO:
  - coordinator.go: The only caller of WithTx that writes entries
  - ledger.go: Higher-level ledger access
*/
package stock

import "context"

// Store handles persistence of products, balances and ledger entries.
type Store interface {
	// GetProduct returns ErrProductNotFound if the id is unknown.
	GetProduct(ctx context.Context, id ProductID) (Product, error)

	// ListProducts returns all products ordered by name, then id.
	ListProducts(ctx context.Context) ([]Product, error)

	// ScanEntries streams entries matching the filter to fn. Iteration stops
	// at the first error returned by fn. Implementations must not hold a
	// connection or lock while fn runs so writers are never blocked by a reader.
	ScanEntries(ctx context.Context, filter EntryFilter, fn func(Entry) error) error

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional view handed to WithTx callbacks.
type Tx interface {
	// GetProductForUpdate reads a product and, where the backend supports
	// it, locks the row until the transaction ends.
	GetProductForUpdate(ctx context.Context, id ProductID) (Product, error)

	// InsertProduct fails with ErrDuplicateSKU on a SKU collision.
	InsertProduct(ctx context.Context, p Product) error

	// UpdateProduct writes catalog fields only, never quantity or weight.
	UpdateProduct(ctx context.Context, p Product) error

	// AppendEntry assigns the next sequence id and persists the entry.
	AppendEntry(ctx context.Context, e Entry) (EntryID, error)

	// SetBalance stores the product's new quantity and weight.
	SetBalance(ctx context.Context, b Balance) error

	// ListProducts and LastEntryID read as of the transaction, so together
	// they describe one consistent point of the ledger.
	ListProducts(ctx context.Context) ([]Product, error)

	// LastEntryID returns the highest entry id, or 0 for an empty ledger.
	LastEntryID(ctx context.Context) (EntryID, error)
}

// Resetter is implemented by stores that can be wiped (demo scenarios only).
type Resetter interface {
	Reset(ctx context.Context) error
}
