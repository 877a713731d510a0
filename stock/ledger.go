/*
ledger.go - Append-only log of stock-affecting events

PURPOSE:
  The Ledger is the audit trail behind every balance. Each stock-in,
  stock-out and sale is one immutable Entry. The balance stored on the
  product must always equal the signed sum of its entries.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. ORDERED: Sequence ids increase in commit order

CORRECTIONS:
  A wrong stock-in is not edited. Record a stock-out for the same amount
  with a note explaining the correction. Both remain in the ledger.

BUSINESS RULES:
  Append does not validate business invariants. The Coordinator checks
  everything before calling Append inside the same transaction.

SCANNING:
  Scan returns an iter.Seq2 that queries the store each time it is ranged
  over, so the sequence is lazy and restartable. Used only by reads.

SEE ALSO:
  - coordinator.go: The only caller of Append
  - report.go: Consumer of Scan
*/
package stock

import (
	"context"
	"errors"
	"iter"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	Store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

// Append persists e within tx and returns its sequence id.
// This is the ONLY write operation on the ledger.
func (l *Ledger) Append(ctx context.Context, tx Tx, e Entry) (EntryID, error) {
	id, err := tx.AppendEntry(ctx, e)
	if err != nil {
		return 0, asStorageError("append entry", err)
	}
	return id, nil
}

var errStopScan = errors.New("scan stopped")

// Scan yields entries matching filter. A storage failure is yielded once as
// the final (zero Entry, error) pair.
func (l *Ledger) Scan(ctx context.Context, filter EntryFilter) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		err := l.Store.ScanEntries(ctx, filter, func(e Entry) error {
			if !yield(e, nil) {
				return errStopScan
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopScan) {
			yield(Entry{}, asStorageError("scan ledger", err))
		}
	}
}

// History returns up to limit entries for one product, newest first.
// A limit <= 0 returns the full history.
func (l *Ledger) History(ctx context.Context, productID ProductID, limit int) ([]Entry, error) {
	if _, err := l.Store.GetProduct(ctx, productID); err != nil {
		return nil, asStorageError("get product", err)
	}

	entries := []Entry{}
	for e, err := range l.Scan(ctx, EntryFilter{ProductID: productID, Newest: true, Limit: limit}) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
