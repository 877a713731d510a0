package stock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/stock"
)

func TestAuditor_ConsistentAfterOperations(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		apples := f.countable(t, "Apples", "1.00")
		cheese := f.weighable(t, "Cheese", "4.00")
		f.stockIn(t, apples.ID, stock.Quantity(10))
		f.stockIn(t, cheese.ID, stock.Weight(dec("3.2")))
		_, err := f.sell(apples.ID, stock.Quantity(4), "1.00")
		require.NoError(t, err)
		_, err = f.sell(cheese.ID, stock.Weight(dec("1.1")), "4.00")
		require.NoError(t, err)

		report, err := f.auditor.Verify(context.Background())
		require.NoError(t, err)

		assert.True(t, report.Consistent())
		assert.Equal(t, 2, report.ProductsChecked)
		assert.Equal(t, 4, report.EntriesScanned)
	})
}

func TestAuditor_DetectsBalanceWrittenOutsideCoordinator(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		// GIVEN: A balance forced to 99 with no ledger entry
		f := newFixture(s)
		ctx := context.Background()
		apples := f.countable(t, "Apples", "1.00")
		f.stockIn(t, apples.ID, stock.Quantity(5))

		err := s.WithTx(ctx, func(tx stock.Tx) error {
			return tx.SetBalance(ctx, stock.Balance{ProductID: apples.ID, Quantity: 99, Weight: dec("0")})
		})
		require.NoError(t, err)

		// WHEN/THEN: The audit reports it
		report, err := f.auditor.Verify(ctx)
		require.NoError(t, err)
		require.Len(t, report.Discrepancies, 1)
		d := report.Discrepancies[0]
		assert.Equal(t, apples.ID, d.ProductID)
		assert.Equal(t, int64(99), d.StoredQuantity)
		assert.Equal(t, int64(5), d.LedgerQuantity)
	})
}

// concurrentWriteStore commits one more stock-in just before the first
// ledger scan, as a sale racing the audit would.
type concurrentWriteStore struct {
	stock.Store
	once  sync.Once
	write func()
}

func (s *concurrentWriteStore) ScanEntries(ctx context.Context, filter stock.EntryFilter, fn func(stock.Entry) error) error {
	s.once.Do(s.write)
	return s.Store.ScanEntries(ctx, filter, fn)
}

func TestAuditor_IgnoresEntriesCommittedDuringTheRun(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		// GIVEN: A consistent product, and a write that lands mid-audit
		f := newFixture(s)
		ctx := context.Background()
		apples := f.countable(t, "Apples", "1.00")
		f.stockIn(t, apples.ID, stock.Quantity(5))

		racing := &concurrentWriteStore{Store: s, write: func() {
			f.stockIn(t, apples.ID, stock.Quantity(3))
		}}

		// WHEN: The audit runs
		report, err := stock.NewAuditor(racing).Verify(ctx)

		// THEN: The late entry is outside the audited point, so no discrepancy
		require.NoError(t, err)
		assert.True(t, report.Consistent(), "discrepancies: %+v", report.Discrepancies)
		assert.Equal(t, 1, report.EntriesScanned)

		// The next run sees both entries and the new balance.
		report, err = f.auditor.Verify(ctx)
		require.NoError(t, err)
		assert.True(t, report.Consistent())
		assert.Equal(t, 2, report.EntriesScanned)
	})
}

func TestAuditor_EmptyLedger(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		f.countable(t, "Apples", "1.00")

		report, err := f.auditor.Verify(context.Background())

		require.NoError(t, err)
		assert.True(t, report.Consistent())
		assert.Equal(t, 1, report.ProductsChecked)
		assert.Zero(t, report.EntriesScanned)
	})
}
