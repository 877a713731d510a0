package stock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/stock"
	"github.com/warp/stock-ledger/stock/store"
	"github.com/warp/stock-ledger/store/sqldb"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// forEachStore runs fn once against the in-memory store and once against an
// in-memory SQLite database.
func forEachStore(t *testing.T, fn func(t *testing.T, s stock.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqldb.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func newMemoryStore() stock.Store { return store.NewMemory() }

// clock is a settable time source shared by the coordinator and reporter.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    stock.Store
	clock    *clock
	catalog  *stock.Catalog
	coord    *stock.Coordinator
	reporter *stock.Reporter
	auditor  *stock.Auditor
}

func newFixture(s stock.Store) *fixture {
	clk := newClock(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))

	catalog := stock.NewCatalog(s, nil)
	catalog.Now = clk.Now

	coord := stock.NewCoordinator(s, nil)
	coord.Now = clk.Now

	reporter := stock.NewReporter(s, time.UTC)
	reporter.Now = clk.Now

	return &fixture{
		store:    s,
		clock:    clk,
		catalog:  catalog,
		coord:    coord,
		reporter: reporter,
		auditor:  stock.NewAuditor(s),
	}
}

func (f *fixture) countable(t *testing.T, name, price string) stock.Product {
	t.Helper()
	return f.create(t, name, stock.UnitCountable, price)
}

func (f *fixture) weighable(t *testing.T, name, price string) stock.Product {
	t.Helper()
	return f.create(t, name, stock.UnitWeighable, price)
}

func (f *fixture) create(t *testing.T, name string, unit stock.UnitType, price string) stock.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), stock.ProductSpec{
		Name:         name,
		Category:     "grocery",
		UnitType:     unit,
		PricePerUnit: decPtr(price),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stockIn(t *testing.T, id stock.ProductID, m stock.Measure) stock.Result {
	t.Helper()
	res, err := f.coord.StockIn(context.Background(), stock.StockInRequest{
		ProductID: id,
		Measure:   m,
		UserID:    "clerk",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) sell(id stock.ProductID, m stock.Measure, price string) (stock.Result, error) {
	return f.coord.Sell(context.Background(), stock.SaleRequest{
		ProductID: id,
		Measure:   m,
		UnitPrice: decPtr(price),
		UserID:    "cashier",
	})
}

func (f *fixture) balance(t *testing.T, id stock.ProductID) stock.Balance {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Balance()
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

// requireDecimal compares by value so "240" equals "240.00".
func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// =============================================================================
// FAULT INJECTION
// =============================================================================

var errInjected = errors.New("injected write failure")

// failingStore makes SetBalance fail after the ledger append has happened,
// so atomicity can be observed.
type failingStore struct {
	stock.Store
}

func (s failingStore) WithTx(ctx context.Context, fn func(stock.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx stock.Tx) error {
		return fn(failingTx{Tx: tx})
	})
}

type failingTx struct {
	stock.Tx
}

func (failingTx) SetBalance(context.Context, stock.Balance) error {
	return errInjected
}
