package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/api"
	"github.com/warp/stock-ledger/stock"
	"github.com/warp/stock-ledger/stock/store"
)

func newTestClient(t *testing.T) *Client {
	h := api.NewHandler(store.NewMemory(), time.UTC, nil)
	srv := httptest.NewServer(api.NewRouter(h, api.RouterOptions{}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "till-3")
}

func TestClient_FullCycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	price := decimal.RequireFromString("10.00")

	p, err := c.CreateProduct(ctx, api.CreateProductRequest{
		Name: "Apples", Category: "produce", UnitType: "countable", PricePerUnit: &price,
	})
	require.NoError(t, err)

	_, err = c.StockIn(ctx, Quantity(p.ID, 50))
	require.NoError(t, err)

	sale, err := c.Sell(ctx, Quantity(p.ID, 20), decimal.RequireFromString("12.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(30), sale.Balance.Quantity)
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(240)))

	_, err = c.StockOut(ctx, Quantity(p.ID, 40))
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
	assert.False(t, IsRetryable(err))

	snapshot, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(30), snapshot[0].Quantity)

	revenue, err := c.Revenue(ctx, stock.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, revenue.TotalSales)

	sales, err := c.Sales(ctx, stock.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, sales.Sales, 1)
	assert.Equal(t, "till-3", sales.Sales[0].UserID)

	entries, err := c.Entries(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	audit, err := c.Audit(ctx)
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
}

func TestClient_MapsErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	price := decimal.RequireFromString("4.00")

	_, err := c.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, stock.ErrProductNotFound)

	cheese, err := c.CreateProduct(ctx, api.CreateProductRequest{
		Name: "Cheese", Category: "deli", UnitType: "weighable", PricePerUnit: &price,
	})
	require.NoError(t, err)

	_, err = c.StockIn(ctx, Quantity(cheese.ID, 3))
	assert.ErrorIs(t, err, stock.ErrUnitMismatch)

	_, err = c.StockIn(ctx, Quantity(cheese.ID, 0))
	assert.ErrorIs(t, err, stock.ErrValidation)

	name := "Aged Cheese"
	updated, err := c.UpdateProduct(ctx, cheese.ID, api.UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}
