package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/stock"
)

func testProduct(id, sku string) stock.Product {
	p := stock.Product{
		ID:           stock.ProductID(id),
		Name:         id,
		Category:     "test",
		UnitType:     stock.UnitCountable,
		PricePerUnit: decimal.NewFromInt(1),
		Weight:       decimal.Zero,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if sku != "" {
		p.SKU = &sku
	}
	return p
}

func TestMemory_WithTxRollsBackEveryWrite(t *testing.T) {
	// GIVEN: A product with one entry
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		if err := tx.InsertProduct(ctx, testProduct("a", "SKU-A")); err != nil {
			return err
		}
		_, err := tx.AppendEntry(ctx, stock.Entry{ProductID: "a", Kind: stock.KindStockIn, QuantityDelta: 3})
		if err != nil {
			return err
		}
		return tx.SetBalance(ctx, stock.Balance{ProductID: "a", Quantity: 3, Weight: decimal.Zero})
	}))

	// WHEN: A transaction writes everything and then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx stock.Tx) error {
		require.NoError(t, tx.InsertProduct(ctx, testProduct("b", "SKU-B")))
		p := testProduct("a", "SKU-A2")
		require.NoError(t, tx.UpdateProduct(ctx, p))
		_, err := tx.AppendEntry(ctx, stock.Entry{ProductID: "a", Kind: stock.KindSale, QuantityDelta: 1})
		require.NoError(t, err)
		require.NoError(t, tx.SetBalance(ctx, stock.Balance{ProductID: "a", Quantity: 2, Weight: decimal.Zero}))
		return boom
	})

	// THEN: The store is exactly as before
	assert.ErrorIs(t, err, boom)

	_, err = m.GetProduct(ctx, "b")
	assert.ErrorIs(t, err, stock.ErrProductNotFound)

	a, err := m.GetProduct(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Quantity)
	assert.Equal(t, "SKU-A", *a.SKU)

	var entries []stock.Entry
	require.NoError(t, m.ScanEntries(ctx, stock.EntryFilter{}, func(e stock.Entry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 1)

	// The freed SKU and entry id are reusable, the old SKU still taken.
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		if err := tx.InsertProduct(ctx, testProduct("c", "SKU-A2")); err != nil {
			return err
		}
		id, err := tx.AppendEntry(ctx, stock.Entry{ProductID: "c", Kind: stock.KindStockIn, QuantityDelta: 1})
		assert.Equal(t, stock.EntryID(2), id)
		return err
	}))
	err = m.WithTx(ctx, func(tx stock.Tx) error {
		return tx.InsertProduct(ctx, testProduct("d", "SKU-A"))
	})
	assert.ErrorIs(t, err, stock.ErrDuplicateSKU)
}

func TestMemory_UpdateProductKeepsBalance(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		if err := tx.InsertProduct(ctx, testProduct("a", "")); err != nil {
			return err
		}
		return tx.SetBalance(ctx, stock.Balance{ProductID: "a", Quantity: 9, Weight: decimal.Zero})
	}))

	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		p := testProduct("a", "")
		p.Name = "renamed"
		p.Quantity = 0
		return tx.UpdateProduct(ctx, p)
	}))

	a, err := m.GetProduct(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", a.Name)
	assert.Equal(t, int64(9), a.Quantity)
}

func TestMemory_ScanNewestWithCursorAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		if err := tx.InsertProduct(ctx, testProduct("a", "")); err != nil {
			return err
		}
		for i := 0; i < 5; i++ {
			if _, err := tx.AppendEntry(ctx, stock.Entry{ProductID: "a", Kind: stock.KindStockIn, QuantityDelta: 1}); err != nil {
				return err
			}
		}
		return nil
	}))

	var ids []stock.EntryID
	err := m.ScanEntries(ctx, stock.EntryFilter{Newest: true, AfterID: 4, Limit: 2}, func(e stock.Entry) error {
		ids = append(ids, e.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []stock.EntryID{3, 2}, ids)
}

func TestMemory_LastEntryIDAndUpTo(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var lastID stock.EntryID
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		if err := tx.InsertProduct(ctx, testProduct("a", "")); err != nil {
			return err
		}
		id, err := tx.LastEntryID(ctx)
		if err != nil || id != 0 {
			return errors.New("expected an empty ledger")
		}
		for i := 0; i < 4; i++ {
			if _, err := tx.AppendEntry(ctx, stock.Entry{ProductID: "a", Kind: stock.KindStockIn, QuantityDelta: 1}); err != nil {
				return err
			}
		}
		lastID, err = tx.LastEntryID(ctx)
		return err
	}))
	assert.Equal(t, stock.EntryID(4), lastID)

	var ids []stock.EntryID
	err := m.ScanEntries(ctx, stock.EntryFilter{UpTo: 2}, func(e stock.Entry) error {
		ids = append(ids, e.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []stock.EntryID{1, 2}, ids)

	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		products, err := tx.ListProducts(ctx)
		if err != nil {
			return err
		}
		assert.Len(t, products, 1)
		return nil
	}))
}

func TestMemory_ScanDoesNotHoldLock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		if err := tx.InsertProduct(ctx, testProduct("a", "")); err != nil {
			return err
		}
		_, err := tx.AppendEntry(ctx, stock.Entry{ProductID: "a", Kind: stock.KindStockIn, QuantityDelta: 1})
		return err
	}))

	// Writing from inside the callback would deadlock if the read lock were held.
	err := m.ScanEntries(ctx, stock.EntryFilter{}, func(stock.Entry) error {
		return m.WithTx(ctx, func(tx stock.Tx) error {
			return tx.SetBalance(ctx, stock.Balance{ProductID: "a", Quantity: 1, Weight: decimal.Zero})
		})
	})
	assert.NoError(t, err)
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx stock.Tx) error {
		return tx.InsertProduct(ctx, testProduct("a", "SKU"))
	}))

	require.NoError(t, m.Reset(ctx))

	products, err := m.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}
